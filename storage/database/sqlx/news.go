package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core/news"
)

const postColumns = "id, title, content, category, image_url, video_url, is_published, created_at, created_by"

type postRow struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Content     string     `db:"content"`
	Category    string     `db:"category"`
	ImageURL    string     `db:"image_url"`
	VideoURL    string     `db:"video_url"`
	IsPublished bool       `db:"is_published"`
	CreatedAt   time.Time  `db:"created_at"`
	CreatedBy   null.Int64 `db:"created_by"`
}

func (r postRow) toPost() news.Post {
	p := news.Post(r)
	p.CreatedAt = p.CreatedAt.UTC()
	return p
}

type commentRow struct {
	ID        int64      `db:"id"`
	PostID    int64      `db:"post_id"`
	UserID    int64      `db:"user_id"`
	UserName  string     `db:"user_name"`
	ParentID  null.Int64 `db:"parent_id"`
	Content   string     `db:"content"`
	CreatedAt time.Time  `db:"created_at"`
}

func (r commentRow) toComment() news.Comment {
	c := news.Comment(r)
	c.CreatedAt = c.CreatedAt.UTC()
	return c
}

type newsRepository struct {
	db *sqlx.DB
}

var _ news.Repository = (*newsRepository)(nil)

func NewNewsRepository(db *sqlx.DB) *newsRepository {
	return &newsRepository{db: db}
}

func (repo newsRepository) CreatePost(ctx context.Context, p news.Post) (news.Post, error) {
	row := postRow(p)
	id, err := insert(ctx, repo.db, `INSERT INTO posts (title, content, category, image_url, video_url, is_published,
		created_at, created_by) VALUES (:title, :content, :category, :image_url, :video_url, :is_published,
		:created_at, :created_by) RETURNING id`, row)
	if err != nil {
		return news.Post{}, errors.Wrap(err, "inserting post")
	}
	row.ID = id
	return row.toPost(), nil
}

func (repo newsRepository) GetPost(ctx context.Context, id int64) (news.Post, error) {
	var row postRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+postColumns+" FROM posts WHERE id = $1", id); err != nil {
		return news.Post{}, trapNoRowsErr(err, news.ErrNotFound, "getting post")
	}
	return row.toPost(), nil
}

func (repo newsRepository) QueryPosts(ctx context.Context, publishedOnly bool) ([]news.Post, error) {
	q := "SELECT " + postColumns + " FROM posts"
	if publishedOnly {
		q += " WHERE is_published"
	}
	var rows []postRow
	if err := repo.db.SelectContext(ctx, &rows, q+" ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	posts := make([]news.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.toPost())
	}
	return posts, nil
}

func (repo newsRepository) PostStats(ctx context.Context, postIDs []int64, viewerID int64) (map[int64]news.Stats, error) {
	stats := make(map[int64]news.Stats, len(postIDs))
	if len(postIDs) == 0 {
		return stats, nil
	}

	var rows []struct {
		PostID        int64       `db:"post_id"`
		Registrations int         `db:"registrations"`
		Likes         int         `db:"likes"`
		Dislikes      int         `db:"dislikes"`
		Registered    bool        `db:"registered"`
		Reaction      null.String `db:"reaction"`
		Bookmarked    bool        `db:"bookmarked"`
	}
	err := repo.db.SelectContext(ctx, &rows, `SELECT p.id AS post_id,
		(SELECT COUNT(*) FROM post_registrations r WHERE r.post_id = p.id) AS registrations,
		(SELECT COUNT(*) FROM post_reactions x WHERE x.post_id = p.id AND x.reaction = 'like') AS likes,
		(SELECT COUNT(*) FROM post_reactions x WHERE x.post_id = p.id AND x.reaction = 'dislike') AS dislikes,
		EXISTS(SELECT 1 FROM post_registrations r WHERE r.post_id = p.id AND r.user_id = $2) AS registered,
		(SELECT x.reaction FROM post_reactions x WHERE x.post_id = p.id AND x.user_id = $2) AS reaction,
		EXISTS(SELECT 1 FROM post_bookmarks b WHERE b.post_id = p.id AND b.user_id = $2) AS bookmarked
		FROM posts p WHERE p.id = ANY($1)`, pq.Array(postIDs), viewerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying post stats")
	}
	for _, r := range rows {
		stats[r.PostID] = news.Stats{
			Registrations: r.Registrations,
			Likes:         r.Likes,
			Dislikes:      r.Dislikes,
			Registered:    r.Registered,
			Reaction:      r.Reaction,
			Bookmarked:    r.Bookmarked,
		}
	}
	return stats, nil
}

const commentSelect = `SELECT c.id, c.post_id, c.user_id, u.full_name AS user_name, c.parent_id, c.content, c.created_at
	FROM post_comments c JOIN users u ON u.id = c.user_id`

func (repo newsRepository) QueryComments(ctx context.Context, postIDs []int64) ([]news.Comment, error) {
	if len(postIDs) == 0 {
		return []news.Comment{}, nil
	}
	var rows []commentRow
	err := repo.db.SelectContext(ctx, &rows, commentSelect+" WHERE c.post_id = ANY($1) ORDER BY c.created_at, c.id", pq.Array(postIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	comments := make([]news.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, r.toComment())
	}
	return comments, nil
}

func (repo newsRepository) GetComment(ctx context.Context, id int64) (news.Comment, error) {
	var row commentRow
	if err := repo.db.GetContext(ctx, &row, commentSelect+" WHERE c.id = $1", id); err != nil {
		return news.Comment{}, trapNoRowsErr(err, news.ErrCommentNotFound, "getting comment")
	}
	return row.toComment(), nil
}

func (repo newsRepository) CreateComment(ctx context.Context, c news.Comment) (news.Comment, error) {
	row := commentRow(c)
	id, err := insert(ctx, repo.db, `INSERT INTO post_comments (post_id, user_id, parent_id, content, created_at)
		VALUES (:post_id, :user_id, :parent_id, :content, :created_at) RETURNING id`, row)
	if err != nil {
		return news.Comment{}, errors.Wrap(err, "inserting comment")
	}
	row.ID = id
	return row.toComment(), nil
}

func (repo newsRepository) CreateRegistration(ctx context.Context, postID, userID int64) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `INSERT INTO post_registrations (post_id, user_id, created_at)
		VALUES ($1, $2, NOW()) ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID)
	if err != nil {
		return false, errors.Wrap(err, "inserting registration")
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (repo newsRepository) GetReaction(ctx context.Context, postID, userID int64) (null.String, error) {
	var reaction null.String
	err := repo.db.GetContext(ctx, &reaction,
		"SELECT reaction FROM post_reactions WHERE post_id = $1 AND user_id = $2", postID, userID)
	if err != nil && errors.Cause(err) != sql.ErrNoRows {
		return null.String{}, errors.Wrap(err, "getting reaction")
	}
	return reaction, nil
}

func (repo newsRepository) SetReaction(ctx context.Context, postID, userID int64, reaction string) error {
	if reaction == "" {
		_, err := repo.db.ExecContext(ctx, "DELETE FROM post_reactions WHERE post_id = $1 AND user_id = $2", postID, userID)
		return errors.Wrap(err, "deleting reaction")
	}
	_, err := repo.db.ExecContext(ctx, `INSERT INTO post_reactions (post_id, user_id, reaction, created_at)
		VALUES ($1, $2, $3, NOW()) ON CONFLICT (post_id, user_id) DO UPDATE SET reaction = EXCLUDED.reaction`,
		postID, userID, reaction)
	return errors.Wrap(err, "saving reaction")
}

func (repo newsRepository) ToggleBookmark(ctx context.Context, postID, userID int64) (bool, error) {
	var marked bool
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM post_bookmarks WHERE post_id = $1 AND user_id = $2", postID, userID)
		if err != nil {
			return errors.Wrap(err, "deleting bookmark")
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO post_bookmarks (post_id, user_id, created_at) VALUES ($1, $2, NOW())
			ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID)
		marked = err == nil
		return errors.Wrap(err, "inserting bookmark")
	})
	return marked, err
}
