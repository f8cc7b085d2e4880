// Package news publishes posts to students and records how they interact with them.
package news

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/user"
)

var (
	ErrNotFound        = core.NewNotFoundError("post not found")
	ErrCommentNotFound = core.NewNotFoundError("comment not found")
)

type Repository interface {
	CreatePost(ctx context.Context, p Post) (Post, error)
	GetPost(ctx context.Context, id int64) (Post, error)
	// QueryPosts returns posts newest first.
	QueryPosts(ctx context.Context, publishedOnly bool) ([]Post, error)
	// PostStats returns the stats of the given posts as seen by viewerID.
	PostStats(ctx context.Context, postIDs []int64, viewerID int64) (map[int64]Stats, error)
	// QueryComments returns the comments of the given posts, oldest first.
	QueryComments(ctx context.Context, postIDs []int64) ([]Comment, error)
	GetComment(ctx context.Context, id int64) (Comment, error)
	CreateComment(ctx context.Context, c Comment) (Comment, error)
	// CreateRegistration reports false when the user was already registered.
	CreateRegistration(ctx context.Context, postID, userID int64) (bool, error)
	GetReaction(ctx context.Context, postID, userID int64) (null.String, error)
	// SetReaction replaces the user's reaction to a post; an empty reaction removes it.
	SetReaction(ctx context.Context, postID, userID int64, reaction string) error
	// ToggleBookmark reports whether the post is bookmarked afterwards.
	ToggleBookmark(ctx context.Context, postID, userID int64) (bool, error)
}

type Service struct {
	repo     Repository
	activity core.ActivityRecorder
}

func NewService(repo Repository, activity core.ActivityRecorder) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(activity, "activity"),
	).CheckAndPanic()

	return &Service{repo: repo, activity: activity}
}

func (svc *Service) Create(ctx context.Context, admin user.User, np NewPost) (Post, error) {
	p, err := svc.repo.CreatePost(ctx, Post{
		Title:       np.Title,
		Content:     np.Content,
		Category:    np.Category,
		ImageURL:    np.ImageURL,
		VideoURL:    np.VideoURL,
		IsPublished: true,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   null.Int64From(admin.ID),
	})
	if err != nil {
		return Post{}, errors.Wrap(err, "creating post")
	}
	svc.activity.Record(ctx, admin.ID, "admin_add_post", p.Category+":"+p.Title)
	return p, nil
}

func postIDs(posts []Post) []int64 {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

// AdminQuery lists every post with its registration count.
func (svc *Service) AdminQuery(ctx context.Context) ([]PostWithRegistrations, error) {
	posts, err := svc.repo.QueryPosts(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	stats, err := svc.repo.PostStats(ctx, postIDs(posts), 0)
	if err != nil {
		return nil, errors.Wrap(err, "querying post stats")
	}

	res := make([]PostWithRegistrations, 0, len(posts))
	for _, p := range posts {
		res = append(res, PostWithRegistrations{Post: p, Registrations: stats[p.ID].Registrations})
	}
	return res, nil
}

// Feed returns the published posts as seen by the viewer.
func (svc *Service) Feed(ctx context.Context, viewer user.User) ([]FeedPost, error) {
	posts, err := svc.repo.QueryPosts(ctx, true /* publishedOnly */)
	if err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	ids := postIDs(posts)
	stats, err := svc.repo.PostStats(ctx, ids, viewer.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying post stats")
	}
	comments, err := svc.repo.QueryComments(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	byPost := make(map[int64][]Comment)
	for _, c := range comments {
		byPost[c.PostID] = append(byPost[c.PostID], c)
	}

	feed := make([]FeedPost, 0, len(posts))
	for _, p := range posts {
		html, err := RenderMarkdown(p.Content)
		if err != nil {
			return nil, errors.Wrapf(err, "rendering post %d", p.ID)
		}
		feed = append(feed, FeedPost{
			Post:     p,
			HTML:     html,
			Preview:  Preview(p.Content),
			Stats:    stats[p.ID],
			Comments: BuildThreads(byPost[p.ID]),
		})
	}
	return feed, nil
}

// Register signs the user up for a post; registering twice is a no-op reported by `created`.
func (svc *Service) Register(ctx context.Context, usr user.User, postID int64) (created bool, err error) {
	p, err := svc.repo.GetPost(ctx, postID)
	if err != nil {
		return false, err
	}
	created, err = svc.repo.CreateRegistration(ctx, p.ID, usr.ID)
	if err != nil {
		return false, errors.Wrap(err, "registering to post")
	}
	if created {
		svc.activity.Record(ctx, usr.ID, "register_post", fmt.Sprintf("%d:%s", p.ID, p.Title))
	}
	return created, nil
}

func (svc *Service) Comment(ctx context.Context, usr user.User, postID int64, nc NewComment) (Comment, error) {
	p, err := svc.repo.GetPost(ctx, postID)
	if err != nil {
		return Comment{}, err
	}

	c := Comment{PostID: p.ID, UserID: usr.ID, UserName: usr.FullName, Content: nc.Content, CreatedAt: time.Now().UTC()}
	if nc.ParentID > 0 {
		parent, err := svc.repo.GetComment(ctx, nc.ParentID)
		switch {
		case err == nil && parent.PostID == p.ID:
			// replies to replies are attached to the thread's root
			if parent.ParentID.Valid {
				c.ParentID = parent.ParentID
			} else {
				c.ParentID = null.Int64From(parent.ID)
			}
		case err != nil && !core.IsNotFound(err):
			return Comment{}, errors.Wrap(err, "getting parent comment")
		}
	}

	if c, err = svc.repo.CreateComment(ctx, c); err != nil {
		return Comment{}, errors.Wrap(err, "creating comment")
	}
	svc.activity.Record(ctx, usr.ID, "comment_post", fmt.Sprintf("%d:%s", p.ID, p.Title))
	return c, nil
}

// React toggles the user's reaction: the same reaction again removes it, another one replaces it.
// It returns the user's reaction afterwards.
func (svc *Service) React(ctx context.Context, usr user.User, postID int64, nr NewReaction) (null.String, error) {
	p, err := svc.repo.GetPost(ctx, postID)
	if err != nil {
		return null.String{}, err
	}
	current, err := svc.repo.GetReaction(ctx, p.ID, usr.ID)
	if err != nil {
		return null.String{}, errors.Wrap(err, "getting reaction")
	}

	var (
		action = "add_reaction"
		next   = null.StringFrom(nr.Reaction)
	)
	if current.Valid {
		if current.String == nr.Reaction {
			action, next = "remove_reaction", null.String{}
		} else {
			action = "update_reaction"
		}
	}
	if err = svc.repo.SetReaction(ctx, p.ID, usr.ID, next.String); err != nil {
		return null.String{}, errors.Wrap(err, "saving reaction")
	}
	svc.activity.Record(ctx, usr.ID, action, fmt.Sprintf("%s:%d", nr.Reaction, p.ID))
	return next, nil
}

// Bookmark toggles the user's bookmark on a post and reports whether it is bookmarked afterwards.
func (svc *Service) Bookmark(ctx context.Context, usr user.User, postID int64) (bool, error) {
	p, err := svc.repo.GetPost(ctx, postID)
	if err != nil {
		return false, err
	}
	marked, err := svc.repo.ToggleBookmark(ctx, p.ID, usr.ID)
	if err != nil {
		return false, errors.Wrap(err, "toggling bookmark")
	}
	action := "remove_bookmark"
	if marked {
		action = "add_bookmark"
	}
	svc.activity.Record(ctx, usr.ID, action, strconv.FormatInt(p.ID, 10))
	return marked, nil
}
