package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core/news"
)

type newsRepository struct {
	db *DB
}

var _ news.Repository = (*newsRepository)(nil)

func NewNewsRepository(db *DB) *newsRepository {
	return &newsRepository{db: db}
}

func (repo *newsRepository) CreatePost(_ context.Context, p news.Post) (news.Post, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p.ID = repo.db.nextID(tablePosts)
	repo.db.posts[p.ID] = &p
	return p, nil
}

func (repo *newsRepository) GetPost(_ context.Context, id int64) (news.Post, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.posts[id]; ok {
		return *p, nil
	}
	return news.Post{}, news.ErrNotFound
}

func (repo *newsRepository) QueryPosts(_ context.Context, publishedOnly bool) ([]news.Post, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	posts := make([]news.Post, 0, len(repo.db.posts))
	for _, p := range repo.db.posts {
		if !publishedOnly || p.IsPublished {
			posts = append(posts, *p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		return newer(posts[i].CreatedAt, posts[i].ID, posts[j].CreatedAt, posts[j].ID)
	})
	return posts, nil
}

func (repo *newsRepository) PostStats(_ context.Context, postIDs []int64, viewerID int64) (map[int64]news.Stats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stats := make(map[int64]news.Stats, len(postIDs))
	for _, id := range postIDs {
		if _, ok := repo.db.posts[id]; !ok {
			continue
		}
		stats[id] = news.Stats{}
	}
	for k := range repo.db.registrations {
		if s, ok := stats[k.postID]; ok {
			s.Registrations++
			s.Registered = s.Registered || k.userID == viewerID
			stats[k.postID] = s
		}
	}
	for k, reaction := range repo.db.reactions {
		s, ok := stats[k.postID]
		if !ok {
			continue
		}
		switch reaction {
		case news.ReactionLike:
			s.Likes++
		case news.ReactionDislike:
			s.Dislikes++
		}
		if k.userID == viewerID {
			s.Reaction = null.StringFrom(reaction)
		}
		stats[k.postID] = s
	}
	for _, id := range postIDs {
		if s, ok := stats[id]; ok {
			_, s.Bookmarked = repo.db.bookmarks[postUser{id, viewerID}]
			stats[id] = s
		}
	}
	return stats, nil
}

func (repo *newsRepository) withUserName(c news.Comment) news.Comment {
	c.UserName = repo.db.userName(c.UserID)
	return c
}

func (repo *newsRepository) QueryComments(_ context.Context, postIDs []int64) ([]news.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	comments := make([]news.Comment, 0)
	for _, c := range repo.db.comments {
		if containsID(postIDs, c.PostID) {
			comments = append(comments, repo.withUserName(*c))
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return !newer(comments[i].CreatedAt, comments[i].ID, comments[j].CreatedAt, comments[j].ID)
	})
	return comments, nil
}

func (repo *newsRepository) GetComment(_ context.Context, id int64) (news.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.comments[id]; ok {
		return repo.withUserName(*c), nil
	}
	return news.Comment{}, news.ErrCommentNotFound
}

func (repo *newsRepository) CreateComment(_ context.Context, c news.Comment) (news.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.posts[c.PostID]; !ok {
		return news.Comment{}, news.ErrNotFound
	}
	c.ID = repo.db.nextID(tableComments)
	repo.db.comments[c.ID] = &c
	return repo.withUserName(c), nil
}

func (repo *newsRepository) CreateRegistration(_ context.Context, postID, userID int64) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.posts[postID]; !ok {
		return false, news.ErrNotFound
	}
	key := postUser{postID, userID}
	if _, ok := repo.db.registrations[key]; ok {
		return false, nil
	}
	repo.db.registrations[key] = time.Now().UTC()
	return true, nil
}

func (repo *newsRepository) GetReaction(_ context.Context, postID, userID int64) (null.String, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if reaction, ok := repo.db.reactions[postUser{postID, userID}]; ok {
		return null.StringFrom(reaction), nil
	}
	return null.String{}, nil
}

func (repo *newsRepository) SetReaction(_ context.Context, postID, userID int64, reaction string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := postUser{postID, userID}
	if reaction == "" {
		delete(repo.db.reactions, key)
		return nil
	}
	if _, ok := repo.db.posts[postID]; !ok {
		return news.ErrNotFound
	}
	repo.db.reactions[key] = reaction
	return nil
}

func (repo *newsRepository) ToggleBookmark(_ context.Context, postID, userID int64) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := postUser{postID, userID}
	if _, ok := repo.db.bookmarks[key]; ok {
		delete(repo.db.bookmarks, key)
		return false, nil
	}
	if _, ok := repo.db.posts[postID]; !ok {
		return false, news.ErrNotFound
	}
	repo.db.bookmarks[key] = time.Now().UTC()
	return true, nil
}
