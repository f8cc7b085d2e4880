package news

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
)

const DefaultCategory = "news"

// Reactions
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

type Post struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	ImageURL    string     `json:"image_url"`
	VideoURL    string     `json:"video_url"`
	IsPublished bool       `json:"is_published"`
	CreatedAt   time.Time  `json:"created_at"`
	CreatedBy   null.Int64 `json:"created_by"`
}

type NewPost struct {
	Title    string `json:"title" validate:"required,max=255"`
	Category string `json:"category" validate:"max=64"`
	Content  string `json:"content" validate:"max=20000"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
	VideoURL string `json:"video_url" validate:"omitempty,url"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Category = core.CleanString(np.Category, true /* lower */)
	if np.Category == "" {
		np.Category = DefaultCategory
	}
	np.Content = core.CleanString(np.Content)
	np.ImageURL = core.CleanString(np.ImageURL)
	np.VideoURL = core.CleanString(np.VideoURL)
	return validate.Struct(np)
}

// PostWithRegistrations is the admin listing row.
type PostWithRegistrations struct {
	Post
	Registrations int `json:"registrations"`
}

// Stats are the counters of a post, along with what the viewer did on it.
type Stats struct {
	Registrations int         `json:"registrations"`
	Likes         int         `json:"likes"`
	Dislikes      int         `json:"dislikes"`
	Registered    bool        `json:"registered"`
	Reaction      null.String `json:"reaction"`
	Bookmarked    bool        `json:"bookmarked"`
}

type Comment struct {
	ID        int64      `json:"id"`
	PostID    int64      `json:"post_id"`
	UserID    int64      `json:"user_id"`
	UserName  string     `json:"user_name"`
	ParentID  null.Int64 `json:"parent_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

// Thread is a top-level comment and its replies, oldest first.
type Thread struct {
	Comment
	Replies []Comment `json:"replies"`
}

type NewComment struct {
	Content  string `json:"content" validate:"required,max=5000"`
	ParentID int64  `json:"parent_id"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Content = core.CleanString(nc.Content)
	return validate.Struct(nc)
}

type NewReaction struct {
	Reaction string `json:"reaction" validate:"required,oneof=like dislike"`
}

func (nr *NewReaction) Validate(validate *validator.Validate) error {
	nr.Reaction = core.CleanString(nr.Reaction, true /* lower */)
	if nr.Reaction == "" {
		nr.Reaction = ReactionLike
	}
	return validate.Struct(nr)
}

// FeedPost is a published post as shown to a given viewer.
type FeedPost struct {
	Post
	HTML     string   `json:"html"`
	Preview  string   `json:"preview"`
	Stats    Stats    `json:"stats"`
	Comments []Thread `json:"comments"`
}

// BuildThreads nests replies under their parent; comments must be ordered oldest first.
// Replies to unknown parents are shown at the top level.
func BuildThreads(comments []Comment) []Thread {
	threads := make([]Thread, 0, len(comments))
	index := make(map[int64]int, len(comments))
	for _, c := range comments {
		if !c.ParentID.Valid {
			index[c.ID] = len(threads)
			threads = append(threads, Thread{Comment: c, Replies: []Comment{}})
		}
	}
	for _, c := range comments {
		if !c.ParentID.Valid {
			continue
		}
		if i, ok := index[c.ParentID.Int64]; ok {
			threads[i].Replies = append(threads[i].Replies, c)
		} else {
			threads = append(threads, Thread{Comment: c, Replies: []Comment{}})
		}
	}
	return threads
}
