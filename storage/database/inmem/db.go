// Package inmemdb keeps the portal's data in memory; it backs the tests and the ENV=TEST api.
package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/beasiswa/core/activity"
	"github.com/trezcool/beasiswa/core/news"
	"github.com/trezcool/beasiswa/core/portfolio"
	"github.com/trezcool/beasiswa/core/program"
	"github.com/trezcool/beasiswa/core/ticket"
	"github.com/trezcool/beasiswa/core/user"
)

// postUser keys the per user rows of a post (registrations, reactions & bookmarks).
type postUser struct {
	postID, userID int64
}

// DB holds every table behind a single lock, so that repositories can join on users.
type DB struct {
	mutex sync.RWMutex
	seqs  map[string]int64 // {table: last ID}

	users         map[int64]*user.User
	settings      map[string]string
	logs          []activity.Log
	records       map[int64]*portfolio.Record
	forms         map[int64]*program.Form
	posts         map[int64]*news.Post
	comments      map[int64]*news.Comment
	registrations map[postUser]time.Time
	reactions     map[postUser]string
	bookmarks     map[postUser]time.Time
	tickets       map[int64]*ticket.Ticket
	messages      map[int64]*ticket.Message
}

func NewDB() *DB {
	return &DB{
		seqs:          make(map[string]int64),
		users:         make(map[int64]*user.User),
		settings:      make(map[string]string),
		records:       make(map[int64]*portfolio.Record),
		forms:         make(map[int64]*program.Form),
		posts:         make(map[int64]*news.Post),
		comments:      make(map[int64]*news.Comment),
		registrations: make(map[postUser]time.Time),
		reactions:     make(map[postUser]string),
		bookmarks:     make(map[postUser]time.Time),
		tickets:       make(map[int64]*ticket.Ticket),
		messages:      make(map[int64]*ticket.Message),
	}
}

// Table names, each with its own ID sequence like the BIGSERIAL columns of the sql schema.
const (
	tableUsers    = "users"
	tableLogs     = "activity_logs"
	tableRecords  = "student_records"
	tableForms    = "program_forms"
	tablePosts    = "posts"
	tableComments = "post_comments"
	tableTickets  = "tickets"
	tableMessages = "ticket_messages"
)

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int64 {
	db.seqs[table]++
	return db.seqs[table]
}

func (db *DB) userName(id int64) string {
	if usr, ok := db.users[id]; ok {
		return usr.FullName
	}
	return ""
}

// deleteUser applies the cascades of the sql schema; must be called with the write lock held.
func (db *DB) deleteUser(id int64) {
	delete(db.users, id)

	for i := range db.logs {
		if db.logs[i].UserID.Valid && db.logs[i].UserID.Int64 == id {
			db.logs[i].UserID.Valid = false
			db.logs[i].UserID.Int64 = 0
		}
	}
	for rid, r := range db.records {
		if r.UserID == id {
			delete(db.records, rid)
		}
	}
	for _, f := range db.forms {
		if f.CreatedBy.Valid && f.CreatedBy.Int64 == id {
			f.CreatedBy.Valid = false
		}
	}
	for _, p := range db.posts {
		if p.CreatedBy.Valid && p.CreatedBy.Int64 == id {
			p.CreatedBy.Valid = false
		}
	}
	for cid, c := range db.comments {
		if c.UserID == id {
			db.deleteComment(cid)
		}
	}
	for k := range db.registrations {
		if k.userID == id {
			delete(db.registrations, k)
		}
	}
	for k := range db.reactions {
		if k.userID == id {
			delete(db.reactions, k)
		}
	}
	for k := range db.bookmarks {
		if k.userID == id {
			delete(db.bookmarks, k)
		}
	}
	for tid, t := range db.tickets {
		if t.UserID == id {
			db.deleteTicket(tid)
		} else if t.AssignedAdminID.Valid && t.AssignedAdminID.Int64 == id {
			t.AssignedAdminID.Valid = false
		}
	}
	for mid, m := range db.messages {
		if m.SenderID == id {
			delete(db.messages, mid)
		}
	}
}

// deleteComment removes a comment along with its replies.
func (db *DB) deleteComment(id int64) {
	delete(db.comments, id)
	for cid, c := range db.comments {
		if c.ParentID.Valid && c.ParentID.Int64 == id {
			db.deleteComment(cid)
		}
	}
}

func (db *DB) deleteTicket(id int64) {
	delete(db.tickets, id)
	for mid, m := range db.messages {
		if m.TicketID == id {
			delete(db.messages, mid)
		}
	}
}

// newer reports whether row a (created at ta) sorts before row b when listing newest first.
func newer(ta time.Time, a int64, tb time.Time, b int64) bool {
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a > b
}

func containsID(ids []int64, id int64) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
