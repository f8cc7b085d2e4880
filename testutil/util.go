// Package testutil holds helpers shared by the tests of several packages.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/user"
)

// Password satisfies the password policy; it is the password of the users CreateUser makes.
const Password = "Sch0lar$hip!"

// CreateUser saves an active user with the given role, full name and email.
func CreateUser(t *testing.T, repo user.Repository, name, email, role string, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FullName:  name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Logger keeps the logged messages in memory.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := level + ": " + msg
	for _, arg := range args {
		line += fmt.Sprintf(" %v", arg)
	}
	l.Messages = append(l.Messages, line)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// Activity is an in-memory core.ActivityRecorder.
type Activity struct {
	mu      sync.Mutex
	Entries []ActivityEntry
}

type ActivityEntry struct {
	UserID int64
	Action string
	Detail string
}

var _ core.ActivityRecorder = (*Activity)(nil)

func (a *Activity) Record(_ context.Context, userID int64, action, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, ActivityEntry{UserID: userID, Action: action, Detail: detail})
}

// Last returns the latest recorded entry.
func (a *Activity) Last() (ActivityEntry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.Entries) == 0 {
		return ActivityEntry{}, false
	}
	return a.Entries[len(a.Entries)-1], true
}
