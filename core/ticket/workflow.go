package ticket

import (
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
)

const (
	titleMaxLen  = 120
	numberLayout = "20060102"
)

// Timeline step states
const (
	StepDone    = "done"
	StepCurrent = "current"
	StepFuture  = "future"
)

// FormatNumber builds the ticket number: creation date in WIB (YYYYMMDD) then the ID padded to 3 digits.
func FormatNumber(id int64, createdAt time.Time) string {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return createdAt.In(core.WIB).Format(numberLayout) + fmt.Sprintf("%03d", id)
}

// TitleFromDescription uses the first line of the description as the ticket title.
func TitleFromDescription(desc string) string {
	first := strings.TrimSpace(desc)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = strings.TrimSpace(first[:i])
	}
	return core.Truncate(first, titleMaxLen)
}

// AppendNote adds a timestamped line to the notes log.
func AppendNote(notes, note string, now time.Time) string {
	line := fmt.Sprintf("[%s] %s", core.FormatWIB(now), note)
	if existing := strings.TrimSpace(notes); existing != "" {
		return existing + "\n" + line
	}
	return line
}

// Timeline returns the progress of a ticket through every status.
func Timeline(s Status) []TimelineStep {
	current := s.index()
	if current < 0 {
		current = 0
	}
	steps := make([]TimelineStep, 0, len(Statuses))
	for i, st := range Statuses {
		state := StepFuture
		switch {
		case i < current:
			state = StepDone
		case i == current:
			state = StepCurrent
		}
		steps = append(steps, TimelineStep{Status: st, Label: st.Label(), State: state})
	}
	return steps
}

// AllowedActions are the actions that move a ticket in its current status forward.
// A note can be added to any ticket that is not closed.
func AllowedActions(s Status) []Action {
	switch s {
	case StatusOpen:
		return []Action{ActionAccept, ActionClose, ActionNote}
	case StatusInProgress:
		return []Action{ActionComplete, ActionClose, ActionNote}
	case StatusResolved:
		return []Action{ActionClose, ActionNote}
	default:
		return []Action{}
	}
}

// Apply runs an admin action on a ticket and reports whether its status changed.
// Actions that do not apply to the current status only add the note.
func Apply(t *Ticket, adminID int64, act AdminAction, now time.Time) (bool, error) {
	if t.Status == StatusClosed {
		return false, ErrClosed
	}
	if !t.AssignedAdminID.Valid {
		t.AssignedAdminID = null.Int64From(adminID)
	}

	prev := t.Status
	switch act.Action {
	case ActionAccept:
		if t.Status == StatusOpen {
			t.Status = StatusInProgress
		}
	case ActionComplete:
		if t.Status == StatusInProgress || t.Status == StatusResolved {
			if !t.CompletedAt.Valid {
				t.CompletedAt = null.TimeFrom(now)
			}
			t.Status = StatusResolved
		}
	case ActionClose:
		t.Status = StatusClosed
	case ActionNote:
	default:
		return false, errUnknownAction
	}

	t.AdminNote = AppendNote(t.AdminNote, act.Note, now)
	t.UpdatedAt = now
	return t.Status != prev, nil
}
