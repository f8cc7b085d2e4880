package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestFormatNumber(t *testing.T) {
	// 2024-01-04 18:30 UTC is already the 5th in WIB
	created := time.Date(2024, time.January, 4, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		id   int64
		want string
	}{
		{id: 7, want: "20240105007"},
		{id: 42, want: "20240105042"},
		{id: 999, want: "20240105999"},
		{id: 1234, want: "202401051234"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.id, created))
		})
	}
}

func TestTitleFromDescription(t *testing.T) {
	long := ""
	for i := 0; i < 13; i++ {
		long += "0123456789"
	}

	tests := []struct {
		name string
		desc string
		want string
	}{
		{name: "single line", desc: "Cannot upload my report", want: "Cannot upload my report"},
		{name: "first line", desc: "Login fails\nIt says wrong password.", want: "Login fails"},
		{name: "crlf", desc: "Login fails\r\nsince monday", want: "Login fails"},
		{name: "truncated", desc: long, want: long[:120] + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromDescription(tt.desc))
		})
	}
}

func TestAppendNote(t *testing.T) {
	now := time.Date(2024, time.January, 5, 2, 4, 0, 0, time.UTC)

	notes := AppendNote("", "checking", now)
	assert.Equal(t, "[05 Jan 2024, 09:04 WIB] checking", notes)

	notes = AppendNote(notes+"\n", "done", now.Add(time.Hour))
	assert.Equal(t, "[05 Jan 2024, 09:04 WIB] checking\n[05 Jan 2024, 10:04 WIB] done", notes)
}

func TestTimeline(t *testing.T) {
	steps := Timeline(StatusInProgress)
	require.Len(t, steps, 4)

	states := make([]string, 0, len(steps))
	for _, s := range steps {
		states = append(states, s.State)
	}
	assert.Equal(t, []string{StepDone, StepCurrent, StepFuture, StepFuture}, states)
	assert.Equal(t, "In Progress", steps[1].Label)
}

func TestAllowedActions(t *testing.T) {
	assert.Equal(t, []Action{ActionAccept, ActionClose, ActionNote}, AllowedActions(StatusOpen))
	assert.Equal(t, []Action{ActionComplete, ActionClose, ActionNote}, AllowedActions(StatusInProgress))
	assert.Equal(t, []Action{ActionClose, ActionNote}, AllowedActions(StatusResolved))
	assert.Empty(t, AllowedActions(StatusClosed))
}

func TestApply(t *testing.T) {
	var (
		adminID  int64 = 2
		otherID  int64 = 3
		now            = time.Date(2024, time.March, 1, 3, 0, 0, 0, time.UTC)
		earlier        = now.Add(-48 * time.Hour)
		resolved       = null.TimeFrom(earlier)
	)

	tests := []struct {
		name          string
		tkt           Ticket
		action        Action
		wantStatus    Status
		wantChanged   bool
		wantErr       error
		wantAssignee  int64
		wantCompleted null.Time
	}{
		{name: "accept open", tkt: Ticket{Status: StatusOpen}, action: ActionAccept, wantStatus: StatusInProgress, wantChanged: true, wantAssignee: adminID},
		{name: "accept in progress", tkt: Ticket{Status: StatusInProgress}, action: ActionAccept, wantStatus: StatusInProgress, wantAssignee: adminID},
		{name: "complete open", tkt: Ticket{Status: StatusOpen}, action: ActionComplete, wantStatus: StatusOpen, wantAssignee: adminID},
		{
			name: "complete in progress", tkt: Ticket{Status: StatusInProgress}, action: ActionComplete,
			wantStatus: StatusResolved, wantChanged: true, wantAssignee: adminID, wantCompleted: null.TimeFrom(now),
		},
		{
			name: "complete resolved keeps completion time", tkt: Ticket{Status: StatusResolved, CompletedAt: resolved}, action: ActionComplete,
			wantStatus: StatusResolved, wantAssignee: adminID, wantCompleted: resolved,
		},
		{
			name: "close keeps assignee", tkt: Ticket{Status: StatusResolved, AssignedAdminID: null.Int64From(otherID)}, action: ActionClose,
			wantStatus: StatusClosed, wantChanged: true, wantAssignee: otherID,
		},
		{name: "close open", tkt: Ticket{Status: StatusOpen}, action: ActionClose, wantStatus: StatusClosed, wantChanged: true, wantAssignee: adminID},
		{name: "note", tkt: Ticket{Status: StatusInProgress}, action: ActionNote, wantStatus: StatusInProgress, wantAssignee: adminID},
		{name: "closed", tkt: Ticket{Status: StatusClosed}, action: ActionNote, wantStatus: StatusClosed, wantErr: ErrClosed},
		{name: "unknown", tkt: Ticket{Status: StatusOpen}, action: "reopen", wantStatus: StatusOpen, wantErr: errUnknownAction, wantAssignee: adminID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tkt := tt.tkt
			changed, err := Apply(&tkt, adminID, AdminAction{Action: tt.action, Note: "note"}, now)

			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantStatus, tkt.Status)
			if tt.wantAssignee != 0 {
				assert.Equal(t, null.Int64From(tt.wantAssignee), tkt.AssignedAdminID)
			}
			assert.Equal(t, tt.wantCompleted, tkt.CompletedAt)
			if err == nil {
				assert.Equal(t, now, tkt.UpdatedAt)
				assert.Equal(t, "[01 Mar 2024, 10:00 WIB] note", tkt.AdminNote)
			} else {
				assert.Empty(t, tkt.AdminNote)
			}
		})
	}
}

func TestTicket_LastNote(t *testing.T) {
	assert.Equal(t, "", Ticket{}.LastNote())
	assert.Equal(t, "[b] two", Ticket{AdminNote: "[a] one\n[b] two\n"}.LastNote())
}
