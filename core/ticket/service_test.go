package ticket_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/ticket"
	"github.com/trezcool/beasiswa/core/user"
	emailsvc "github.com/trezcool/beasiswa/services/email"
	inmemdb "github.com/trezcool/beasiswa/storage/database/inmem"
	filestore "github.com/trezcool/beasiswa/storage/files"
	"github.com/trezcool/beasiswa/testutil"
)

type fixture struct {
	svc      *ticket.Service
	activity *testutil.Activity
	student  user.User
	other    user.User
	admin    user.User
}

func setup(t *testing.T) fixture {
	t.Helper()

	conf := core.NewTestConfig()
	logger := &testutil.Logger{}
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	files, err := filestore.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	db := inmemdb.NewDB()
	users := inmemdb.NewUserRepository(db)
	activity := &testutil.Activity{}
	return fixture{
		svc:      ticket.NewService(inmemdb.NewTicketRepository(db), activity, files, emailsvc.NewConsoleServiceMock(conf, logger), conf),
		activity: activity,
		student:  testutil.CreateUser(t, users, "Ani Student", "ani@kampus.ac.id", user.RoleUser),
		other:    testutil.CreateUser(t, users, "Budi Student", "budi@kampus.ac.id", user.RoleUser),
		admin:    testutil.CreateUser(t, users, "Citra Admin", "citra@kampus.ac.id", user.RoleAdmin),
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	tkt, err := fx.svc.Create(ctx, fx.student, ticket.NewTicket{
		Category:    "Pencairan",
		Description: "Dana belum cair\nSudah 2 minggu",
		Attachment:  &core.Upload{Filename: "bukti transfer.png", Data: []byte("png-data")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana belum cair", tkt.Title)
	assert.Equal(t, ticket.StatusOpen, tkt.Status)
	assert.Equal(t, "Pencairan", tkt.Category.String)
	assert.Regexp(t, `^tickets/\d+/bukti_transfer\.png$`, tkt.AttachmentPath.String)

	entry, ok := fx.activity.Last()
	require.True(t, ok)
	assert.Equal(t, testutil.ActivityEntry{UserID: fx.student.ID, Action: "ticket_create", Detail: "Dana belum cair"}, entry)

	f, err := fx.svc.Attachment(ctx, fx.admin, tkt.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-data"), f.Data)

	_, err = fx.svc.Attachment(ctx, fx.other, tkt.ID)
	assert.Equal(t, ticket.ErrNotFound, err)

	plain, err := fx.svc.Create(ctx, fx.student, ticket.NewTicket{Description: "No file"})
	require.NoError(t, err)
	_, err = fx.svc.Attachment(ctx, fx.student, plain.ID)
	assert.Equal(t, ticket.ErrAttachmentNotFound, err)
}

// brokenStorage fails every save.
type brokenStorage struct {
	core.FileStorage
}

func (brokenStorage) Save(context.Context, string, []byte) (core.StoredFile, error) {
	return core.StoredFile{}, errors.New("disk full")
}

func TestService_Create_attachmentFailure(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	db := inmemdb.NewDB()
	users := inmemdb.NewUserRepository(db)
	student := testutil.CreateUser(t, users, "Ani Student", "ani@kampus.ac.id", user.RoleUser)
	activity := &testutil.Activity{}
	svc := ticket.NewService(inmemdb.NewTicketRepository(db), activity, brokenStorage{}, emailsvc.NewConsoleServiceMock(conf, &testutil.Logger{}), conf)

	_, err := svc.Create(ctx, student, ticket.NewTicket{
		Description: "Dana belum cair",
		Attachment:  &core.Upload{Filename: "bukti.png", Data: []byte("png-data")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// the ticket is not kept without its attachment
	own, err := svc.UserTickets(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, own.Tickets)
	_, ok := activity.Last()
	assert.False(t, ok)
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	tkt, err := fx.svc.Create(ctx, fx.student, ticket.NewTicket{Description: "Help"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		usr     user.User
		wantErr error
	}{
		{"owner", fx.student, nil},
		{"admin", fx.admin, nil},
		{"other student", fx.other, ticket.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := fx.svc.Get(ctx, tt.usr, tkt.ID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ani Student", d.OwnerName)
		})
	}
}

func TestService_Act(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	tkt, err := fx.svc.Create(ctx, fx.student, ticket.NewTicket{Description: "Login error"})
	require.NoError(t, err)

	// a note keeps the status: no email
	noted, err := fx.svc.Act(ctx, fx.admin, tkt.ID, ticket.AdminAction{Action: ticket.ActionNote, Note: "checking"})
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusOpen, noted.Status)
	assert.Equal(t, fx.admin.ID, noted.AssignedAdminID.Int64)
	assert.Empty(t, emailsvc.SentMessages)

	accepted, err := fx.svc.Act(ctx, fx.admin, tkt.ID, ticket.AdminAction{Action: ticket.ActionAccept, Note: "on it"})
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusInProgress, accepted.Status)
	assert.Contains(t, accepted.LastNote(), "on it")

	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, "ani@kampus.ac.id", msg.To[0].Address)
	assert.Equal(t, "Ticket #"+accepted.Number()+": In Progress", msg.Subject)
	assert.Contains(t, msg.TextContent, "on it")

	entry, ok := fx.activity.Last()
	require.True(t, ok)
	assert.Equal(t, "ticket_update_status", entry.Action)
	assert.Equal(t, fmt.Sprintf("%d:in_progress", tkt.ID), entry.Detail)

	_, err = fx.svc.Act(ctx, fx.admin, tkt.ID, ticket.AdminAction{Action: ticket.ActionClose, Note: "done"})
	require.NoError(t, err)
	_, err = fx.svc.Act(ctx, fx.admin, tkt.ID, ticket.AdminAction{Action: ticket.ActionNote, Note: "late"})
	assert.Equal(t, ticket.ErrClosed, err)

	_, err = fx.svc.Act(ctx, fx.admin, 999, ticket.AdminAction{Action: ticket.ActionNote, Note: "x"})
	assert.Equal(t, ticket.ErrNotFound, err)

	notes, err := fx.svc.Notes(ctx, tkt.ID)
	require.NoError(t, err)
	assert.Contains(t, notes.Notes, "checking")
	assert.Contains(t, notes.Notes, "done")
}

func TestService_Chat(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	tkt, err := fx.svc.Create(ctx, fx.student, ticket.NewTicket{Description: "Question"})
	require.NoError(t, err)

	_, err = fx.svc.Send(ctx, fx.student, tkt.ID, ticket.NewMessage{Message: "Halo admin"})
	require.NoError(t, err)
	_, err = fx.svc.Send(ctx, fx.other, tkt.ID, ticket.NewMessage{Message: "intruder"})
	assert.Equal(t, ticket.ErrNotFound, err)

	adminView, err := fx.svc.AdminTickets(ctx, fx.admin, ticket.AdminFilter{})
	require.NoError(t, err)
	require.Len(t, adminView.Tickets, 1)
	assert.Equal(t, 1, adminView.Tickets[0].Unread)
	assert.Equal(t, 1, adminView.Summary.Open)
	assert.Equal(t, []ticket.Action{ticket.ActionAccept, ticket.ActionClose, ticket.ActionNote}, adminView.Tickets[0].AllowedActions)

	chat, err := fx.svc.Chat(ctx, fx.admin, tkt.ID)
	require.NoError(t, err)
	require.Len(t, chat, 1)
	assert.Equal(t, ticket.ChatMessage{Sender: "Ani Student", Me: false, Text: "Halo admin", Time: chat[0].Time}, chat[0])
	assert.Contains(t, chat[0].Time, "WIB")

	adminView, err = fx.svc.AdminTickets(ctx, fx.admin, ticket.AdminFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, adminView.Tickets[0].Unread)

	_, err = fx.svc.Send(ctx, fx.admin, tkt.ID, ticket.NewMessage{Message: "Siap"})
	require.NoError(t, err)
	mine, err := fx.svc.UserTickets(ctx, fx.student)
	require.NoError(t, err)
	require.Len(t, mine.Tickets, 1)
	assert.Equal(t, 1, mine.Tickets[0].Unread)
	assert.Len(t, mine.Ongoing, 1)
	assert.Len(t, mine.Tickets[0].Timeline, len(ticket.Statuses))
}

func TestService_Export(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	tkt, err := fx.svc.Create(ctx, fx.student, ticket.NewTicket{Description: "Export me"})
	require.NoError(t, err)
	_, err = fx.svc.Act(ctx, fx.admin, tkt.ID, ticket.AdminAction{Action: ticket.ActionAccept, Note: "accepted"})
	require.NoError(t, err)

	sheet, err := fx.svc.Export(ctx, ticket.AdminFilter{Status: "IN_PROGRESS"})
	require.NoError(t, err)
	assert.Equal(t, "bsi_scholarship_tickets_admin.xlsx", sheet.Filename)
	require.Len(t, sheet.Rows, 1)
	row := sheet.Rows[0]
	assert.Equal(t, tkt.Number(), row[0])
	assert.Equal(t, "Ani Student", row[1])
	assert.Equal(t, "Citra Admin", row[2])
	assert.Equal(t, "In Progress", row[4])
	assert.Contains(t, row[7], "accepted")

	_, err = time.Parse("2006-01-02 15:04:05", row[5].(string))
	assert.NoError(t, err)

	sheet, err = fx.svc.Export(ctx, ticket.AdminFilter{Status: "closed"})
	require.NoError(t, err)
	assert.Empty(t, sheet.Rows)
}
