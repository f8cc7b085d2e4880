// Package ticket implements the support tickets students raise to the admin team, and their chat.
package ticket

import (
	"context"
	"fmt"
	"net/mail"
	"path"
	"strconv"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/user"
)

const (
	exportSheetName    = "Tickets"
	exportFilename     = "bsi_scholarship_tickets_admin.xlsx"
	exportTimestamp    = "2006-01-02 15:04:05"
	attachmentsRootDir = "tickets"
)

var (
	ErrNotFound           = core.NewNotFoundError("ticket not found")
	ErrAttachmentNotFound = core.NewNotFoundError("attachment not found")
	ErrClosed             = core.NewPermissionError("ticket is already closed and cannot be modified")
	errUnknownAction      = core.NewFieldError("action", "unknown action")

	attachmentExts = []string{"png", "jpg", "jpeg"}
	exportHeader   = []string{"TicketNumber", "User", "Admin", "Title", "Status", "CreatedWIB", "UpdatedWIB", "LastNote"}
)

type Repository interface {
	CreateTicket(ctx context.Context, t Ticket) (Ticket, error)
	SetAttachment(ctx context.Context, id int64, path string) error
	// DeleteTicket removes a ticket along with its messages.
	DeleteTicket(ctx context.Context, id int64) error
	GetTicket(ctx context.Context, id int64) (Details, error)
	// QueryUserTickets returns the tickets of a user, newest first.
	QueryUserTickets(ctx context.Context, userID int64) ([]Details, error)
	// QueryTickets returns the filtered tickets, newest first.
	QueryTickets(ctx context.Context, filter AdminFilter) ([]Details, error)
	// Summary counts the tickets per status & assignment; adminID is the one counted as "mine".
	Summary(ctx context.Context, adminID int64) (Summary, error)
	// UpdateTicket locks the ticket for the duration of `fn` and saves it if `fn` succeeds.
	UpdateTicket(ctx context.Context, id int64, fn func(*Ticket) error) (Ticket, error)

	// QueryMessages returns the messages of a ticket, oldest first.
	QueryMessages(ctx context.Context, ticketID int64) ([]Message, error)
	CreateMessage(ctx context.Context, m Message) (Message, error)
	// MarkRead flags the messages not sent by readerID as read on the admin or the user side.
	MarkRead(ctx context.Context, ticketID, readerID int64, adminSide bool) error
	// CountUnread counts, per ticket, the messages not sent by readerID and not read on the given side.
	CountUnread(ctx context.Context, ticketIDs []int64, readerID int64, adminSide bool) (map[int64]int, error)
}

type Service struct {
	repo     Repository
	activity core.ActivityRecorder
	files    core.FileStorage
	mailSvc  core.EmailService
	conf     *core.Config
	nowFunc  func() time.Time
}

func NewService(
	repo Repository,
	activity core.ActivityRecorder,
	files core.FileStorage,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(activity, "activity"),
		vala.IsNotNil(files, "files"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		activity: activity,
		files:    files,
		mailSvc:  mailSvc,
		conf:     conf,
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

// MaxAttachmentSize is the max size of the image attached to a new ticket.
func (svc *Service) MaxAttachmentSize() int64 { return svc.conf.Uploads.MaxTicketAttachSize }

// Create opens a ticket; the attachment must have been validated along with `nt`.
func (svc *Service) Create(ctx context.Context, usr user.User, nt NewTicket) (Ticket, error) {
	now := svc.nowFunc()
	t, err := svc.repo.CreateTicket(ctx, Ticket{
		UserID:      usr.ID,
		Title:       TitleFromDescription(nt.Description),
		Description: nt.Description,
		Category:    null.NewString(nt.Category, nt.Category != ""),
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Ticket{}, errors.Wrap(err, "creating ticket")
	}

	if !nt.Attachment.IsEmpty() {
		fp, err := svc.saveAttachment(ctx, t.ID, nt.Attachment)
		if err != nil {
			// a ticket is only kept along with its attachment
			if delErr := svc.repo.DeleteTicket(ctx, t.ID); delErr != nil {
				return Ticket{}, errors.Wrapf(err, "deleting ticket %d: %v", t.ID, delErr)
			}
			return Ticket{}, err
		}
		t.AttachmentPath = null.StringFrom(fp)
	}

	svc.activity.Record(ctx, usr.ID, "ticket_create", t.Title)
	return t, nil
}

func (svc *Service) saveAttachment(ctx context.Context, id int64, upload *core.Upload) (string, error) {
	fp := path.Join(attachmentsRootDir, strconv.FormatInt(id, 10), core.SecureFilename(upload.Filename))
	stored, err := svc.files.Save(ctx, fp, upload.Data)
	if err != nil {
		return "", errors.Wrap(err, "saving attachment")
	}
	if err = svc.repo.SetAttachment(ctx, id, stored.Path); err != nil {
		_ = svc.files.Delete(ctx, stored.Path)
		return "", errors.Wrap(err, "saving attachment path")
	}
	return stored.Path, nil
}

func (svc *Service) UserTickets(ctx context.Context, usr user.User) (UserTickets, error) {
	tickets, err := svc.repo.QueryUserTickets(ctx, usr.ID)
	if err != nil {
		return UserTickets{}, errors.Wrap(err, "querying user tickets")
	}
	unread, err := svc.repo.CountUnread(ctx, ticketIDs(tickets), usr.ID, false /* adminSide */)
	if err != nil {
		return UserTickets{}, errors.Wrap(err, "counting unread messages")
	}

	res := UserTickets{Tickets: make([]UserTicket, 0, len(tickets)), Ongoing: []UserTicket{}}
	for _, t := range tickets {
		ut := UserTicket{Details: t, Number: t.Number(), Unread: unread[t.ID], Timeline: Timeline(t.Status)}
		res.Tickets = append(res.Tickets, ut)
		if t.Status.IsOngoing() {
			res.Ongoing = append(res.Ongoing, ut)
		}
	}
	return res, nil
}

// Get returns a ticket its owner or an admin may see; others get ErrNotFound.
func (svc *Service) Get(ctx context.Context, usr user.User, id int64) (Details, error) {
	t, err := svc.repo.GetTicket(ctx, id)
	if err != nil {
		return Details{}, err
	}
	if t.UserID != usr.ID && !usr.IsAdmin() {
		return Details{}, ErrNotFound
	}
	return t, nil
}

func (svc *Service) AdminTickets(ctx context.Context, admin user.User, filter AdminFilter) (AdminTickets, error) {
	filter.Clean()
	tickets, err := svc.repo.QueryTickets(ctx, filter)
	if err != nil {
		return AdminTickets{}, errors.Wrap(err, "querying tickets")
	}
	summary, err := svc.repo.Summary(ctx, admin.ID)
	if err != nil {
		return AdminTickets{}, errors.Wrap(err, "summarizing tickets")
	}
	unread, err := svc.repo.CountUnread(ctx, ticketIDs(tickets), admin.ID, true /* adminSide */)
	if err != nil {
		return AdminTickets{}, errors.Wrap(err, "counting unread messages")
	}

	res := AdminTickets{Summary: summary, Tickets: make([]AdminTicket, 0, len(tickets))}
	for _, t := range tickets {
		res.Tickets = append(res.Tickets, AdminTicket{
			Details:        t,
			Number:         t.Number(),
			Unread:         unread[t.ID],
			AllowedActions: AllowedActions(t.Status),
		})
	}
	return res, nil
}

// Act applies an admin action on a ticket; the owner is emailed when the status changes.
func (svc *Service) Act(ctx context.Context, admin user.User, id int64, act AdminAction) (Ticket, error) {
	var changed bool
	t, err := svc.repo.UpdateTicket(ctx, id, func(t *Ticket) error {
		var err error
		changed, err = Apply(t, admin.ID, act, svc.nowFunc())
		return err
	})
	if err != nil {
		return Ticket{}, err
	}

	svc.activity.Record(ctx, admin.ID, "ticket_update_status", fmt.Sprintf("%d:%s", t.ID, t.Status))
	if changed {
		svc.notifyOwner(ctx, t, act.Note)
	}
	return t, nil
}

func (svc *Service) notifyOwner(ctx context.Context, t Ticket, note string) {
	d, err := svc.repo.GetTicket(ctx, t.ID)
	if err != nil || d.OwnerEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: d.OwnerName, Address: d.OwnerEmail}},
		Subject:      fmt.Sprintf("Ticket #%s: %s", t.Number(), t.Status.Label()),
		TemplateName: "ticket_status",
		TemplateData: map[string]interface{}{
			"Name":   d.OwnerName,
			"Number": t.Number(),
			"Title":  t.Title,
			"Status": t.Status.Label(),
			"Note":   note,
			"ID":     t.ID,
		},
	})
}

func (svc *Service) Notes(ctx context.Context, id int64) (Notes, error) {
	t, err := svc.repo.GetTicket(ctx, id)
	if err != nil {
		return Notes{}, err
	}
	return Notes{TicketID: t.ID, TicketNo: t.Number(), Notes: t.AdminNote}, nil
}

// Export returns the filtered tickets as a spreadsheet.
func (svc *Service) Export(ctx context.Context, filter AdminFilter) (core.Sheet, error) {
	filter.Clean()
	tickets, err := svc.repo.QueryTickets(ctx, filter)
	if err != nil {
		return core.Sheet{}, errors.Wrap(err, "querying tickets")
	}

	sheet := core.Sheet{Name: exportSheetName, Filename: exportFilename, Header: exportHeader}
	for _, t := range tickets {
		sheet.Append(
			t.Number(),
			t.OwnerName,
			t.AdminName.String,
			t.Title,
			t.Status.Label(),
			formatExportTime(t.CreatedAt),
			formatExportTime(t.UpdatedAt),
			t.LastNote(),
		)
	}
	return sheet, nil
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(core.WIB).Format(exportTimestamp)
}

// Attachment returns the file attached to a ticket.
func (svc *Service) Attachment(ctx context.Context, usr user.User, id int64) (core.StoredFile, error) {
	t, err := svc.Get(ctx, usr, id)
	if err != nil {
		return core.StoredFile{}, err
	}
	if !t.AttachmentPath.Valid {
		return core.StoredFile{}, ErrAttachmentNotFound
	}
	f, err := svc.files.Read(ctx, t.AttachmentPath.String)
	if err != nil {
		if core.IsNotFound(err) {
			return core.StoredFile{}, ErrAttachmentNotFound
		}
		return core.StoredFile{}, errors.Wrap(err, "reading attachment")
	}
	return f, nil
}

// Chat returns the messages of a ticket as seen by `usr`, and marks those of the other side as read.
func (svc *Service) Chat(ctx context.Context, usr user.User, id int64) ([]ChatMessage, error) {
	t, err := svc.Get(ctx, usr, id)
	if err != nil {
		return nil, err
	}
	msgs, err := svc.repo.QueryMessages(ctx, t.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	if err = svc.repo.MarkRead(ctx, t.ID, usr.ID, usr.IsAdmin()); err != nil {
		return nil, errors.Wrap(err, "marking messages read")
	}

	chat := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		chat = append(chat, ChatMessage{
			Sender: m.SenderName,
			Me:     m.SenderID == usr.ID,
			Text:   m.Message,
			Time:   core.FormatWIB(m.CreatedAt),
		})
	}
	return chat, nil
}

// Send posts a chat message; it is unread on the other side only.
func (svc *Service) Send(ctx context.Context, usr user.User, id int64, nm NewMessage) (Message, error) {
	t, err := svc.Get(ctx, usr, id)
	if err != nil {
		return Message{}, err
	}
	isAdmin := usr.IsAdmin()
	m, err := svc.repo.CreateMessage(ctx, Message{
		TicketID:    t.ID,
		SenderID:    usr.ID,
		SenderName:  usr.FullName,
		Message:     nm.Message,
		CreatedAt:   svc.nowFunc(),
		IsReadAdmin: isAdmin,
		IsReadUser:  !isAdmin,
	})
	return m, errors.Wrap(err, "creating message")
}

func ticketIDs(tickets []Details) []int64 {
	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	return ids
}
