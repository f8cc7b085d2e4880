package ticket

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
)

type Status string

// Statuses, in the order a ticket goes through them.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

func (s Status) IsValid() bool { return s.index() >= 0 }

func (s Status) index() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Label is the human readable status, e.g. "In Progress".
func (s Status) Label() string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// IsOngoing reports whether the ticket still waits on the admin team.
func (s Status) IsOngoing() bool { return s == StatusOpen || s == StatusInProgress }

type Action string

// Admin actions
const (
	ActionAccept   Action = "accept"
	ActionComplete Action = "complete"
	ActionClose    Action = "close"
	ActionNote     Action = "note"
)

type Ticket struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Category        null.String `json:"category"`
	AttachmentPath  null.String `json:"attachment_path"`
	Status          Status      `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	CompletedAt     null.Time   `json:"completed_at"`
	AdminNote       string      `json:"admin_note"`
	AssignedAdminID null.Int64  `json:"assigned_admin_id"`
}

// Number is the human readable ticket number.
func (t Ticket) Number() string { return FormatNumber(t.ID, t.CreatedAt) }

// LastNote is the latest line of the admin notes log.
func (t Ticket) LastNote() string {
	notes := strings.TrimSpace(t.AdminNote)
	if i := strings.LastIndexByte(notes, '\n'); i >= 0 {
		return notes[i+1:]
	}
	return notes
}

// Details is a Ticket along with its owner & assignee.
type Details struct {
	Ticket
	OwnerName  string      `json:"owner_name"`
	OwnerEmail string      `json:"-"`
	AdminName  null.String `json:"admin_name"`
}

type Message struct {
	ID          int64     `json:"id"`
	TicketID    int64     `json:"ticket_id"`
	SenderID    int64     `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	IsReadAdmin bool      `json:"is_read_admin"`
	IsReadUser  bool      `json:"is_read_user"`
}

// ChatMessage is a Message as rendered in the chat box of a viewer.
type ChatMessage struct {
	Sender string `json:"sender"`
	Me     bool   `json:"me"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

type NewTicket struct {
	Category    string       `json:"category" form:"category" validate:"max=64"`
	Description string       `json:"description" form:"description" validate:"required,max=10000"`
	Attachment  *core.Upload `json:"-"`
}

func (nt *NewTicket) Validate(validate *validator.Validate, maxAttachSize int64) error {
	nt.Category = core.CleanString(nt.Category)
	nt.Description = core.CleanString(nt.Description)
	if err := validate.Struct(nt); err != nil {
		return err
	}
	if !nt.Attachment.IsEmpty() {
		return nt.Attachment.Validate("attachment", maxAttachSize, attachmentExts...)
	}
	return nil
}

type AdminAction struct {
	Action Action `json:"action" validate:"required,oneof=accept complete close note"`
	Note   string `json:"admin_note" validate:"required,max=5000"`
}

func (a *AdminAction) Validate(validate *validator.Validate) error {
	a.Action = Action(core.CleanString(string(a.Action), true /* lower */))
	a.Note = core.CleanString(a.Note)
	return validate.Struct(a)
}

type NewMessage struct {
	Message string `json:"message" form:"message" validate:"required,max=5000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Message = core.CleanString(nm.Message)
	return validate.Struct(nm)
}

// AdminFilter filters the admin ticket listing; names & title are case-insensitive substrings,
// Year is the creation year in WIB.
type AdminFilter struct {
	Status string `query:"status"`
	User   string `query:"user"`
	Admin  string `query:"admin"`
	Title  string `query:"title"`
	Year   string `query:"year"`
}

const statusAll = "all"

func (f *AdminFilter) Clean() {
	f.Status = core.CleanString(f.Status, true /* lower */)
	if f.Status == "" {
		f.Status = statusAll
	}
	f.User = core.CleanString(f.User, true)
	f.Admin = core.CleanString(f.Admin, true)
	f.Title = core.CleanString(f.Title, true)
	f.Year = core.CleanString(f.Year)
}

// StatusFilter returns the status to filter on, if any.
func (f AdminFilter) StatusFilter() (Status, bool) {
	if f.Status == "" || f.Status == statusAll {
		return "", false
	}
	return Status(f.Status), true
}

// Summary holds the KPIs of the admin ticket dashboard.
type Summary struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
	Unassigned int `json:"unassigned"`
	Mine       int `json:"mine"`
}

type TimelineStep struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	State  string `json:"state"` // done, current or future
}

// UserTicket is a ticket as listed to its owner.
type UserTicket struct {
	Details
	Number   string         `json:"number"`
	Unread   int            `json:"unread"`
	Timeline []TimelineStep `json:"timeline"`
}

type UserTickets struct {
	Tickets []UserTicket `json:"tickets"`
	Ongoing []UserTicket `json:"ongoing"`
}

// AdminTicket is a ticket as listed to the admin team.
type AdminTicket struct {
	Details
	Number         string   `json:"number"`
	Unread         int      `json:"unread"`
	AllowedActions []Action `json:"allowed_actions"`
}

type AdminTickets struct {
	Summary Summary       `json:"summary"`
	Tickets []AdminTicket `json:"tickets"`
}

type Notes struct {
	TicketID int64  `json:"ticket_id"`
	TicketNo string `json:"ticket_no"`
	Notes    string `json:"notes"`
}
