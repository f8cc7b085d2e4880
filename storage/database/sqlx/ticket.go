package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/beasiswa/core/ticket"
)

const (
	ticketColumns = `t.id, t.user_id, t.title, t.description, t.category, t.attachment_path, t.status, t.created_at,
	t.updated_at, t.completed_at, t.admin_note, t.assigned_admin_id`
	ticketDetailColumns = ticketColumns + `, o.full_name AS owner_name, o.email AS owner_email, a.full_name AS admin_name`
	ticketJoins         = ` FROM tickets t JOIN users o ON o.id = t.user_id LEFT JOIN users a ON a.id = t.assigned_admin_id`
)

type ticketRow struct {
	ID              int64       `db:"id" boil:"id"`
	UserID          int64       `db:"user_id" boil:"user_id"`
	Title           string      `db:"title" boil:"title"`
	Description     string      `db:"description" boil:"description"`
	Category        null.String `db:"category" boil:"category"`
	AttachmentPath  null.String `db:"attachment_path" boil:"attachment_path"`
	Status          string      `db:"status" boil:"status"`
	CreatedAt       time.Time   `db:"created_at" boil:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" boil:"updated_at"`
	CompletedAt     null.Time   `db:"completed_at" boil:"completed_at"`
	AdminNote       string      `db:"admin_note" boil:"admin_note"`
	AssignedAdminID null.Int64  `db:"assigned_admin_id" boil:"assigned_admin_id"`
	OwnerName       string      `db:"owner_name" boil:"owner_name"`
	OwnerEmail      string      `db:"owner_email" boil:"owner_email"`
	AdminName       null.String `db:"admin_name" boil:"admin_name"`
}

func fromTicket(t ticket.Ticket) ticketRow {
	return ticketRow{
		ID:              t.ID,
		UserID:          t.UserID,
		Title:           t.Title,
		Description:     t.Description,
		Category:        t.Category,
		AttachmentPath:  t.AttachmentPath,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
		CompletedAt:     t.CompletedAt,
		AdminNote:       t.AdminNote,
		AssignedAdminID: t.AssignedAdminID,
	}
}

func (r ticketRow) toTicket() ticket.Ticket {
	return ticket.Ticket{
		ID:              r.ID,
		UserID:          r.UserID,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		AttachmentPath:  r.AttachmentPath,
		Status:          ticket.Status(r.Status),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		CompletedAt:     r.CompletedAt,
		AdminNote:       r.AdminNote,
		AssignedAdminID: r.AssignedAdminID,
	}
}

func (r ticketRow) toDetails() ticket.Details {
	return ticket.Details{Ticket: r.toTicket(), OwnerName: r.OwnerName, OwnerEmail: r.OwnerEmail, AdminName: r.AdminName}
}

func toDetailsSlice(rows []ticketRow) []ticket.Details {
	tickets := make([]ticket.Details, 0, len(rows))
	for _, r := range rows {
		tickets = append(tickets, r.toDetails())
	}
	return tickets
}

type messageRow struct {
	ID          int64     `db:"id"`
	TicketID    int64     `db:"ticket_id"`
	SenderID    int64     `db:"sender_id"`
	SenderName  string    `db:"sender_name"`
	Message     string    `db:"message"`
	CreatedAt   time.Time `db:"created_at"`
	IsReadAdmin bool      `db:"is_read_admin"`
	IsReadUser  bool      `db:"is_read_user"`
}

func (r messageRow) toMessage() ticket.Message {
	m := ticket.Message(r)
	m.CreatedAt = m.CreatedAt.UTC()
	return m
}

type ticketRepository struct {
	db *sqlx.DB
}

var _ ticket.Repository = (*ticketRepository)(nil)

func NewTicketRepository(db *sqlx.DB) *ticketRepository {
	return &ticketRepository{db: db}
}

func (repo ticketRepository) CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	row := fromTicket(t)
	id, err := insert(ctx, repo.db, `INSERT INTO tickets (user_id, title, description, category, attachment_path,
		status, created_at, updated_at, completed_at, admin_note, assigned_admin_id) VALUES (:user_id, :title,
		:description, :category, :attachment_path, :status, :created_at, :updated_at, :completed_at, :admin_note,
		:assigned_admin_id) RETURNING id`, row)
	if err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "inserting ticket")
	}
	row.ID = id
	return row.toTicket(), nil
}

func (repo ticketRepository) SetAttachment(ctx context.Context, id int64, path string) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE tickets SET attachment_path = $2 WHERE id = $1", id, path)
	if err != nil {
		return errors.Wrap(err, "updating ticket attachment")
	}
	return checkAffected(res, ticket.ErrNotFound)
}

func (repo ticketRepository) DeleteTicket(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM tickets WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting ticket")
	}
	return checkAffected(res, ticket.ErrNotFound)
}

func (repo ticketRepository) GetTicket(ctx context.Context, id int64) (ticket.Details, error) {
	var row ticketRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+ticketDetailColumns+ticketJoins+" WHERE t.id = $1", id); err != nil {
		return ticket.Details{}, trapNoRowsErr(err, ticket.ErrNotFound, "getting ticket")
	}
	return row.toDetails(), nil
}

func (repo ticketRepository) QueryUserTickets(ctx context.Context, userID int64) ([]ticket.Details, error) {
	var rows []ticketRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+ticketDetailColumns+ticketJoins+" WHERE t.user_id = $1 ORDER BY t.created_at DESC, t.id DESC", userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user tickets")
	}
	return toDetailsSlice(rows), nil
}

func ticketQueryMods(filter ticket.AdminFilter) []qm.QueryMod {
	mods := []qm.QueryMod{
		qm.Select(ticketDetailColumns),
		qm.From("tickets t"),
		qm.InnerJoin("users o ON o.id = t.user_id"),
		qm.LeftOuterJoin("users a ON a.id = t.assigned_admin_id"),
	}
	if status, ok := filter.StatusFilter(); ok {
		mods = append(mods, qm.Where("t.status = ?", string(status)))
	}
	if filter.User != "" {
		mods = append(mods, qm.Where(`o.full_name ILIKE ? ESCAPE '\'`, containsPattern(filter.User)))
	}
	if filter.Admin != "" {
		mods = append(mods, qm.Where(`a.full_name ILIKE ? ESCAPE '\'`, containsPattern(filter.Admin)))
	}
	if filter.Title != "" {
		mods = append(mods, qm.Where(`t.title ILIKE ? ESCAPE '\'`, containsPattern(filter.Title)))
	}
	if filter.Year != "" {
		mods = append(mods, qm.Where("to_char(t.created_at AT TIME ZONE 'Asia/Jakarta', 'YYYY') = ?", filter.Year))
	}
	return append(mods, qm.OrderBy("t.created_at DESC, t.id DESC"))
}

func (repo ticketRepository) QueryTickets(ctx context.Context, filter ticket.AdminFilter) ([]ticket.Details, error) {
	var rows []ticketRow
	if err := newQuery(ticketQueryMods(filter)...).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "querying tickets")
	}
	return toDetailsSlice(rows), nil
}

func (repo ticketRepository) Summary(ctx context.Context, adminID int64) (ticket.Summary, error) {
	var s struct {
		Total      int `db:"total"`
		Open       int `db:"open"`
		InProgress int `db:"in_progress"`
		Resolved   int `db:"resolved"`
		Closed     int `db:"closed"`
		Unassigned int `db:"unassigned"`
		Mine       int `db:"mine"`
	}
	err := repo.db.GetContext(ctx, &s, `SELECT COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = $1) AS open,
		COUNT(*) FILTER (WHERE status = $2) AS in_progress,
		COUNT(*) FILTER (WHERE status = $3) AS resolved,
		COUNT(*) FILTER (WHERE status = $4) AS closed,
		COUNT(*) FILTER (WHERE assigned_admin_id IS NULL) AS unassigned,
		COUNT(*) FILTER (WHERE assigned_admin_id = $5) AS mine
		FROM tickets`,
		ticket.StatusOpen, ticket.StatusInProgress, ticket.StatusResolved, ticket.StatusClosed, adminID)
	if err != nil {
		return ticket.Summary{}, errors.Wrap(err, "summarizing tickets")
	}
	return ticket.Summary(s), nil
}

func (repo ticketRepository) UpdateTicket(ctx context.Context, id int64, fn func(*ticket.Ticket) error) (ticket.Ticket, error) {
	var updated ticket.Ticket
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var row ticketRow
		err := tx.GetContext(ctx, &row, "SELECT "+ticketColumns+" FROM tickets t WHERE t.id = $1 FOR UPDATE", id)
		if err != nil {
			return trapNoRowsErr(err, ticket.ErrNotFound, "locking ticket")
		}

		t := row.toTicket()
		if err = fn(&t); err != nil {
			return err
		}

		row = fromTicket(t)
		_, err = tx.NamedExecContext(ctx, `UPDATE tickets SET title = :title, description = :description,
			category = :category, attachment_path = :attachment_path, status = :status, updated_at = :updated_at,
			completed_at = :completed_at, admin_note = :admin_note, assigned_admin_id = :assigned_admin_id
			WHERE id = :id`, row)
		if err != nil {
			return errors.Wrap(err, "updating ticket")
		}
		updated = t
		return nil
	})
	return updated, err
}

func (repo ticketRepository) QueryMessages(ctx context.Context, ticketID int64) ([]ticket.Message, error) {
	var rows []messageRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT m.id, m.ticket_id, m.sender_id, u.full_name AS sender_name,
		m.message, m.created_at, m.is_read_admin, m.is_read_user FROM ticket_messages m
		JOIN users u ON u.id = m.sender_id WHERE m.ticket_id = $1 ORDER BY m.created_at, m.id`, ticketID)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]ticket.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.toMessage())
	}
	return msgs, nil
}

func (repo ticketRepository) CreateMessage(ctx context.Context, m ticket.Message) (ticket.Message, error) {
	row := messageRow(m)
	row.CreatedAt = row.CreatedAt.UTC()
	id, err := insert(ctx, repo.db, `INSERT INTO ticket_messages (ticket_id, sender_id, message, created_at,
		is_read_admin, is_read_user) VALUES (:ticket_id, :sender_id, :message, :created_at, :is_read_admin,
		:is_read_user) RETURNING id`, row)
	if err != nil {
		return ticket.Message{}, errors.Wrap(err, "inserting message")
	}
	row.ID = id
	return row.toMessage(), nil
}

func readColumn(adminSide bool) string {
	if adminSide {
		return "is_read_admin"
	}
	return "is_read_user"
}

func (repo ticketRepository) MarkRead(ctx context.Context, ticketID, readerID int64, adminSide bool) error {
	col := readColumn(adminSide)
	_, err := repo.db.ExecContext(ctx,
		"UPDATE ticket_messages SET "+col+" = TRUE WHERE ticket_id = $1 AND sender_id <> $2 AND NOT "+col,
		ticketID, readerID)
	return errors.Wrap(err, "marking messages read")
}

func (repo ticketRepository) CountUnread(ctx context.Context, ticketIDs []int64, readerID int64, adminSide bool) (map[int64]int, error) {
	counts := make(map[int64]int, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		TicketID int64 `db:"ticket_id"`
		Count    int   `db:"count"`
	}
	err := repo.db.SelectContext(ctx, &rows, `SELECT ticket_id, COUNT(*) AS count FROM ticket_messages
		WHERE ticket_id = ANY($1) AND sender_id <> $2 AND NOT `+readColumn(adminSide)+` GROUP BY ticket_id`,
		pq.Array(ticketIDs), readerID)
	if err != nil {
		return nil, errors.Wrap(err, "counting unread messages")
	}
	for _, r := range rows {
		counts[r.TicketID] = r.Count
	}
	return counts, nil
}
