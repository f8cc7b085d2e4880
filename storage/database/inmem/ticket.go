package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/ticket"
	"github.com/trezcool/beasiswa/core/user"
)

type ticketRepository struct {
	db *DB
}

var _ ticket.Repository = (*ticketRepository)(nil)

func NewTicketRepository(db *DB) *ticketRepository {
	return &ticketRepository{db: db}
}

func (repo *ticketRepository) details(t ticket.Ticket) ticket.Details {
	d := ticket.Details{Ticket: t}
	if owner, ok := repo.db.users[t.UserID]; ok {
		d.OwnerName = owner.FullName
		d.OwnerEmail = owner.Email
	}
	if t.AssignedAdminID.Valid {
		if admin, ok := repo.db.users[t.AssignedAdminID.Int64]; ok {
			d.AdminName = null.StringFrom(admin.FullName)
		}
	}
	return d
}

func sortTickets(tickets []ticket.Details) {
	sort.Slice(tickets, func(i, j int) bool {
		return newer(tickets[i].CreatedAt, tickets[i].ID, tickets[j].CreatedAt, tickets[j].ID)
	})
}

func (repo *ticketRepository) CreateTicket(_ context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[t.UserID]; !ok {
		return ticket.Ticket{}, user.ErrNotFound
	}
	t.ID = repo.db.nextID(tableTickets)
	repo.db.tickets[t.ID] = &t
	return t, nil
}

func (repo *ticketRepository) SetAttachment(_ context.Context, id int64, path string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, ok := repo.db.tickets[id]
	if !ok {
		return ticket.ErrNotFound
	}
	t.AttachmentPath = null.StringFrom(path)
	return nil
}

func (repo *ticketRepository) DeleteTicket(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tickets[id]; !ok {
		return ticket.ErrNotFound
	}
	delete(repo.db.tickets, id)
	for msgID, m := range repo.db.messages {
		if m.TicketID == id {
			delete(repo.db.messages, msgID)
		}
	}
	return nil
}

func (repo *ticketRepository) GetTicket(_ context.Context, id int64) (ticket.Details, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tickets[id]; ok {
		return repo.details(*t), nil
	}
	return ticket.Details{}, ticket.ErrNotFound
}

func (repo *ticketRepository) QueryUserTickets(_ context.Context, userID int64) ([]ticket.Details, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tickets := make([]ticket.Details, 0)
	for _, t := range repo.db.tickets {
		if t.UserID == userID {
			tickets = append(tickets, repo.details(*t))
		}
	}
	sortTickets(tickets)
	return tickets, nil
}

func matchesTicket(d ticket.Details, filter ticket.AdminFilter) bool {
	if status, ok := filter.StatusFilter(); ok && d.Status != status {
		return false
	}
	if filter.User != "" && !strings.Contains(strings.ToLower(d.OwnerName), filter.User) {
		return false
	}
	if filter.Admin != "" && !strings.Contains(strings.ToLower(d.AdminName.String), filter.Admin) {
		return false
	}
	if filter.Title != "" && !strings.Contains(strings.ToLower(d.Title), filter.Title) {
		return false
	}
	if filter.Year != "" && d.CreatedAt.In(core.WIB).Format("2006") != filter.Year {
		return false
	}
	return true
}

func (repo *ticketRepository) QueryTickets(_ context.Context, filter ticket.AdminFilter) ([]ticket.Details, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tickets := make([]ticket.Details, 0)
	for _, t := range repo.db.tickets {
		if d := repo.details(*t); matchesTicket(d, filter) {
			tickets = append(tickets, d)
		}
	}
	sortTickets(tickets)
	return tickets, nil
}

func (repo *ticketRepository) Summary(_ context.Context, adminID int64) (ticket.Summary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var s ticket.Summary
	for _, t := range repo.db.tickets {
		s.Total++
		switch t.Status {
		case ticket.StatusOpen:
			s.Open++
		case ticket.StatusInProgress:
			s.InProgress++
		case ticket.StatusResolved:
			s.Resolved++
		case ticket.StatusClosed:
			s.Closed++
		}
		if !t.AssignedAdminID.Valid {
			s.Unassigned++
		} else if t.AssignedAdminID.Int64 == adminID {
			s.Mine++
		}
	}
	return s, nil
}

func (repo *ticketRepository) UpdateTicket(_ context.Context, id int64, fn func(*ticket.Ticket) error) (ticket.Ticket, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.tickets[id]
	if !ok {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	t := *orig
	if err := fn(&t); err != nil {
		return ticket.Ticket{}, err
	}
	repo.db.tickets[id] = &t
	return t, nil
}

func (repo *ticketRepository) QueryMessages(_ context.Context, ticketID int64) ([]ticket.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	msgs := make([]ticket.Message, 0)
	for _, m := range repo.db.messages {
		if m.TicketID == ticketID {
			msg := *m
			msg.SenderName = repo.db.userName(m.SenderID)
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		return !newer(msgs[i].CreatedAt, msgs[i].ID, msgs[j].CreatedAt, msgs[j].ID)
	})
	return msgs, nil
}

func (repo *ticketRepository) CreateMessage(_ context.Context, m ticket.Message) (ticket.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tickets[m.TicketID]; !ok {
		return ticket.Message{}, ticket.ErrNotFound
	}
	m.ID = repo.db.nextID(tableMessages)
	m.SenderName = repo.db.userName(m.SenderID)
	repo.db.messages[m.ID] = &m
	return m, nil
}

func (repo *ticketRepository) MarkRead(_ context.Context, ticketID, readerID int64, adminSide bool) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, m := range repo.db.messages {
		if m.TicketID != ticketID || m.SenderID == readerID {
			continue
		}
		if adminSide {
			m.IsReadAdmin = true
		} else {
			m.IsReadUser = true
		}
	}
	return nil
}

func (repo *ticketRepository) CountUnread(_ context.Context, ticketIDs []int64, readerID int64, adminSide bool) (map[int64]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[int64]int, len(ticketIDs))
	for _, m := range repo.db.messages {
		if m.SenderID == readerID || !containsID(ticketIDs, m.TicketID) {
			continue
		}
		if (adminSide && !m.IsReadAdmin) || (!adminSide && !m.IsReadUser) {
			counts[m.TicketID]++
		}
	}
	return counts, nil
}
