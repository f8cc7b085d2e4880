package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/beasiswa/core/portfolio"
	"github.com/trezcool/beasiswa/core/user"
)

type portfolioRepository struct {
	db *DB
}

var _ portfolio.Repository = (*portfolioRepository)(nil)

func NewPortfolioRepository(db *DB) *portfolioRepository {
	return &portfolioRepository{db: db}
}

func (repo *portfolioRepository) CreateRecord(_ context.Context, rec portfolio.Record) (portfolio.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[rec.UserID]; !ok {
		return portfolio.Record{}, user.ErrNotFound
	}
	rec.ID = repo.db.nextID(tableRecords)
	rec.FileData = append([]byte(nil), rec.FileData...)
	repo.db.records[rec.ID] = &rec
	return rec, nil
}

func (repo *portfolioRepository) GetRecord(_ context.Context, id int64) (portfolio.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.records[id]; ok {
		return *rec, nil
	}
	return portfolio.Record{}, portfolio.ErrNotFound
}

// withoutFile mirrors the listings of the sql store, which never load the file data.
func withoutFile(rec portfolio.Record) portfolio.Record {
	rec.FileData = nil
	return rec
}

func (repo *portfolioRepository) QueryUserRecords(_ context.Context, userID int64) ([]portfolio.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]portfolio.Record, 0)
	for _, rec := range repo.db.records {
		if rec.UserID == userID {
			records = append(records, withoutFile(*rec))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Year != records[j].Year {
			return records[i].Year > records[j].Year
		}
		return newer(records[i].CreatedAt, records[i].ID, records[j].CreatedAt, records[j].ID)
	})
	return records, nil
}

func (repo *portfolioRepository) DeleteRecord(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.records[id]; !ok {
		return portfolio.ErrNotFound
	}
	delete(repo.db.records, id)
	return nil
}

func (repo *portfolioRepository) QueryRecords(_ context.Context, filter portfolio.RawDataFilter) ([]portfolio.RecordWithOwner, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]portfolio.RecordWithOwner, 0)
	for _, rec := range repo.db.records {
		if (filter.Year != "" && rec.Year != filter.Year) || (filter.Type != "" && rec.Type != filter.Type) {
			continue
		}
		owner, ok := repo.db.users[rec.UserID]
		if !ok {
			continue
		}
		records = append(records, portfolio.RecordWithOwner{
			Record:      withoutFile(*rec),
			OwnerName:   owner.FullName,
			OwnerCampus: owner.Campus,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return newer(records[i].CreatedAt, records[i].ID, records[j].CreatedAt, records[j].ID)
	})
	return records, nil
}

func (repo *portfolioRepository) CountRecords(_ context.Context) (portfolio.Totals, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var totals portfolio.Totals
	for _, rec := range repo.db.records {
		totals.Records++
		switch rec.Type {
		case portfolio.TypeAchievement:
			totals.Achievements++
		case portfolio.TypeActivity:
			totals.Activities++
		}
	}
	return totals, nil
}

func (repo *portfolioRepository) CountUsersByRole(_ context.Context) (map[string]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, usr := range repo.db.users {
		counts[usr.Role]++
	}
	return counts, nil
}

func (repo *portfolioRepository) TopStudents(_ context.Context, recordType string, limit int) ([]portfolio.RankedStudent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[int64]int)
	for _, rec := range repo.db.records {
		if rec.Type == recordType {
			counts[rec.UserID]++
		}
	}

	ranked := make([]portfolio.RankedStudent, 0, len(counts))
	for id, n := range counts {
		usr, ok := repo.db.users[id]
		if !ok || usr.Role != user.RoleUser {
			continue
		}
		ranked = append(ranked, portfolio.RankedStudent{UserID: id, FullName: usr.FullName, Campus: usr.Campus, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].FullName < ranked[j].FullName
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (repo *portfolioRepository) LatestStudentSkills(_ context.Context, limit int) ([]portfolio.StudentSkills, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if usr.Role == user.RoleUser && usr.Skills != "" {
			students = append(students, *usr)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		return newer(students[i].CreatedAt, students[i].ID, students[j].CreatedAt, students[j].ID)
	})
	if len(students) > limit {
		students = students[:limit]
	}

	skills := make([]portfolio.StudentSkills, 0, len(students))
	for _, usr := range students {
		skills = append(skills, portfolio.StudentSkills{UserID: usr.ID, FullName: usr.FullName, Campus: usr.Campus, Skills: usr.Skills})
	}
	return skills, nil
}
