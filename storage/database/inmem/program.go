package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/beasiswa/core/program"
)

type programRepository struct {
	db *DB
}

var _ program.Repository = (*programRepository)(nil)

func NewProgramRepository(db *DB) *programRepository {
	return &programRepository{db: db}
}

func (repo *programRepository) CreateForm(_ context.Context, f program.Form) (program.Form, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, form := range repo.db.forms {
		if form.Slug == f.Slug {
			return program.Form{}, program.ErrSlugExists
		}
	}
	f.ID = repo.db.nextID(tableForms)
	repo.db.forms[f.ID] = &f
	return f, nil
}

func (repo *programRepository) GetFormBySlug(_ context.Context, slug string) (program.Form, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, f := range repo.db.forms {
		if f.Slug == slug {
			return *f, nil
		}
	}
	return program.Form{}, program.ErrNotFound
}

func (repo *programRepository) GetFormByID(_ context.Context, id int64) (program.Form, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if f, ok := repo.db.forms[id]; ok {
		return *f, nil
	}
	return program.Form{}, program.ErrNotFound
}

func (repo *programRepository) QueryForms(_ context.Context, activeOnly bool) ([]program.Form, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	forms := make([]program.Form, 0, len(repo.db.forms))
	for _, f := range repo.db.forms {
		if !activeOnly || f.IsActive {
			forms = append(forms, *f)
		}
	}
	sort.Slice(forms, func(i, j int) bool {
		return newer(forms[i].CreatedAt, forms[i].ID, forms[j].CreatedAt, forms[j].ID)
	})
	return forms, nil
}

func (repo *programRepository) SetFormActive(_ context.Context, id int64, active bool) (program.Form, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	f, ok := repo.db.forms[id]
	if !ok {
		return program.Form{}, program.ErrNotFound
	}
	f.IsActive = active
	return *f, nil
}
