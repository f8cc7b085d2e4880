package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core/program"
)

const formColumns = "id, title, slug, icon, description, url, is_active, created_at, created_by"

type formRow struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Slug        string     `db:"slug"`
	Icon        string     `db:"icon"`
	Description string     `db:"description"`
	URL         string     `db:"url"`
	IsActive    bool       `db:"is_active"`
	CreatedAt   time.Time  `db:"created_at"`
	CreatedBy   null.Int64 `db:"created_by"`
}

func (r formRow) toForm() program.Form {
	f := program.Form(r)
	f.CreatedAt = f.CreatedAt.UTC()
	return f
}

type programRepository struct {
	db *sqlx.DB
}

var _ program.Repository = (*programRepository)(nil)

func NewProgramRepository(db *sqlx.DB) *programRepository {
	return &programRepository{db: db}
}

func (repo programRepository) CreateForm(ctx context.Context, f program.Form) (program.Form, error) {
	row := formRow(f)
	id, err := insert(ctx, repo.db, `INSERT INTO program_forms (title, slug, icon, description, url, is_active,
		created_at, created_by) VALUES (:title, :slug, :icon, :description, :url, :is_active, :created_at,
		:created_by) RETURNING id`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return program.Form{}, program.ErrSlugExists
		}
		return program.Form{}, errors.Wrap(err, "inserting form")
	}
	row.ID = id
	return row.toForm(), nil
}

func (repo programRepository) getForm(ctx context.Context, where string, arg interface{}) (program.Form, error) {
	var row formRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+formColumns+" FROM program_forms WHERE "+where, arg); err != nil {
		return program.Form{}, trapNoRowsErr(err, program.ErrNotFound, "getting form")
	}
	return row.toForm(), nil
}

func (repo programRepository) GetFormBySlug(ctx context.Context, slug string) (program.Form, error) {
	return repo.getForm(ctx, "slug = $1", slug)
}

func (repo programRepository) GetFormByID(ctx context.Context, id int64) (program.Form, error) {
	return repo.getForm(ctx, "id = $1", id)
}

func (repo programRepository) QueryForms(ctx context.Context, activeOnly bool) ([]program.Form, error) {
	q := "SELECT " + formColumns + " FROM program_forms"
	if activeOnly {
		q += " WHERE is_active"
	}
	var rows []formRow
	if err := repo.db.SelectContext(ctx, &rows, q+" ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, errors.Wrap(err, "querying forms")
	}
	forms := make([]program.Form, 0, len(rows))
	for _, r := range rows {
		forms = append(forms, r.toForm())
	}
	return forms, nil
}

func (repo programRepository) SetFormActive(ctx context.Context, id int64, active bool) (program.Form, error) {
	var row formRow
	err := repo.db.GetContext(ctx, &row,
		"UPDATE program_forms SET is_active = $2 WHERE id = $1 RETURNING "+formColumns, id, active)
	if err != nil {
		return program.Form{}, trapNoRowsErr(err, program.ErrNotFound, "updating form")
	}
	return row.toForm(), nil
}
