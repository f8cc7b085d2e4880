package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/beasiswa/core/portfolio"
)

// recordColumns excludes the file data
const recordColumns = `r.id, r.user_id, r.record_type, r.title, r.level, r.year, r.organizer, r.description,
	r.file_name, r.file_mime, r.file_size, r.created_at`

type recordRow struct {
	ID          int64       `db:"id" boil:"id"`
	UserID      int64       `db:"user_id" boil:"user_id"`
	Type        string      `db:"record_type" boil:"record_type"`
	Title       string      `db:"title" boil:"title"`
	Level       string      `db:"level" boil:"level"`
	Year        string      `db:"year" boil:"year"`
	Organizer   string      `db:"organizer" boil:"organizer"`
	Description string      `db:"description" boil:"description"`
	FileName    null.String `db:"file_name" boil:"file_name"`
	FileMIME    null.String `db:"file_mime" boil:"file_mime"`
	FileSize    null.Int64  `db:"file_size" boil:"file_size"`
	FileData    []byte      `db:"file_data" boil:"file_data"`
	CreatedAt   time.Time   `db:"created_at" boil:"created_at"`
	OwnerName   string      `db:"owner_name" boil:"owner_name"`
	OwnerCampus string      `db:"owner_campus" boil:"owner_campus"`
}

func (r recordRow) toRecord() portfolio.Record {
	return portfolio.Record{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        r.Type,
		Title:       r.Title,
		Level:       r.Level,
		Year:        r.Year,
		Organizer:   r.Organizer,
		Description: r.Description,
		FileName:    r.FileName,
		FileMIME:    r.FileMIME,
		FileSize:    r.FileSize,
		FileData:    r.FileData,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type rankedRow struct {
	UserID   int64  `db:"user_id" boil:"user_id"`
	FullName string `db:"full_name" boil:"full_name"`
	Campus   string `db:"campus" boil:"campus"`
	Count    int    `db:"count" boil:"count"`
	Skills   string `db:"skills" boil:"skills"`
}

type portfolioRepository struct {
	db *sqlx.DB
}

var _ portfolio.Repository = (*portfolioRepository)(nil)

func NewPortfolioRepository(db *sqlx.DB) *portfolioRepository {
	return &portfolioRepository{db: db}
}

func (repo portfolioRepository) CreateRecord(ctx context.Context, rec portfolio.Record) (portfolio.Record, error) {
	row := recordRow{
		UserID:      rec.UserID,
		Type:        rec.Type,
		Title:       rec.Title,
		Level:       rec.Level,
		Year:        rec.Year,
		Organizer:   rec.Organizer,
		Description: rec.Description,
		FileName:    rec.FileName,
		FileMIME:    rec.FileMIME,
		FileSize:    rec.FileSize,
		FileData:    rec.FileData,
		CreatedAt:   rec.CreatedAt.UTC(),
	}
	id, err := insert(ctx, repo.db, `INSERT INTO student_records (user_id, record_type, title, level, year,
		organizer, description, file_name, file_mime, file_size, file_data, created_at)
		VALUES (:user_id, :record_type, :title, :level, :year, :organizer, :description, :file_name, :file_mime,
		:file_size, :file_data, :created_at) RETURNING id`, row)
	if err != nil {
		return portfolio.Record{}, errors.Wrap(err, "inserting record")
	}
	row.ID = id
	return row.toRecord(), nil
}

func (repo portfolioRepository) GetRecord(ctx context.Context, id int64) (portfolio.Record, error) {
	var row recordRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+recordColumns+", r.file_data FROM student_records r WHERE r.id = $1", id)
	if err != nil {
		return portfolio.Record{}, trapNoRowsErr(err, portfolio.ErrNotFound, "getting record")
	}
	return row.toRecord(), nil
}

func (repo portfolioRepository) QueryUserRecords(ctx context.Context, userID int64) ([]portfolio.Record, error) {
	var rows []recordRow
	err := repo.db.SelectContext(ctx, &rows, "SELECT "+recordColumns+` FROM student_records r
		WHERE r.user_id = $1 ORDER BY r.year DESC, r.created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user records")
	}
	records := make([]portfolio.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}

func (repo portfolioRepository) DeleteRecord(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM student_records WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting record")
	}
	return checkAffected(res, portfolio.ErrNotFound)
}

func recordQueryMods(filter portfolio.RawDataFilter) []qm.QueryMod {
	mods := []qm.QueryMod{
		qm.Select(recordColumns, "u.full_name AS owner_name", "u.campus AS owner_campus"),
		qm.From("student_records r"),
		qm.InnerJoin("users u ON u.id = r.user_id"),
	}
	if filter.Year != "" {
		mods = append(mods, qm.Where("r.year = ?", filter.Year))
	}
	if filter.Type != "" {
		mods = append(mods, qm.Where("r.record_type = ?", filter.Type))
	}
	return append(mods, qm.OrderBy("r.created_at DESC"))
}

func (repo portfolioRepository) QueryRecords(ctx context.Context, filter portfolio.RawDataFilter) ([]portfolio.RecordWithOwner, error) {
	var rows []recordRow
	if err := newQuery(recordQueryMods(filter)...).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	records := make([]portfolio.RecordWithOwner, 0, len(rows))
	for _, r := range rows {
		records = append(records, portfolio.RecordWithOwner{Record: r.toRecord(), OwnerName: r.OwnerName, OwnerCampus: r.OwnerCampus})
	}
	return records, nil
}

func (repo portfolioRepository) CountRecords(ctx context.Context) (portfolio.Totals, error) {
	var totals struct {
		Records      int `db:"records"`
		Achievements int `db:"achievements"`
		Activities   int `db:"activities"`
	}
	err := repo.db.GetContext(ctx, &totals, `SELECT COUNT(*) AS records,
		COUNT(*) FILTER (WHERE record_type = $1) AS achievements,
		COUNT(*) FILTER (WHERE record_type = $2) AS activities
		FROM student_records`, portfolio.TypeAchievement, portfolio.TypeActivity)
	if err != nil {
		return portfolio.Totals{}, errors.Wrap(err, "counting records")
	}
	return portfolio.Totals(totals), nil
}

func (repo portfolioRepository) CountUsersByRole(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Role  string `db:"role"`
		Count int    `db:"count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, "SELECT role, COUNT(*) AS count FROM users GROUP BY role"); err != nil {
		return nil, errors.Wrap(err, "counting users")
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Role] = r.Count
	}
	return counts, nil
}

func (repo portfolioRepository) TopStudents(ctx context.Context, recordType string, limit int) ([]portfolio.RankedStudent, error) {
	var rows []rankedRow
	err := newQuery(
		qm.Select("u.id AS user_id", "u.full_name", "u.campus", "COUNT(r.id) AS count"),
		qm.From("student_records r"),
		qm.InnerJoin("users u ON u.id = r.user_id"),
		qm.Where("u.role = ?", "user"),
		qm.Where("r.record_type = ?", recordType),
		qm.GroupBy("u.id"),
		qm.OrderBy("count DESC, u.full_name ASC"),
		qm.Limit(limit),
	).Bind(ctx, repo.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "ranking students")
	}
	ranked := make([]portfolio.RankedStudent, 0, len(rows))
	for _, r := range rows {
		ranked = append(ranked, portfolio.RankedStudent{UserID: r.UserID, FullName: r.FullName, Campus: r.Campus, Count: r.Count})
	}
	return ranked, nil
}

func (repo portfolioRepository) LatestStudentSkills(ctx context.Context, limit int) ([]portfolio.StudentSkills, error) {
	var rows []rankedRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT id AS user_id, full_name, campus, skills FROM users
		WHERE role = 'user' AND skills <> '' ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying student skills")
	}
	skills := make([]portfolio.StudentSkills, 0, len(rows))
	for _, r := range rows {
		skills = append(skills, portfolio.StudentSkills{UserID: r.UserID, FullName: r.FullName, Campus: r.Campus, Skills: r.Skills})
	}
	return skills, nil
}
