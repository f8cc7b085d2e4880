// Package portfolio manages the achievements & activities students record, and their admin reporting.
package portfolio

import (
	"context"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/user"
)

const (
	topStudentsLimit   = 5
	latestSkillsLimit  = 10
	exportSheetName    = "Portfolio"
	exportFilename     = "scholarship_portfolio.xlsx"
	exportCreatedStamp = "2006-01-02 15:04:05"
)

var (
	ErrNotFound     = core.NewNotFoundError("record not found")
	ErrFileNotFound = core.NewNotFoundError("attachment not found")
	errNotOwner     = core.NewPermissionError("you are not allowed to access this record")

	exportHeader = []string{"Name", "Campus", "Type", "Title", "Level/Role", "Year", "Organizer", "Created"}
)

type Repository interface {
	CreateRecord(ctx context.Context, r Record) (Record, error)
	// GetRecord returns the record along with its file data.
	GetRecord(ctx context.Context, id int64) (Record, error)
	// QueryUserRecords returns the records of a user without file data, by year then creation, newest first.
	QueryUserRecords(ctx context.Context, userID int64) ([]Record, error)
	DeleteRecord(ctx context.Context, id int64) error
	// QueryRecords returns the filtered records without file data, newest first.
	QueryRecords(ctx context.Context, filter RawDataFilter) ([]RecordWithOwner, error)
	CountRecords(ctx context.Context) (Totals, error)
	CountUsersByRole(ctx context.Context) (map[string]int, error)
	// TopStudents ranks students (role user) by number of records of a type.
	TopStudents(ctx context.Context, recordType string, limit int) ([]RankedStudent, error)
	// LatestStudentSkills returns the newest students who filled their skills.
	LatestStudentSkills(ctx context.Context, limit int) ([]StudentSkills, error)
}

type Service struct {
	repo     Repository
	activity core.ActivityRecorder
	conf     *core.Config
}

func NewService(repo Repository, activity core.ActivityRecorder, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(activity, "activity"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{repo: repo, activity: activity, conf: conf}
}

// MaxFileSize is the max size of a record's proof file.
func (svc *Service) MaxFileSize() int64 { return svc.conf.Uploads.MaxRecordFileSize }

func (svc *Service) Add(ctx context.Context, usr user.User, nr NewRecord) (Record, error) {
	rec := Record{
		UserID:      usr.ID,
		Type:        nr.Type,
		Title:       nr.Title,
		Level:       nr.Level,
		Year:        nr.Year,
		Organizer:   nr.Organizer,
		Description: nr.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if !nr.File.IsEmpty() {
		mime := nr.File.ContentType
		if mime == "" {
			mime = "application/octet-stream"
		}
		rec.FileName = null.StringFrom(core.SecureFilename(nr.File.Filename))
		rec.FileMIME = null.StringFrom(mime)
		rec.FileSize = null.Int64From(nr.File.Size())
		rec.FileData = nr.File.Data
	}

	rec, err := svc.repo.CreateRecord(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "creating record")
	}
	svc.activity.Record(ctx, usr.ID, "add_record", rec.Type+":"+rec.Title)
	return rec, nil
}

func (svc *Service) UserPortfolio(ctx context.Context, userID int64) (Portfolio, error) {
	records, err := svc.repo.QueryUserRecords(ctx, userID)
	if err != nil {
		return Portfolio{}, errors.Wrap(err, "querying user records")
	}

	p := Portfolio{Achievements: []Record{}, Activities: []Record{}}
	for _, r := range records {
		switch r.Type {
		case TypeAchievement:
			p.Achievements = append(p.Achievements, r)
		case TypeActivity:
			p.Activities = append(p.Activities, r)
		}
	}
	return p, nil
}

// getOwned returns a record the user owns; admins may access any record.
func (svc *Service) getOwned(ctx context.Context, usr user.User, id int64) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID != usr.ID && !usr.IsAdmin() {
		return Record{}, errNotOwner
	}
	return rec, nil
}

func (svc *Service) Delete(ctx context.Context, usr user.User, id int64) error {
	rec, err := svc.getOwned(ctx, usr, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteRecord(ctx, rec.ID); err != nil {
		return errors.Wrap(err, "deleting record")
	}
	svc.activity.Record(ctx, usr.ID, "delete_record", rec.Type+":"+rec.Title)
	return nil
}

// File returns a record whose proof file the user may download.
func (svc *Service) File(ctx context.Context, usr user.User, id int64) (Record, error) {
	rec, err := svc.getOwned(ctx, usr, id)
	if err != nil {
		return Record{}, err
	}
	if !rec.HasFile() {
		return Record{}, ErrFileNotFound
	}
	return rec, nil
}

func (svc *Service) Overview(ctx context.Context) (Overview, error) {
	var ov Overview

	roles, err := svc.repo.CountUsersByRole(ctx)
	if err != nil {
		return Overview{}, errors.Wrap(err, "counting users")
	}
	ov.Students = roles[user.RoleUser]
	ov.Admins = roles[user.RoleAdmin]

	if ov.Totals, err = svc.repo.CountRecords(ctx); err != nil {
		return Overview{}, errors.Wrap(err, "counting records")
	}
	if ov.TopAchievers, err = svc.repo.TopStudents(ctx, TypeAchievement, topStudentsLimit); err != nil {
		return Overview{}, errors.Wrap(err, "ranking achievers")
	}
	if ov.TopActive, err = svc.repo.TopStudents(ctx, TypeActivity, topStudentsLimit); err != nil {
		return Overview{}, errors.Wrap(err, "ranking active students")
	}
	if ov.Skills, err = svc.repo.LatestStudentSkills(ctx, latestSkillsLimit); err != nil {
		return Overview{}, errors.Wrap(err, "querying student skills")
	}
	return ov, nil
}

func (svc *Service) RawData(ctx context.Context, filter RawDataFilter) (RawData, error) {
	filter.Clean()
	records, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return RawData{}, errors.Wrap(err, "querying records")
	}
	totals, err := svc.repo.CountRecords(ctx)
	if err != nil {
		return RawData{}, errors.Wrap(err, "counting records")
	}
	if records == nil {
		records = []RecordWithOwner{}
	}
	return RawData{Totals: totals, Records: records}, nil
}

// Export returns the filtered records as a spreadsheet.
func (svc *Service) Export(ctx context.Context, filter RawDataFilter) (core.Sheet, error) {
	filter.Clean()
	records, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return core.Sheet{}, errors.Wrap(err, "querying records")
	}

	sheet := core.Sheet{Name: exportSheetName, Filename: exportFilename, Header: exportHeader}
	for _, r := range records {
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.In(core.WIB).Format(exportCreatedStamp)
		}
		sheet.Append(r.OwnerName, r.OwnerCampus, typeLabel(r.Type), r.Title, r.Level, r.Year, r.Organizer, created)
	}
	return sheet, nil
}

func typeLabel(t string) string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(t[:1]) + t[1:]
}
