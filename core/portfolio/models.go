package portfolio

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
)

// Record types
const (
	TypeAchievement = "achievement"
	TypeActivity    = "activity"
)

var (
	RecordTypes    = []string{TypeAchievement, TypeActivity}
	recordFileExts = []string{"jpg", "jpeg", "png", "pdf"}
)

// Record is an achievement or an activity a student adds to their portfolio, with an optional proof file.
type Record struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	Type        string      `json:"record_type"`
	Title       string      `json:"title"`
	Level       string      `json:"level"`
	Year        string      `json:"year"`
	Organizer   string      `json:"organizer"`
	Description string      `json:"description"`
	FileName    null.String `json:"file_name"`
	FileMIME    null.String `json:"file_mime"`
	FileSize    null.Int64  `json:"file_size"`
	FileData    []byte      `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (r Record) HasFile() bool { return r.FileName.Valid && len(r.FileData) > 0 }

type NewRecord struct {
	Type        string       `json:"record_type" form:"record_type" validate:"required,oneof=achievement activity"`
	Title       string       `json:"title" form:"title" validate:"required,max=255"`
	Level       string       `json:"level" form:"level" validate:"max=255"`
	Year        string       `json:"year" form:"year" validate:"omitempty,year"`
	Organizer   string       `json:"organizer" form:"organizer" validate:"max=255"`
	Description string       `json:"description" form:"description" validate:"max=5000"`
	File        *core.Upload `json:"-"`
}

func (nr *NewRecord) Validate(validate *validator.Validate, maxFileSize int64) error {
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	if nr.Type == "" {
		nr.Type = TypeAchievement
	}
	nr.Title = core.CleanString(nr.Title)
	nr.Level = core.CleanString(nr.Level)
	nr.Year = core.CleanString(nr.Year)
	nr.Organizer = core.CleanString(nr.Organizer)
	nr.Description = core.CleanString(nr.Description)

	if err := validate.Struct(nr); err != nil {
		return err
	}
	if !nr.File.IsEmpty() {
		return nr.File.Validate("file", maxFileSize, recordFileExts...)
	}
	return nil
}

// Portfolio is the records of a student, split by type.
type Portfolio struct {
	Achievements []Record `json:"achievements"`
	Activities   []Record `json:"activities"`
}

// RecordWithOwner is a Record along with the name & campus of its owner.
type RecordWithOwner struct {
	Record
	OwnerName   string `json:"owner_name"`
	OwnerCampus string `json:"owner_campus"`
}

type RawDataFilter struct {
	Year string `query:"year"`
	Type string `query:"record_type"`
}

func (f *RawDataFilter) Clean() {
	f.Year = core.CleanString(f.Year)
	f.Type = core.CleanString(f.Type, true /* lower */)
}

type Totals struct {
	Records      int `json:"records"`
	Achievements int `json:"achievements"`
	Activities   int `json:"activities"`
}

type RawData struct {
	Totals  Totals            `json:"totals"`
	Records []RecordWithOwner `json:"records"`
}

type RankedStudent struct {
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
	Campus   string `json:"campus"`
	Count    int    `json:"count"`
}

type StudentSkills struct {
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
	Campus   string `json:"campus"`
	Skills   string `json:"skills"`
}

// Overview is the admin dashboard summary.
type Overview struct {
	Students     int             `json:"students"`
	Admins       int             `json:"admins"`
	Totals       Totals          `json:"totals"`
	TopAchievers []RankedStudent `json:"top_achievers"`
	TopActive    []RankedStudent `json:"top_active"`
	Skills       []StudentSkills `json:"skills"`
}
