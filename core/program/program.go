// Package program serves the dashboard menu and the external forms admins publish for students.
package program

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/user"
)

const DefaultIcon = "📝"

var (
	ErrNotFound     = core.NewNotFoundError("form not found or inactive")
	ErrMenuNotFound = core.NewNotFoundError("menu not found")
	ErrSlugExists   = errors.New("slug is already used, pick another one")
)

type (
	Form struct {
		ID          int64      `json:"id"`
		Title       string     `json:"title"`
		Slug        string     `json:"slug"`
		Icon        string     `json:"icon"`
		Description string     `json:"description"`
		URL         string     `json:"url"`
		IsActive    bool       `json:"is_active"`
		CreatedAt   time.Time  `json:"created_at"`
		CreatedBy   null.Int64 `json:"created_by"`
	}

	NewForm struct {
		Title       string `json:"title" validate:"required,max=255"`
		Slug        string `json:"slug" validate:"required,max=128,slug"`
		Icon        string `json:"icon" validate:"max=16"`
		Description string `json:"description" validate:"max=5000"`
		URL         string `json:"url" validate:"omitempty,url"`
	}

	// Dashboard is what a student sees on the home page.
	Dashboard struct {
		Menu  []MenuItem `json:"menu"`
		Forms []Form     `json:"forms"`
	}

	Repository interface {
		// CreateForm returns ErrSlugExists when the slug is taken.
		CreateForm(ctx context.Context, f Form) (Form, error)
		GetFormBySlug(ctx context.Context, slug string) (Form, error)
		GetFormByID(ctx context.Context, id int64) (Form, error)
		// QueryForms returns the forms newest first.
		QueryForms(ctx context.Context, activeOnly bool) ([]Form, error)
		SetFormActive(ctx context.Context, id int64, active bool) (Form, error)
	}

	Service struct {
		repo     Repository
		activity core.ActivityRecorder
	}
)

func (nf *NewForm) Validate(validate *validator.Validate) error {
	nf.Title = core.CleanString(nf.Title)
	nf.Slug = core.CleanString(nf.Slug)
	nf.Icon = core.CleanString(nf.Icon)
	nf.Description = core.CleanString(nf.Description)
	nf.URL = core.CleanString(nf.URL)
	return validate.Struct(nf)
}

func NewService(repo Repository, activity core.ActivityRecorder) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(activity, "activity"),
	).CheckAndPanic()

	return &Service{repo: repo, activity: activity}
}

func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	menu, err := Menu()
	if err != nil {
		return Dashboard{}, err
	}
	forms, err := svc.repo.QueryForms(ctx, true /* activeOnly */)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying forms")
	}
	if forms == nil {
		forms = []Form{}
	}
	return Dashboard{Menu: menu, Forms: forms}, nil
}

func (svc *Service) OpenMenu(ctx context.Context, usr user.User, slug string) (MenuItem, error) {
	menu, err := Menu()
	if err != nil {
		return MenuItem{}, err
	}
	item, ok := findMenuItem(menu, slug)
	if !ok {
		return MenuItem{}, ErrMenuNotFound
	}
	svc.activity.Record(ctx, usr.ID, "open_menu:"+slug, item.Title)
	return item, nil
}

// OpenForm returns an active form; inactive forms are reported as not found.
func (svc *Service) OpenForm(ctx context.Context, usr user.User, slug string) (Form, error) {
	f, err := svc.repo.GetFormBySlug(ctx, slug)
	if err != nil {
		return Form{}, err
	}
	if !f.IsActive {
		return Form{}, ErrNotFound
	}
	svc.activity.Record(ctx, usr.ID, "open_form:"+slug, f.Title)
	return f, nil
}

func (svc *Service) Query(ctx context.Context) ([]Form, error) {
	forms, err := svc.repo.QueryForms(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "querying forms")
	}
	if forms == nil {
		forms = []Form{}
	}
	return forms, nil
}

func (svc *Service) Create(ctx context.Context, admin user.User, nf NewForm) (Form, error) {
	icon := nf.Icon
	if icon == "" {
		icon = DefaultIcon
	}
	f, err := svc.repo.CreateForm(ctx, Form{
		Title:       nf.Title,
		Slug:        nf.Slug,
		Icon:        icon,
		Description: nf.Description,
		URL:         nf.URL,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   null.Int64From(admin.ID),
	})
	if err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Form{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return Form{}, errors.Wrap(err, "creating form")
	}
	svc.activity.Record(ctx, admin.ID, "admin_add_form", f.Slug)
	return f, nil
}

func (svc *Service) SetActive(ctx context.Context, admin user.User, id int64, active bool) (Form, error) {
	f, err := svc.repo.SetFormActive(ctx, id, active)
	if err != nil {
		return Form{}, err
	}
	svc.activity.Record(ctx, admin.ID, "admin_update_form", fmt.Sprintf("%s:active=%t", f.Slug, f.IsActive))
	return f, nil
}
