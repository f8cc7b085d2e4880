// Package setting holds the key/value switches admins can flip at runtime.
package setting

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/beasiswa/core"
)

const KeyAllowAdminSignup = "allow_admin_signup"

// defaults of settings missing from the store
var defaults = map[string]string{
	KeyAllowAdminSignup: "false",
}

var ErrNotFound = core.NewNotFoundError("setting not found")

type (
	Settings struct {
		AllowAdminSignup bool `json:"allow_admin_signup"`
	}

	UpdateSettings struct {
		AllowAdminSignup *bool `json:"allow_admin_signup" validate:"required"`
	}

	Repository interface {
		// GetSetting returns ErrNotFound for unknown keys.
		GetSetting(ctx context.Context, key string) (string, error)
		SetSetting(ctx context.Context, key, value string) error
	}

	Service struct {
		repo     Repository
		activity core.ActivityRecorder
	}
)

func (us UpdateSettings) Validate(validate *validator.Validate) error { return validate.Struct(us) }

func NewService(repo Repository, activity core.ActivityRecorder) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(activity, "activity"),
	).CheckAndPanic()

	return &Service{repo: repo, activity: activity}
}

func (svc *Service) get(ctx context.Context, key string) (string, error) {
	val, err := svc.repo.GetSetting(ctx, key)
	if err != nil {
		if core.IsNotFound(err) {
			return defaults[key], nil
		}
		return "", errors.Wrapf(err, "getting setting %q", key)
	}
	return val, nil
}

func (svc *Service) getBool(ctx context.Context, key string) (bool, error) {
	val, err := svc.get(ctx, key)
	if err != nil {
		return false, err
	}
	b, _ := strconv.ParseBool(val) // anything else is false
	return b, nil
}

func (svc *Service) AllowAdminSignup(ctx context.Context) (bool, error) {
	return svc.getBool(ctx, KeyAllowAdminSignup)
}

func (svc *Service) Get(ctx context.Context) (Settings, error) {
	allow, err := svc.AllowAdminSignup(ctx)
	if err != nil {
		return Settings{}, err
	}
	return Settings{AllowAdminSignup: allow}, nil
}

// Update saves the provided settings; `userID` is the acting admin (0 for the CLI).
func (svc *Service) Update(ctx context.Context, userID int64, data UpdateSettings) (Settings, error) {
	if data.AllowAdminSignup != nil {
		val := strconv.FormatBool(*data.AllowAdminSignup)
		if err := svc.repo.SetSetting(ctx, KeyAllowAdminSignup, val); err != nil {
			return Settings{}, errors.Wrap(err, "saving setting")
		}
		svc.activity.Record(ctx, userID, "admin_update_setting", fmt.Sprintf("%s=%s", KeyAllowAdminSignup, val))
	}
	return svc.Get(ctx)
}
