package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")
	errDeleteSelf           = core.NewPermissionError("you cannot delete your own account")
	errDemoteSelf           = core.NewPermissionError("you cannot remove your own admin rights or deactivate yourself")

	profilePhotoExts = []string{"jpg", "jpeg", "png"}
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int64) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName, User.Email or User.Campus.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]UserWithActivity, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id int64) error
	}

	// SettingsReader gives access to the portal settings that affect accounts.
	SettingsReader interface {
		AllowAdminSignup(ctx context.Context) (bool, error)
	}

	Service interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int64) error
		Register(ctx context.Context, nu NewUser) (User, error)
		// Create adds a User with the given role, bypassing the signup settings (admin CLI).
		Create(ctx context.Context, nu NewUser, role string) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		Logout(ctx context.Context, usr User)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]UserWithActivity, error)
		GetByID(ctx context.Context, id int64) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		UpdateProfile(ctx context.Context, usr User, data UpdateProfile) (User, error)
		SetProfilePhoto(ctx context.Context, usr User, photo core.Upload) (User, error)
		ProfilePhoto(ctx context.Context, usr User) (core.StoredFile, error)
		AdminUpdate(ctx context.Context, admin, usr User, data AdminUpdateUser) (User, error)
		Delete(ctx context.Context, admin User, id int64) error
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo     Repository
		settings SettingsReader
		activity core.ActivityRecorder
		files    core.FileStorage
		mailSvc  core.EmailService
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	settings SettingsReader,
	activity core.ActivityRecorder,
	files core.FileStorage,
	mailSvc core.EmailService,
	conf *core.Config,
) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(settings, "settings"),
		vala.IsNotNil(activity, "activity"),
		vala.IsNotNil(files, "files"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &service{
		repo:     repo,
		settings: settings,
		activity: activity,
		files:    files,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int64) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	role := RoleUser
	if nu.RegisterAsAdmin {
		allowed, err := svc.settings.AllowAdminSignup(ctx)
		if err != nil {
			return User{}, errors.Wrap(err, "reading admin signup setting")
		}
		if allowed {
			role = RoleAdmin
		}
	}

	usr, err := svc.Create(ctx, nu, role)
	if err != nil {
		return User{}, err
	}
	svc.activity.Record(ctx, usr.ID, "register", "Role="+usr.Role)
	return usr, nil
}

func (svc *service) Create(ctx context.Context, nu NewUser, role string) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Email:     core.CleanString(nu.Email, true /* lower */),
		FullName:  nu.FullName,
		StudentID: nu.StudentID,
		Phone:     nu.Phone,
		Faculty:   nu.Faculty,
		Major:     nu.Major,
		Campus:    nu.Campus,
		Semester:  nu.Semester,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	svc.activity.Record(ctx, usr.ID, "login", "")
	return usr, nil
}

func (svc *service) Logout(ctx context.Context, usr User) {
	svc.activity.Record(ctx, usr.ID, "logout", "")
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]UserWithActivity, error) {
	filter.Clean()
	users, err := svc.repo.QueryUsers(ctx, filter, ordering)
	return users, errors.Wrap(err, "querying users")
}

func (svc *service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) UpdateProfile(ctx context.Context, usr User, data UpdateProfile) (User, error) {
	data.apply(&usr)
	usr.UpdatedAt = time.Now().UTC()

	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "updating profile")
	}
	svc.activity.Record(ctx, usr.ID, "update_profile", "")
	return usr, nil
}

func (svc *service) SetProfilePhoto(ctx context.Context, usr User, photo core.Upload) (User, error) {
	if err := photo.Validate("photo", svc.conf.Uploads.MaxProfilePhotoSize, profilePhotoExts...); err != nil {
		return User{}, err
	}

	path := fmt.Sprintf("profiles/user_%d.%s", usr.ID, photo.Ext())
	if _, err := svc.files.Save(ctx, path, photo.Data); err != nil {
		return User{}, errors.Wrap(err, "saving profile photo")
	}
	// a previous photo with another extension is now stale
	if usr.ProfilePhoto != "" && usr.ProfilePhoto != path {
		_ = svc.files.Delete(ctx, usr.ProfilePhoto)
	}

	usr.ProfilePhoto = path
	usr.UpdatedAt = time.Now().UTC()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "updating profile photo")
	}
	svc.activity.Record(ctx, usr.ID, "update_profile_photo", "")
	return usr, nil
}

func (svc *service) ProfilePhoto(ctx context.Context, usr User) (core.StoredFile, error) {
	if usr.ProfilePhoto == "" {
		return core.StoredFile{}, core.NewNotFoundError("profile photo not found")
	}
	return svc.files.Read(ctx, usr.ProfilePhoto)
}

func (svc *service) AdminUpdate(ctx context.Context, admin, usr User, data AdminUpdateUser) (User, error) {
	if admin.ID == usr.ID && (data.Role != RoleAdmin || (data.IsActive != nil && !*data.IsActive)) {
		return User{}, errDemoteSelf
	}

	data.UpdateProfile.apply(&usr)
	usr.Email = data.Email
	usr.Role = data.Role
	if data.IsActive != nil {
		usr.IsActive = *data.IsActive
	}
	if data.Password != "" {
		if err := usr.SetPassword(data.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()

	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return User{}, errors.Wrap(err, "updating user")
	}
	svc.activity.Record(ctx, admin.ID, "admin_update_user", fmt.Sprintf("user_id=%d", usr.ID))
	return usr, nil
}

func (svc *service) Delete(ctx context.Context, admin User, id int64) error {
	// Say No to Suicide! admins cannot delete themselves
	if admin.ID == id {
		return errDeleteSelf
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteUser(ctx, usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if usr.ProfilePhoto != "" {
		_ = svc.files.Delete(ctx, usr.ProfilePhoto)
	}
	svc.activity.Record(ctx, admin.ID, "admin_delete_user", fmt.Sprintf("user_id=%d email=%s", usr.ID, usr.Email))
	return nil
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.IsActive {
		svc.sendPasswordResetMail(usr)
	}
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.FullName,
			"UID":   EncodeUID(usr),
			"Token": makeToken(usr, svc.conf.SecretKey),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalidErr := core.NewValidationError(errors.New("invalid token"), core.FieldError{Field: "token", Error: "invalid or expired token"})

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalidErr
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return invalidErr
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(usr, data.Token, svc.conf.SecretKey, svc.conf.PasswordResetTimeoutDelta); err != nil {
		return invalidErr
	}

	if _, err = svc.SetPassword(ctx, usr, data.Password); err != nil {
		return err
	}
	svc.activity.Record(ctx, usr.ID, "password_reset", "")
	return nil
}
