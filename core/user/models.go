package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/beasiswa/core"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var Roles = []Role{
	{Name: "Student", Value: RoleUser},
	{Name: "Admin", Value: RoleAdmin},
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	StudentID    string    `json:"student_id"`
	Phone        string    `json:"phone"`
	Faculty      string    `json:"faculty"`
	Major        string    `json:"major"`
	Campus       string    `json:"campus"`
	Semester     string    `json:"semester"`
	Skills       string    `json:"skills"`
	ProfilePhoto string    `json:"profile_photo"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    null.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserWithActivity is a User along with the time of its latest logged activity.
type UserWithActivity struct {
	User
	LastActive null.Time `json:"last_active"`
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	FullName        string `json:"full_name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	StudentID       string `json:"student_id" validate:"max=64"`
	Phone           string `json:"phone" validate:"max=64"`
	Faculty         string `json:"faculty" validate:"max=255"`
	Major           string `json:"major" validate:"max=255"`
	Campus          string `json:"campus" validate:"max=255"`
	Semester        string `json:"semester" validate:"max=32"`
	RegisterAsAdmin bool   `json:"register_as_admin"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.StudentID = core.CleanString(nu.StudentID)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Faculty = core.CleanString(nu.Faculty)
	nu.Major = core.CleanString(nu.Major)
	nu.Campus = core.CleanString(nu.Campus)
	nu.Semester = core.CleanString(nu.Semester)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

// UpdateProfile defines what a User may change on their own profile. Empty fields are cleared, except FullName.
type UpdateProfile struct {
	FullName  string `json:"full_name" validate:"max=255"`
	StudentID string `json:"student_id" validate:"max=64"`
	Phone     string `json:"phone" validate:"max=64"`
	Faculty   string `json:"faculty" validate:"max=255"`
	Major     string `json:"major" validate:"max=255"`
	Campus    string `json:"campus" validate:"max=255"`
	Semester  string `json:"semester" validate:"max=32"`
	Skills    string `json:"skills" validate:"max=2000"`
}

func (up *UpdateProfile) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(up.FullName); name != "" {
		up.FullName = name
	} else {
		up.FullName = origUsr.FullName
	}
	up.StudentID = core.CleanString(up.StudentID)
	up.Phone = core.CleanString(up.Phone)
	up.Faculty = core.CleanString(up.Faculty)
	up.Major = core.CleanString(up.Major)
	up.Campus = core.CleanString(up.Campus)
	up.Semester = core.CleanString(up.Semester)
	up.Skills = core.CleanString(up.Skills)
	return validate.Struct(up)
}

func (up UpdateProfile) apply(usr *User) {
	usr.FullName = up.FullName
	usr.StudentID = up.StudentID
	usr.Phone = up.Phone
	usr.Faculty = up.Faculty
	usr.Major = up.Major
	usr.Campus = up.Campus
	usr.Semester = up.Semester
	usr.Skills = up.Skills
}

// AdminUpdateUser defines what an admin may change on any User.
// FullName, Email & Role are kept when empty; IsActive when nil; the password when empty.
type AdminUpdateUser struct {
	UpdateProfile
	Email           string `json:"email" validate:"omitempty,email,max=255"`
	Role            string `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (au *AdminUpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if email := core.CleanString(au.Email, true /* lower */); email != "" {
		au.Email = email
	} else {
		au.Email = origUsr.Email
	}
	if role := core.CleanString(au.Role, true /* lower */); role != "" {
		au.Role = role
	} else {
		au.Role = origUsr.Role
	}
	if err := au.UpdateProfile.Validate(origUsr, validate); err != nil {
		return err
	}
	if err := validate.Struct(au); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, au.Email, origUsr.ID)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// OrderingFields are the fields users may be ordered by.
var OrderingFields = []string{"id", "full_name", "email", "campus", "role", "is_active", "created_at", "last_login"}
