package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/user"
)

const userColumns = `id, email, password_hash, full_name, student_id, phone, faculty, major, campus,
	semester, skills, profile_photo, role, is_active, created_at, updated_at, last_login`

type userRow struct {
	ID           int64     `db:"id" boil:"id"`
	Email        string    `db:"email" boil:"email"`
	PasswordHash []byte    `db:"password_hash" boil:"password_hash"`
	FullName     string    `db:"full_name" boil:"full_name"`
	StudentID    string    `db:"student_id" boil:"student_id"`
	Phone        string    `db:"phone" boil:"phone"`
	Faculty      string    `db:"faculty" boil:"faculty"`
	Major        string    `db:"major" boil:"major"`
	Campus       string    `db:"campus" boil:"campus"`
	Semester     string    `db:"semester" boil:"semester"`
	Skills       string    `db:"skills" boil:"skills"`
	ProfilePhoto string    `db:"profile_photo" boil:"profile_photo"`
	Role         string    `db:"role" boil:"role"`
	IsActive     bool      `db:"is_active" boil:"is_active"`
	CreatedAt    time.Time `db:"created_at" boil:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" boil:"updated_at"`
	LastLogin    null.Time `db:"last_login" boil:"last_login"`
	LastActive   null.Time `db:"-" boil:"last_active"` // only selected by QueryUsers
}

func fromUser(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		FullName:     usr.FullName,
		StudentID:    usr.StudentID,
		Phone:        usr.Phone,
		Faculty:      usr.Faculty,
		Major:        usr.Major,
		Campus:       usr.Campus,
		Semester:     usr.Semester,
		Skills:       usr.Skills,
		ProfilePhoto: usr.ProfilePhoto,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    usr.LastLogin,
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		StudentID:    r.StudentID,
		Phone:        r.Phone,
		Faculty:      r.Faculty,
		Major:        r.Major,
		Campus:       r.Campus,
		Semester:     r.Semester,
		Skills:       r.Skills,
		ProfilePhoto: r.ProfilePhoto,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int64) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1) AND NOT (id = ANY($2)))`,
		email, pq.Array(excludedIDs))
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := fromUser(usr)
	id, err := insert(ctx, repo.db, `INSERT INTO users (email, password_hash, full_name, student_id, phone, faculty,
		major, campus, semester, skills, profile_photo, role, is_active, created_at, updated_at, last_login)
		VALUES (:email, :password_hash, :full_name, :student_id, :phone, :faculty, :major, :campus, :semester,
		:skills, :profile_photo, :role, :is_active, :created_at, :updated_at, :last_login) RETURNING id`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	row.ID = id
	return row.toUser(), nil
}

func userQueryMods(filter user.QueryFilter, ordering []core.DBOrdering) []qm.QueryMod {
	mods := []qm.QueryMod{
		qm.Select(userColumns, "(SELECT MAX(a.created_at) FROM activity_logs a WHERE a.user_id = users.id) AS last_active"),
		qm.From("users"),
	}
	if filter.Search != "" {
		val := containsPattern(filter.Search)
		mods = append(mods, qm.Where(`(full_name ILIKE ? ESCAPE '\' OR email ILIKE ? ESCAPE '\' OR campus ILIKE ? ESCAPE '\')`, val, val, val))
	}
	if filter.Role != "" {
		mods = append(mods, qm.Where("role = ?", filter.Role))
	}
	if filter.IsActive != nil {
		mods = append(mods, qm.Where("is_active = ?", *filter.IsActive))
	}
	return append(mods, orderBy(ordering, "created_at DESC"))
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.UserWithActivity, error) {
	var rows []userRow
	if err := newQuery(userQueryMods(filter, ordering)...).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.UserWithActivity, 0, len(rows))
	for _, r := range rows {
		users = append(users, user.UserWithActivity{User: r.toUser(), LastActive: r.LastActive})
	}
	return users, nil
}

func (repo userRepository) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE "+where, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.toUser(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	return repo.getUser(ctx, "id = $1", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "lower(email) = lower($1)", email)
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := fromUser(usr)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE users SET email = :email, password_hash = :password_hash,
		full_name = :full_name, student_id = :student_id, phone = :phone, faculty = :faculty, major = :major,
		campus = :campus, semester = :semester, skills = :skills, profile_photo = :profile_photo, role = :role,
		is_active = :is_active, updated_at = :updated_at, last_login = :last_login WHERE id = :id`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return row.toUser(), nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return checkAffected(res, user.ErrNotFound)
}
