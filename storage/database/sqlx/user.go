package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

type userRow struct {
	ID                 string         `db:"id"`
	Email              string         `db:"email"`
	FullName           sql.NullString `db:"full_name"`
	Phone              sql.NullString `db:"phone"`
	AvatarURL          sql.NullString `db:"avatar_url"`
	Role               sql.NullString `db:"role"`
	IsActive           sql.NullBool   `db:"is_active"`
	IsDeleted          sql.NullBool   `db:"is_deleted"`
	MustChangePassword bool           `db:"must_change_password"`
	PasswordHash       []byte         `db:"password_hash"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          sql.NullTime   `db:"updated_at"`
	LastLogin          sql.NullTime   `db:"last_login"`
}

func (r userRow) toModel() user.User {
	return user.User{
		ID:                 r.ID,
		Email:              r.Email,
		FullName:           r.FullName.String,
		Phone:              r.Phone.String,
		AvatarURL:          r.AvatarURL.String,
		Role:               r.Role.String,
		IsActive:           r.IsActive.Bool,
		IsDeleted:          r.IsDeleted.Bool,
		MustChangePassword: r.MustChangePassword,
		PasswordHash:       r.PasswordHash,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt.Time,
		LastLogin:          r.LastLogin.Time,
	}
}

const userSelect = `
SELECT u.id, u.email, u.password_hash, u.must_change_password, u.last_login, u.created_at,
       p.full_name, p.phone, p.avatar_url, p.role, p.is_active, p.is_deleted, p.updated_at
FROM users u
JOIN profiles p ON p.user_id = u.id`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pqStringArray(ids))
	}
	query += `)`

	var exists bool
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateIdentity(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, must_change_password, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		usr.ID, usr.Email, usr.PasswordHash, usr.MustChangePassword, usr.CreatedAt.UTC(),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user identity")
	}
	return usr, nil
}

func (repo userRepository) CreateProfile(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO profiles (user_id, full_name, phone, avatar_url, role, is_active, is_deleted, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		usr.ID, usr.FullName, usr.Phone, usr.AvatarURL, usr.Role, usr.IsActive, usr.IsDeleted, usr.UpdatedAt.UTC(),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user profile")
	}
	return usr, nil
}

func (repo userRepository) DeleteIdentity(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting user identity")
	}
	return nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	var err error
	e := ext(repo.db, exec)

	if filter.ID != "" {
		if _, err = uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		err = sqlx.GetContext(ctx, e, &row, userSelect+` WHERE u.id = $1`, filter.ID)
	} else {
		err = sqlx.GetContext(ctx, e, &row, userSelect+` WHERE u.email = $1`, filter.Email)
	}
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return row.toModel(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	query := userSelect + ` WHERE p.is_deleted = FALSE`
	var args []interface{}
	arg := func(v interface{}) string { args = append(args, v); return placeholder(len(args)) }

	if filter != nil {
		if filter.Search != "" {
			ph := arg("%" + filter.Search + "%")
			query += ` AND (p.full_name ILIKE ` + ph + ` OR u.email ILIKE ` + ph + `)`
		}
		if filter.Role != "" {
			query += ` AND p.role = ` + arg(filter.Role)
		}
		if filter.IsActive != nil {
			query += ` AND p.is_active = ` + arg(*filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			query += ` AND u.created_at >= ` + arg(filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			query += ` AND u.created_at <= ` + arg(filter.CreatedTo.UTC())
		}
	}
	query += orderBy(ordering, "u.created_at DESC")

	var rows []userRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive, isDeleted *bool, exec ...core.DBExecutor) (user.User, error) {
	e := ext(repo.db, exec)

	if _, err := e.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, must_change_password = $3, last_login = $4 WHERE id = $1`,
		usr.ID, usr.PasswordHash, usr.MustChangePassword, nullTime(usr.LastLogin),
	); err != nil {
		return user.User{}, errors.Wrap(err, "updating user identity")
	}

	query := `UPDATE profiles SET full_name = $2, phone = $3, avatar_url = $4, updated_at = $5`
	args := []interface{}{usr.ID, usr.FullName, usr.Phone, usr.AvatarURL, usr.UpdatedAt.UTC()}
	if isActive != nil {
		args = append(args, *isActive)
		query += `, is_active = ` + placeholder(len(args))
	}
	if isDeleted != nil {
		args = append(args, *isDeleted)
		query += `, is_deleted = ` + placeholder(len(args))
	}
	query += ` WHERE user_id = $1`

	if _, err := e.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "updating user profile")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
}
