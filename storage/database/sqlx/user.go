package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
)

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{repository{db: db}}
}

const userColumns = `id, name, username, email, is_active, email_verified, roles,
	password_hash, otp_hash, otp_expires_at, created_at, updated_at, last_login`

type dbUser struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Username      string         `db:"username"`
	Email         string         `db:"email"`
	IsActive      bool           `db:"is_active"`
	EmailVerified bool           `db:"email_verified"`
	Roles         pq.StringArray `db:"roles"`
	PasswordHash  []byte         `db:"password_hash"`
	OTPHash       []byte         `db:"otp_hash"`
	OTPExpiresAt  null.Time      `db:"otp_expires_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	LastLogin     null.Time      `db:"last_login"`
}

func (du dbUser) toCore() user.User {
	usr := user.User{
		ID:            du.ID,
		Name:          du.Name,
		Username:      du.Username,
		Email:         du.Email,
		EmailVerified: du.EmailVerified,
		Roles:         du.Roles,
		PasswordHash:  du.PasswordHash,
		OTPHash:       du.OTPHash,
		OTPExpiresAt:  du.OTPExpiresAt.Time,
		CreatedAt:     du.CreatedAt,
		UpdatedAt:     du.UpdatedAt,
		LastLogin:     du.LastLogin.Time,
	}
	usr.SetActive(du.IsActive)
	return usr
}

func toDBUser(usr user.User) dbUser {
	return dbUser{
		ID:            usr.ID,
		Name:          usr.Name,
		Username:      usr.Username,
		Email:         usr.Email,
		IsActive:      usr.Active(),
		EmailVerified: usr.EmailVerified,
		Roles:         usr.Roles,
		PasswordHash:  usr.PasswordHash,
		OTPHash:       usr.OTPHash,
		OTPExpiresAt:  null.NewTime(usr.OTPExpiresAt, !usr.OTPExpiresAt.IsZero()),
		CreatedAt:     usr.CreatedAt,
		UpdatedAt:     usr.UpdatedAt,
		LastLogin:     null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := `SELECT COUNT(*) FROM users WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		query += ` AND NOT (id = ANY($3))`
		args = append(args, pq.Array(ids))
	}

	var count int
	if err := sqlx.GetContext(ctx, repo.ext(exec...), &count, query, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if count > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	du := toDBUser(usr)

	query := `
	INSERT INTO users (` + userColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := repo.ext(exec...).ExecContext(ctx, query,
		du.ID, du.Name, du.Username, du.Email, du.IsActive, du.EmailVerified, du.Roles,
		du.PasswordHash, du.OTPHash, du.OTPExpiresAt, du.CreatedAt, du.UpdatedAt, du.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE `
	var args []interface{}
	switch {
	case filter.ID != "":
		query += `id = $1`
		args = append(args, filter.ID)
	case filter.Username != "":
		query += `username = $1`
		args = append(args, filter.Username)
	case filter.Email != "":
		query += `email = $1`
		args = append(args, filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		uname := filter.UsernameOrEmail[0]
		email := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) > 1 {
			email = filter.UsernameOrEmail[1]
		}
		query += `(username = $1 OR email = $2)`
		args = append(args, uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var du dbUser
	if err := sqlx.GetContext(ctx, repo.ext(exec...), &du, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return du.toCore(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + strings.ToLower(filter.Search) + "%")
			conds = append(conds, fmt.Sprintf("(LOWER(name) LIKE %[1]s OR LOWER(username) LIKE %[1]s OR LOWER(email) LIKE %[1]s)", p))
		}
		if len(filter.Roles) > 0 {
			conds = append(conds, "roles && "+arg(pq.Array(filter.Roles)))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "created_at DESC")

	var dus []dbUser
	if err := sqlx.SelectContext(ctx, repo.ext(exec...), &dus, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(dus))
	for _, du := range dus {
		users = append(users, du.toCore())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	orig, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
	if err != nil {
		return user.User{}, err
	}

	// only save set fields
	if usr.Name == "" {
		usr.Name = orig.Name
	}
	if usr.Username == "" {
		usr.Username = orig.Username
	}
	if usr.Email == "" {
		usr.Email = orig.Email
	}
	if usr.IsActive == nil {
		usr.IsActive = orig.IsActive
	}
	if usr.Roles == nil {
		usr.Roles = orig.Roles
	}
	if usr.PasswordHash == nil {
		usr.PasswordHash = orig.PasswordHash
	}
	if !usr.EmailVerified {
		usr.EmailVerified = orig.EmailVerified
	}
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = orig.CreatedAt
	}
	if usr.LastLogin.IsZero() {
		usr.LastLogin = orig.LastLogin
	}
	du := toDBUser(usr)

	query := `
	UPDATE users
	SET name = $2, username = $3, email = $4, is_active = $5, email_verified = $6, roles = $7,
		password_hash = $8, otp_hash = $9, otp_expires_at = $10, updated_at = $11, last_login = $12
	WHERE id = $1`
	_, err = repo.ext(exec...).ExecContext(ctx, query,
		du.ID, du.Name, du.Username, du.Email, du.IsActive, du.EmailVerified, du.Roles,
		du.PasswordHash, du.OTPHash, du.OTPExpiresAt, du.UpdatedAt, du.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	updated, err := repo.UpdateUser(ctx, usr, exec...)
	if errors.Cause(err) == user.ErrNotFound {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return updated, err
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.ext(exec...).ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	count, _ := res.RowsAffected()
	return int(count), nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
