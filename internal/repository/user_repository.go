package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factorytrack/factory-backend/internal/model"
)

const (
	userColumns  = "id, username, full_name, email, password_hash, is_active, created_at, updated_at"
	userColumnsU = "u.id, u.username, u.full_name, u.email, u.password_hash, u.is_active, u.created_at, u.updated_at"
)

// UserRepository handles user and user-role data access.
type UserRepository struct {
	db   DBTX
	pool TxBeginner
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: pool, pool: pool}
}

// InTx runs fn with a repository bound to one transaction.
func (r *UserRepository) InTx(ctx context.Context, fn func(UserStore) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return runInTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&UserRepository{db: tx})
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanUser(row pgx.Row, u *model.User) error {
	return row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListUsers retrieves a filtered page of users and the total match count.
func (r *UserRepository) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.RoleID > 0 {
		args = append(args, f.RoleID)
		conds = append(conds, `EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id AND ur.is_active AND ur.role_id = $`+strconv.Itoa(len(args))+`)`)
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conds = append(conds, `u.is_active = $`+strconv.Itoa(len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds, `(u.username ILIKE $`+n+` ESCAPE '\' OR u.full_name ILIKE $`+n+` ESCAPE '\' OR u.email ILIKE $`+n+` ESCAPE '\')`)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumnsU + ` FROM users u` + where +
		` ORDER BY u.username LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, f.PerPage, f.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id int) (*model.User, error) {
	u := &model.User{}
	if err := scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id), u); err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by their unique username.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	if err := scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username), u); err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (username, full_name, email, password_hash, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		u.Username, u.FullName, u.Email, u.PasswordHash, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return translate(err)
}

// UpdateUser persists a user's profile fields.
func (r *UserRepository) UpdateUser(ctx context.Context, u *model.User) error {
	err := r.db.QueryRow(ctx,
		`UPDATE users SET full_name = $1, email = $2, updated_at = NOW()
		 WHERE id = $3
		 RETURNING updated_at`,
		u.FullName, u.Email, u.ID,
	).Scan(&u.UpdatedAt)
	return translate(err)
}

// SetPassword replaces a user's password hash.
func (r *UserRepository) SetPassword(ctx context.Context, id int, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive activates or deactivates a user.
func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
