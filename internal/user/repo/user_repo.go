package repo

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/librarium-io/librarium/internal/user/entity"
)

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// The DDL sticks to types both SQLite and Postgres accept; IDs are
// generated app-side so no autoincrement column is needed.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, username, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q),
		u.ID, u.Username, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	return err
}

// GetByUsername returns the user with the given username or sql.ErrNoRows.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	const q = `SELECT id, username, password_hash, role, is_active, created_at, updated_at
		FROM users WHERE username = ?`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(q), username); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByID fetches any user row by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	const q = `SELECT id, username, password_hash, role, is_active, created_at, updated_at
		FROM users WHERE id = ?`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(q), id); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetMemberByID fetches a role-MEMBER row by id, active or not.
// The member-management surface never sees librarians.
func (r *UserRepo) GetMemberByID(ctx context.Context, id int64) (*entity.User, error) {
	const q = `SELECT id, username, password_hash, role, is_active, created_at, updated_at
		FROM users WHERE id = ? AND role = ?`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(q), id, entity.RoleMember); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListMembers returns member rows filtered by active flag, ordered by
// insertion (id ascending) and bounded by skip/limit.
func (r *UserRepo) ListMembers(ctx context.Context, active bool, skip, limit int) ([]*entity.User, error) {
	q, args, err := sq.Select("id", "username", "password_hash", "role", "is_active", "created_at", "updated_at").
		From("users").
		Where(sq.Eq{"role": entity.RoleMember, "is_active": active}).
		OrderBy("id ASC").
		Offset(uint64(skip)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows := []*entity.User{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateMember overwrites username/role and optionally the password hash
// of a member row. Returns the number of rows affected.
func (r *UserRepo) UpdateMember(ctx context.Context, id int64, username, role string, passwordHash *string) (int64, error) {
	b := sq.Update("users").
		Set("username", username).
		Set("role", role).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "role": entity.RoleMember})
	if passwordHash != nil {
		b = b.Set("password_hash", *passwordHash)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SoftDelete flips is_active to false for a member row. The row is never
// physically removed.
func (r *UserRepo) SoftDelete(ctx context.Context, id int64) (int64, error) {
	const q = `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ? AND role = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), false, time.Now().UTC(), id, entity.RoleMember)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
