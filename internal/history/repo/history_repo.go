package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/librarium-io/librarium/internal/history/entity"
	"github.com/librarium-io/librarium/pkg/utilities"
)

// HistoryRepo provides data access for the append-only lending ledger.
// It does not enforce open-loan uniqueness itself; the lending service's
// transaction guarantees at most one open entry per (book, member) pair.
type HistoryRepo struct {
	db *sqlx.DB
}

func NewHistoryRepo(db *sqlx.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// EnsureTable creates the history table if not exists (idempotent).
// book_id has no foreign key on purpose: books are hard-deleted and their
// ledger entries must survive them.
func (r *HistoryRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS history (
	id BIGINT PRIMARY KEY,
	book_id BIGINT NOT NULL,
	member_id BIGINT NOT NULL,
	issue_date TIMESTAMP NOT NULL,
	return_date TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_history_member ON history (member_id);
CREATE INDEX IF NOT EXISTS idx_history_open ON history (book_id, member_id, return_date);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Open appends a new ledger entry with a null return date.
func (r *HistoryRepo) Open(ctx context.Context, ext sqlx.ExtContext, bookID, memberID int64, at time.Time) (*entity.Entry, error) {
	e := &entity.Entry{
		ID:        utilities.NewID(),
		BookID:    bookID,
		MemberID:  memberID,
		IssueDate: at,
	}
	const q = `INSERT INTO history (id, book_id, member_id, issue_date, return_date)
		VALUES (?, ?, ?, ?, NULL)`
	if _, err := ext.ExecContext(ctx, ext.Rebind(q), e.ID, e.BookID, e.MemberID, e.IssueDate); err != nil {
		return nil, err
	}
	return e, nil
}

// Close sets the return date on the most recent open entry for the
// (book, member) pair. When no open entry exists it returns (nil, nil):
// a no-op, not an error.
func (r *HistoryRepo) Close(ctx context.Context, ext sqlx.ExtContext, bookID, memberID int64, at time.Time) (*entity.Entry, error) {
	const sel = `SELECT id, book_id, member_id, issue_date, return_date FROM history
		WHERE book_id = ? AND member_id = ? AND return_date IS NULL
		ORDER BY issue_date DESC LIMIT 1`
	var e entity.Entry
	if err := sqlx.GetContext(ctx, ext, &e, ext.Rebind(sel), bookID, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	const upd = `UPDATE history SET return_date = ? WHERE id = ?`
	if _, err := ext.ExecContext(ctx, ext.Rebind(upd), at, e.ID); err != nil {
		return nil, err
	}
	e.ReturnDate = &at
	return &e, nil
}

// ListAll returns every ledger entry, oldest first.
func (r *HistoryRepo) ListAll(ctx context.Context) ([]*entity.Entry, error) {
	const q = `SELECT id, book_id, member_id, issue_date, return_date FROM history ORDER BY id ASC`
	rows := []*entity.Entry{}
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListForMember returns the ledger entries of a single member, oldest first.
func (r *HistoryRepo) ListForMember(ctx context.Context, memberID int64) ([]*entity.Entry, error) {
	const q = `SELECT id, book_id, member_id, issue_date, return_date FROM history
		WHERE member_id = ? ORDER BY id ASC`
	rows := []*entity.Entry{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), memberID); err != nil {
		return nil, err
	}
	return rows, nil
}
