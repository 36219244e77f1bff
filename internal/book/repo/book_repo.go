package repo

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/librarium-io/librarium/internal/book/entity"
)

// BookRepo provides data access for the books table. Methods that take a
// sqlx.ExtContext can run inside a caller-owned transaction, which is how
// the lending service keeps its borrow/return transitions atomic.
type BookRepo struct {
	db *sqlx.DB
}

func NewBookRepo(db *sqlx.DB) *BookRepo { return &BookRepo{db: db} }

// EnsureTable creates the books table if not exists (idempotent).
func (r *BookRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS books (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'AVAILABLE',
	borrower_id BIGINT REFERENCES users(id),
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_books_status ON books (status);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new book row.
func (r *BookRepo) Create(ctx context.Context, b *entity.Book) error {
	const q = `INSERT INTO books (id, title, author, status, borrower_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q),
		b.ID, b.Title, b.Author, b.Status, b.BorrowerID, b.CreatedAt, b.UpdatedAt)
	return err
}

// GetByID fetches a book row through ext, which may be the DB handle or an
// open transaction.
func (r *BookRepo) GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*entity.Book, error) {
	const q = `SELECT id, title, author, status, borrower_id, created_at, updated_at
		FROM books WHERE id = ?`
	var row entity.Book
	if err := sqlx.GetContext(ctx, ext, &row, ext.Rebind(q), id); err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateFields applies only the provided fields to a book row and returns
// the number of rows affected.
func (r *BookRepo) UpdateFields(ctx context.Context, id int64, title, author, status *string) (int64, error) {
	b := sq.Update("books").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})
	if title != nil {
		b = b.Set("title", *title)
	}
	if author != nil {
		b = b.Set("author", *author)
	}
	if status != nil {
		b = b.Set("status", *status)
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

// Delete physically removes a book row and returns the rows affected.
func (r *BookRepo) Delete(ctx context.Context, id int64) (int64, error) {
	const q = `DELETE FROM books WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns books ordered by insertion, bounded by skip/limit.
func (r *BookRepo) List(ctx context.Context, skip, limit int) ([]*entity.Book, error) {
	q, args, err := sq.Select("id", "title", "author", "status", "borrower_id", "created_at", "updated_at").
		From("books").
		OrderBy("id ASC").
		Offset(uint64(skip)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows := []*entity.Book{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByStatus returns all books in the given availability state.
func (r *BookRepo) ListByStatus(ctx context.Context, status string) ([]*entity.Book, error) {
	const q = `SELECT id, title, author, status, borrower_id, created_at, updated_at
		FROM books WHERE status = ? ORDER BY id ASC`
	rows := []*entity.Book{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), status); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkBorrowed flips an AVAILABLE book to BORROWED for memberID. The status
// predicate makes the read-modify-write atomic: of two concurrent borrows
// only one can match the row. Returns false when no row changed.
func (r *BookRepo) MarkBorrowed(ctx context.Context, ext sqlx.ExtContext, bookID, memberID int64) (bool, error) {
	const q = `UPDATE books SET status = ?, borrower_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`
	res, err := ext.ExecContext(ctx, ext.Rebind(q),
		entity.StatusBorrowed, memberID, time.Now().UTC(), bookID, entity.StatusAvailable)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkReturned flips a book back to AVAILABLE, but only when it is
// currently borrowed by memberID. Returns false when no row changed.
func (r *BookRepo) MarkReturned(ctx context.Context, ext sqlx.ExtContext, bookID, memberID int64) (bool, error) {
	const q = `UPDATE books SET status = ?, borrower_id = NULL, updated_at = ?
		WHERE id = ? AND status = ? AND borrower_id = ?`
	res, err := ext.ExecContext(ctx, ext.Rebind(q),
		entity.StatusAvailable, time.Now().UTC(), bookID, entity.StatusBorrowed, memberID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
