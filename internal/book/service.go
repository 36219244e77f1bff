package book

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/librarium-io/librarium/internal/book/entity"
	bookrepo "github.com/librarium-io/librarium/internal/book/repo"
	"github.com/librarium-io/librarium/pkg/utilities"
)

var ErrNotFound = errors.New("book not found")

// Service encapsulates catalog CRUD. Borrow/return transitions live in the
// lending service, not here.
type Service struct {
	db   *sqlx.DB
	repo *bookrepo.BookRepo
}

func NewService(db *sqlx.DB, r *bookrepo.BookRepo) *Service {
	if r == nil {
		r = bookrepo.NewBookRepo(db)
	}
	return &Service{db: db, repo: r}
}

// Create adds a book to the catalog, AVAILABLE with no borrower.
func (s *Service) Create(ctx context.Context, title, author string) (*entity.Book, error) {
	now := time.Now().UTC()
	b := &entity.Book{
		ID:        utilities.NewID(),
		Title:     title,
		Author:    author,
		Status:    entity.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns a single book.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Book, error) {
	b, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// Update applies only the provided fields and returns the updated book.
// Setting status directly here bypasses the lending state machine; that is
// the administrative escape hatch and it can desynchronize borrower_id.
func (s *Service) Update(ctx context.Context, id int64, title, author, status *string) (*entity.Book, error) {
	rows, err := s.repo.UpdateFields(ctx, id, title, author, status)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, s.db, id)
}

// Delete physically removes a book and returns its last snapshot. Ledger
// entries referencing the book stay behind.
func (s *Service) Delete(ctx context.Context, id int64) (*entity.Book, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns books bounded by skip/limit, insertion order.
func (s *Service) List(ctx context.Context, skip, limit int) ([]*entity.Book, error) {
	return s.repo.List(ctx, skip, limit)
}

// ListAvailable returns books currently open for borrowing.
func (s *Service) ListAvailable(ctx context.Context) ([]*entity.Book, error) {
	return s.repo.ListByStatus(ctx, entity.StatusAvailable)
}
