// Package lending implements the borrow/return state machine. It is the
// only component that moves books between AVAILABLE and BORROWED and the
// only one that opens or closes ledger entries, and it does both inside a
// single transaction.
package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	bookentity "github.com/librarium-io/librarium/internal/book/entity"
	bookrepo "github.com/librarium-io/librarium/internal/book/repo"
	historyrepo "github.com/librarium-io/librarium/internal/history/repo"
)

var (
	ErrBookNotFound     = errors.New("book not found")
	ErrBookNotAvailable = errors.New("book not available for borrowing")
	// ErrNotBorrowedByCaller covers both "not borrowed at all" and
	// "borrowed by someone else"; the guard UPDATE cannot tell them apart
	// without an extra read and the API response is the same 400.
	ErrNotBorrowedByCaller = errors.New("book not borrowed by caller")
)

type Service struct {
	db     *sqlx.DB
	books  *bookrepo.BookRepo
	ledger *historyrepo.HistoryRepo
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, books *bookrepo.BookRepo, ledger *historyrepo.HistoryRepo, logger *zap.SugaredLogger) *Service {
	return &Service{db: db, books: books, ledger: ledger, logger: logger}
}

// Borrow moves an AVAILABLE book to BORROWED(memberID) and opens a ledger
// entry. The conditional update on the book row is the concurrency guard:
// two concurrent borrows of the same book cannot both match
// status=AVAILABLE, so at most one transaction opens a loan.
func (s *Service) Borrow(ctx context.Context, bookID, memberID int64) (*bookentity.Book, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.books.MarkBorrowed(ctx, tx, bookID, memberID)
	if err != nil {
		return nil, fmt.Errorf("mark borrowed: %w", err)
	}
	if !ok {
		if _, err := s.books.GetByID(ctx, tx, bookID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrBookNotFound
			}
			return nil, err
		}
		return nil, ErrBookNotAvailable
	}

	if _, err := s.ledger.Open(ctx, tx, bookID, memberID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("open ledger entry: %w", err)
	}

	b, err := s.books.GetByID(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Infow("book borrowed", "book_id", bookID, "member_id", memberID)
	return b, nil
}

// Return moves a book borrowed by memberID back to AVAILABLE and closes the
// matching open ledger entry. A member can only return their own loan.
func (s *Service) Return(ctx context.Context, bookID, memberID int64) (*bookentity.Book, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.books.MarkReturned(ctx, tx, bookID, memberID)
	if err != nil {
		return nil, fmt.Errorf("mark returned: %w", err)
	}
	if !ok {
		if _, err := s.books.GetByID(ctx, tx, bookID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrBookNotFound
			}
			return nil, err
		}
		return nil, ErrNotBorrowedByCaller
	}

	entry, err := s.ledger.Close(ctx, tx, bookID, memberID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("close ledger entry: %w", err)
	}
	if entry == nil {
		// Book row said BORROWED by this member but no open entry exists.
		// Possible after a direct administrative status edit.
		s.logger.Warnw("no open ledger entry on return", "book_id", bookID, "member_id", memberID)
	}

	b, err := s.books.GetByID(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Infow("book returned", "book_id", bookID, "member_id", memberID)
	return b, nil
}
