package entity

import "time"

// Book availability states. Transitions between them happen only through
// the lending service, although the administrative update path may set
// status directly.
const (
	StatusAvailable = "AVAILABLE"
	StatusBorrowed  = "BORROWED"
)

// Book is an inventory item. BorrowerID is set exactly while the book is
// BORROWED and null otherwise.
type Book struct {
	ID         int64     `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Author     string    `db:"author" json:"author"`
	Status     string    `db:"status" json:"status"`
	BorrowerID *int64    `db:"borrower_id" json:"borrower_id"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
	UpdatedAt  time.Time `db:"updated_at" json:"-"`
}
