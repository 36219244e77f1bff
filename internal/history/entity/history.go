package entity

import "time"

// Entry is one row of the append-only lending ledger. An entry with a nil
// ReturnDate is an open loan. Entries are never deleted; BookID may refer
// to a book that has since been removed from the catalog.
type Entry struct {
	ID         int64      `db:"id" json:"id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	MemberID   int64      `db:"member_id" json:"member_id"`
	IssueDate  time.Time  `db:"issue_date" json:"issue_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date"`
}
