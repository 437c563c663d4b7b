package models

import (
	"database/sql"
	"time"
)

// BookStatus is the lifecycle state of a book. A book is either on the shelf
// or checked out; there is no third state.
type BookStatus string

const (
	StatusAvailable  BookStatus = "available"
	StatusCheckedOut BookStatus = "checked_out"
)

// CheckoutAction identifies what a history entry records.
type CheckoutAction string

const (
	ActionCheckedOut CheckoutAction = "checked_out"
	ActionReturned   CheckoutAction = "returned"
)

// Book is a catalog entry. CheckedOutAt is non-nil exactly when Status is
// StatusCheckedOut.
type Book struct {
	ID            string     `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Author        string     `json:"author" db:"author"`
	ISBN          string     `json:"isbn" db:"isbn"`
	PublishedYear int        `json:"published_year" db:"published_year"`
	Status        BookStatus `json:"status" db:"status"`
	CheckedOutAt  *time.Time `json:"checked_out_at" db:"checked_out_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// CheckoutHistoryEntry is one row of the append-only checkout audit trail.
// Entries are never updated or deleted.
type CheckoutHistoryEntry struct {
	ID        string         `json:"id" db:"id"`
	BookID    string         `json:"book_id" db:"book_id"`
	Action    CheckoutAction `json:"action" db:"action"`
	Timestamp time.Time      `json:"timestamp" db:"timestamp"`
}

// CreateBookInput carries the caller-supplied fields of a new book.
// PublishedYear zero counts as missing.
type CreateBookInput struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	PublishedYear int    `json:"published_year"`
}

// BookPatch is a partial update. A nil field is left untouched. CheckedOutAt
// uses sql.NullTime so the column can be cleared explicitly: a nil pointer
// means "do not touch", a non-nil pointer with Valid=false writes NULL.
type BookPatch struct {
	Title         *string
	Author        *string
	ISBN          *string
	PublishedYear *int
	Status        *BookStatus
	CheckedOutAt  *sql.NullTime
}
