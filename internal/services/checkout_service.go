package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"libris-backend/internal/models"
	"libris-backend/internal/repository"
)

// CheckoutService owns the checkout and return workflows. Each workflow runs
// inside a single transaction so a book's status and its history trail can
// never diverge: either both land or neither does.
type CheckoutService struct {
	db      *sqlx.DB
	books   *repository.BookRepository
	history *repository.CheckoutHistoryRepository
}

func NewCheckoutService(db *sqlx.DB, books *repository.BookRepository, history *repository.CheckoutHistoryRepository) *CheckoutService {
	return &CheckoutService{
		db:      db,
		books:   books,
		history: history,
	}
}

// Checkout marks the book checked out and appends the matching history
// entry. The status write is conditional on the book still being available,
// so when two callers race exactly one sees a row change; the other observes
// zero rows, finds the book present, and gets a conflict.
func (s *CheckoutService) Checkout(ctx context.Context, bookID string) (*models.Book, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	books := s.books.WithTx(tx)
	now := time.Now().UTC()

	affected, err := books.UpdateStatusIf(ctx, bookID, models.StatusAvailable, models.StatusCheckedOut, &now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Zero rows means either the book does not exist or its status
		// already moved on. Read the row to tell the two apart.
		book, err := books.FindByID(ctx, bookID)
		if err != nil {
			return nil, err
		}
		if book == nil {
			return nil, models.NewNotFoundError("Book")
		}
		return nil, models.NewConflictError("Book is already checked out")
	}

	if _, err := s.history.WithTx(tx).Record(ctx, bookID, models.ActionCheckedOut); err != nil {
		return nil, err
	}

	book, err := books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("failed to commit checkout: %w", err))
	}

	return book, nil
}

// Return marks the book available again, clears checked_out_at, and appends
// the matching history entry. Mirror image of Checkout.
func (s *CheckoutService) Return(ctx context.Context, bookID string) (*models.Book, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	books := s.books.WithTx(tx)

	affected, err := books.UpdateStatusIf(ctx, bookID, models.StatusCheckedOut, models.StatusAvailable, nil)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		book, err := books.FindByID(ctx, bookID)
		if err != nil {
			return nil, err
		}
		if book == nil {
			return nil, models.NewNotFoundError("Book")
		}
		return nil, models.NewConflictError("Book is not currently checked out")
	}

	if _, err := s.history.WithTx(tx).Record(ctx, bookID, models.ActionReturned); err != nil {
		return nil, err
	}

	book, err := books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("failed to commit return: %w", err))
	}

	return book, nil
}

// GetHistory returns a page of the book's checkout trail plus the total
// entry count. Unlike the plain repository lookup, asking for the history of
// a book that does not exist is an error here.
func (s *CheckoutService) GetHistory(ctx context.Context, bookID string, limit, offset int) ([]models.CheckoutHistoryEntry, int, error) {
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, 0, err
	}
	if book == nil {
		return nil, 0, models.NewNotFoundError("Book")
	}

	return s.history.FindByBookID(ctx, bookID, limit, offset)
}
