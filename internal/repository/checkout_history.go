package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libris-backend/internal/models"
)

// CheckoutHistoryRepository owns the append-only checkout_history table.
// Entries are only ever inserted; there is no update or delete path.
type CheckoutHistoryRepository struct {
	db sqlx.ExtContext
}

func NewCheckoutHistoryRepository(db *sqlx.DB) *CheckoutHistoryRepository {
	return &CheckoutHistoryRepository{db: db}
}

// WithTx returns a copy of the repository that runs its statements on tx.
func (r *CheckoutHistoryRepository) WithTx(tx *sqlx.Tx) *CheckoutHistoryRepository {
	return &CheckoutHistoryRepository{db: tx}
}

// Record appends one history entry for the book.
func (r *CheckoutHistoryRepository) Record(ctx context.Context, bookID string, action models.CheckoutAction) (*models.CheckoutHistoryEntry, error) {
	entry := &models.CheckoutHistoryEntry{
		ID:        uuid.New().String(),
		BookID:    bookID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}

	query := `
		INSERT INTO checkout_history (id, book_id, action, timestamp)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.BookID,
		entry.Action,
		entry.Timestamp,
	)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("failed to record checkout history: %w", err))
	}

	return entry, nil
}

// FindByBookID returns one page of a book's history newest first, plus the
// total number of entries for that book. An unknown book simply has no
// entries.
func (r *CheckoutHistoryRepository) FindByBookID(ctx context.Context, bookID string, limit, offset int) ([]models.CheckoutHistoryEntry, int, error) {
	limit, offset = normalizeWindow(limit, offset)

	query := `
		SELECT id, book_id, action, timestamp
		FROM checkout_history
		WHERE book_id = ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	entries := []models.CheckoutHistoryEntry{}
	if err := sqlx.SelectContext(ctx, r.db, &entries, query, bookID, limit, offset); err != nil {
		return nil, 0, models.NewInternalError(fmt.Errorf("failed to query checkout history: %w", err))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM checkout_history WHERE book_id = ?`
	if err := sqlx.GetContext(ctx, r.db, &total, countQuery, bookID); err != nil {
		return nil, 0, models.NewInternalError(fmt.Errorf("failed to count checkout history: %w", err))
	}

	return entries, total, nil
}
