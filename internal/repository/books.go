package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"libris-backend/internal/models"
)

// DefaultLimit is the page size used when the caller does not give one.
const DefaultLimit = 20

var dialect = goqu.Dialect("sqlite3")

// BookRepository owns all SQL touching the books table.
type BookRepository struct {
	db sqlx.ExtContext
}

func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// WithTx returns a copy of the repository that runs its statements on tx.
func (r *BookRepository) WithTx(tx *sqlx.Tx) *BookRepository {
	return &BookRepository{db: tx}
}

// Create validates and inserts a new book. The ISBN must be unique across
// the whole catalog; a duplicate fails with a conflict error and leaves no
// row behind.
func (r *BookRepository) Create(ctx context.Context, input models.CreateBookInput) (*models.Book, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	book := &models.Book{
		ID:            uuid.New().String(),
		Title:         input.Title,
		Author:        input.Author,
		ISBN:          input.ISBN,
		PublishedYear: input.PublishedYear,
		Status:        models.StatusAvailable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		INSERT INTO books (id, title, author, isbn, published_year, status, checked_out_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		book.ID,
		book.Title,
		book.Author,
		book.ISBN,
		book.PublishedYear,
		book.Status,
		book.CheckedOutAt,
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.NewConflictError("A book with this ISBN already exists")
		}
		return nil, models.NewInternalError(fmt.Errorf("failed to create book: %w", err))
	}

	return book, nil
}

func validateCreateInput(input models.CreateBookInput) error {
	if input.Title == "" {
		return models.NewValidationError("title")
	}
	if input.Author == "" {
		return models.NewValidationError("author")
	}
	if input.ISBN == "" {
		return models.NewValidationError("isbn")
	}
	if input.PublishedYear == 0 {
		return models.NewValidationError("published_year")
	}
	return nil
}

// FindByID returns the book or nil when no row matches. Absence is not an
// error at this layer.
func (r *BookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	query := `
		SELECT id, title, author, isbn, published_year, status, checked_out_at, created_at, updated_at
		FROM books
		WHERE id = ?
	`

	var book models.Book
	err := sqlx.GetContext(ctx, r.db, &book, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Book not found
		}
		return nil, models.NewInternalError(fmt.Errorf("failed to query book: %w", err))
	}

	return &book, nil
}

// FindAll returns one page of the catalog ordered newest first, plus the
// total number of books regardless of the window.
func (r *BookRepository) FindAll(ctx context.Context, limit, offset int) ([]models.Book, int, error) {
	limit, offset = normalizeWindow(limit, offset)

	query := `
		SELECT id, title, author, isbn, published_year, status, checked_out_at, created_at, updated_at
		FROM books
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	books := []models.Book{}
	if err := sqlx.SelectContext(ctx, r.db, &books, query, limit, offset); err != nil {
		return nil, 0, models.NewInternalError(fmt.Errorf("failed to query books: %w", err))
	}

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM books`); err != nil {
		return nil, 0, models.NewInternalError(fmt.Errorf("failed to count books: %w", err))
	}

	return books, total, nil
}

// Update applies a partial update and returns the refreshed row, or nil when
// no book has the id. updated_at is refreshed on every successful call, even
// for an empty patch.
func (r *BookRepository) Update(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error) {
	record := patchRecord(patch)
	record["updated_at"] = time.Now().UTC()

	query, args, err := dialect.Update("books").
		Prepared(true).
		Set(record).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("failed to build update query: %w", err))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.NewConflictError("A book with this ISBN already exists")
		}
		return nil, models.NewInternalError(fmt.Errorf("failed to update book: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("failed to read rows affected: %w", err))
	}
	if affected == 0 {
		return nil, nil // Book not found
	}

	return r.FindByID(ctx, id)
}

// patchRecord converts the set fields of a patch into an update record. The
// keys written here are the compile-time allow-list of mutable columns;
// nothing else can be changed through Update.
func patchRecord(patch models.BookPatch) goqu.Record {
	record := goqu.Record{}
	if patch.Title != nil {
		record["title"] = *patch.Title
	}
	if patch.Author != nil {
		record["author"] = *patch.Author
	}
	if patch.ISBN != nil {
		record["isbn"] = *patch.ISBN
	}
	if patch.PublishedYear != nil {
		record["published_year"] = *patch.PublishedYear
	}
	if patch.Status != nil {
		record["status"] = *patch.Status
	}
	if patch.CheckedOutAt != nil {
		record["checked_out_at"] = *patch.CheckedOutAt
	}
	return record
}

// UpdateStatusIf performs the conditional status transition in one atomic
// statement. The WHERE clause carries the expected current status, so a
// concurrent writer that got there first leaves nothing for this one: zero
// rows affected, never a partial write. Callers decide what a zero means by
// re-reading the row.
func (r *BookRepository) UpdateStatusIf(ctx context.Context, id string, from, to models.BookStatus, checkedOutAt *time.Time) (int64, error) {
	query := `
		UPDATE books
		SET status = ?, checked_out_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, to, checkedOutAt, time.Now().UTC(), id, from)
	if err != nil {
		return 0, models.NewInternalError(fmt.Errorf("failed to update book status: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, models.NewInternalError(fmt.Errorf("failed to read rows affected: %w", err))
	}

	return affected, nil
}

// normalizeWindow applies the shared pagination defaults.
func normalizeWindow(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// isUniqueViolation reports whether err is the driver's UNIQUE constraint
// error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
