package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris-backend/internal/database"
	"libris-backend/internal/migration"
	"libris-backend/internal/models"
	"libris-backend/internal/repository"
	"libris-backend/migrations"
)

func newTestService(t *testing.T) (*CheckoutService, *repository.BookRepository) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(path)
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })

	runner := migration.NewRunner(db.DB, migrations.FS)
	require.NoError(t, runner.Apply(context.Background()), "Failed to apply migrations")

	books := repository.NewBookRepository(db)
	history := repository.NewCheckoutHistoryRepository(db)
	return NewCheckoutService(db, books, history), books
}

func createTestBook(t *testing.T, books *repository.BookRepository) *models.Book {
	t.Helper()

	book, err := books.Create(context.Background(), models.CreateBookInput{
		Title:         "The Go Programming Language",
		Author:        "Alan Donovan",
		ISBN:          "978-3-16-148410-0",
		PublishedYear: 2015,
	})
	require.NoError(t, err)
	return book
}

func TestCheckoutAndReturnFlow(t *testing.T) {
	svc, books := newTestService(t)
	ctx := context.Background()

	book := createTestBook(t, books)

	checkedOut, err := svc.Checkout(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedOut, checkedOut.Status)
	require.NotNil(t, checkedOut.CheckedOutAt)
	assert.False(t, checkedOut.CheckedOutAt.IsZero())

	time.Sleep(2 * time.Millisecond)

	returned, err := svc.Return(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, returned.Status)
	assert.Nil(t, returned.CheckedOutAt)

	entries, total, err := svc.GetHistory(ctx, book.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionReturned, entries[0].Action)
	assert.Equal(t, models.ActionCheckedOut, entries[1].Action)
}

func TestCheckoutAlreadyCheckedOut(t *testing.T) {
	svc, books := newTestService(t)
	ctx := context.Background()

	book := createTestBook(t, books)

	_, err := svc.Checkout(ctx, book.ID)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, book.ID)
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.EqualError(t, err, "Book is already checked out")

	// The failed attempt must not leave a history entry behind.
	_, total, err := svc.GetHistory(ctx, book.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestReturnNotCheckedOut(t *testing.T) {
	svc, books := newTestService(t)
	ctx := context.Background()

	book := createTestBook(t, books)

	_, err := svc.Return(ctx, book.ID)
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.EqualError(t, err, "Book is not currently checked out")

	_, total, err := svc.GetHistory(ctx, book.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestCheckoutUnknownBook(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Checkout(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestReturnUnknownBook(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Return(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestConcurrentCheckoutSingleWinner(t *testing.T) {
	svc, books := newTestService(t)
	ctx := context.Background()

	book := createTestBook(t, books)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(ctx, book.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case models.IsConflict(err):
			conflicts++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one checkout should win")
	assert.Equal(t, 1, conflicts, "the loser should observe a conflict")

	// Only the winner leaves a trace.
	_, total, err := svc.GetHistory(ctx, book.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	current, err := books.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedOut, current.Status)
}

func TestLifecycleHistoryOrdering(t *testing.T) {
	svc, books := newTestService(t)
	ctx := context.Background()

	book := createTestBook(t, books)

	_, err := svc.Checkout(ctx, book.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Return(ctx, book.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Checkout(ctx, book.ID)
	require.NoError(t, err)

	entries, total, err := svc.GetHistory(ctx, book.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, entries, 3)
	assert.Equal(t, models.ActionCheckedOut, entries[0].Action)
	assert.Equal(t, models.ActionReturned, entries[1].Action)
	assert.Equal(t, models.ActionCheckedOut, entries[2].Action)

	// Windowing applies to the entries but not the total.
	entries, total, err = svc.GetHistory(ctx, book.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, entries, 2)
}

func TestGetHistoryUnknownBook(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.GetHistory(context.Background(), "no-such-id", 0, 0)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}
