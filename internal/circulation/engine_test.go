package circulation

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
)

func setupTestDB(t *testing.T) (*Engine, *gorm.DB, func()) {
	dbPath := "./test_circulation_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return NewEngine(db.DB), db.DB, cleanup
}

func createBook(t *testing.T, db *gorm.DB, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, Author: "Author", IsAvailable: true}
	require.NoError(t, db.Create(book).Error)
	return book
}

func createUser(t *testing.T, db *gorm.DB, name string) *entities.User {
	t.Helper()
	user := &entities.User{Name: name}
	require.NoError(t, db.Create(user).Error)
	return user
}

// assertAvailabilityInvariant checks that for every book is_available equals
// "no open loan references this book".
func assertAvailabilityInvariant(t *testing.T, db *gorm.DB) {
	t.Helper()
	var books []entities.Book
	require.NoError(t, db.Find(&books).Error)
	for _, book := range books {
		var open int64
		require.NoError(t, db.Model(&entities.Loan{}).
			Where("book_id = ? AND return_date IS NULL", book.ID).
			Count(&open).Error)
		assert.Equal(t, book.IsAvailable, open == 0,
			"book %d: is_available=%v but %d open loans", book.ID, book.IsAvailable, open)
		assert.LessOrEqual(t, open, int64(1), "book %d has more than one open loan", book.ID)
	}
}

func TestEngine_Checkout(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")
	user := createUser(t, db, "Alice")

	loan, err := engine.Checkout(book.ID, user.ID, time.Now().Add(7*24*time.Hour))

	require.NoError(t, err)
	assert.NotZero(t, loan.ID)
	assert.Nil(t, loan.ReturnDate)
	assert.False(t, loan.LoanDate.IsZero())

	reloaded := &entities.Book{}
	require.NoError(t, db.First(reloaded, book.ID).Error)
	assert.False(t, reloaded.IsAvailable)

	assertAvailabilityInvariant(t, db)
}

func TestEngine_Checkout_BookNotFound(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	user := createUser(t, db, "Alice")

	_, err := engine.Checkout(999, user.ID, time.Now().Add(time.Hour))

	assert.ErrorIs(t, err, ErrBookNotFound)
	assertAvailabilityInvariant(t, db)
}

func TestEngine_Checkout_UserNotFound(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")

	_, err := engine.Checkout(book.ID, 999, time.Now().Add(time.Hour))

	assert.ErrorIs(t, err, ErrUserNotFound)

	// The failed checkout left no partial writes behind.
	var loans int64
	require.NoError(t, db.Model(&entities.Loan{}).Count(&loans).Error)
	assert.Zero(t, loans)

	reloaded := &entities.Book{}
	require.NoError(t, db.First(reloaded, book.ID).Error)
	assert.True(t, reloaded.IsAvailable)
}

func TestEngine_Checkout_DueDateInPast(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")
	user := createUser(t, db, "Alice")

	_, err := engine.Checkout(book.ID, user.ID, time.Now().Add(-time.Hour))

	assert.ErrorIs(t, err, ErrDueDateInPast)
}

func TestEngine_Checkout_AlreadyLoaned(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")
	alice := createUser(t, db, "Alice")
	bob := createUser(t, db, "Bob")

	_, err := engine.Checkout(book.ID, alice.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = engine.Checkout(book.ID, bob.ID, time.Now().Add(time.Hour))

	assert.ErrorIs(t, err, ErrBookUnavailable)
	assertAvailabilityInvariant(t, db)
}

func TestEngine_Checkout_Concurrent(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")

	const n = 8
	userIDs := make([]uint, n)
	for i := range userIDs {
		userIDs[i] = createUser(t, db, "User").ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Checkout(book.ID, userIDs[i], time.Now().Add(time.Hour))
		}(i)
	}
	wg.Wait()

	successes := 0
	conflicts := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrBookUnavailable):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent checkout may win")
	assert.Equal(t, n-1, conflicts)
	assertAvailabilityInvariant(t, db)
}

func TestEngine_Return(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")
	user := createUser(t, db, "Alice")

	loan, err := engine.Checkout(book.ID, user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	returned, err := engine.Return(loan.ID)

	require.NoError(t, err)
	require.NotNil(t, returned.ReturnDate)

	reloaded := &entities.Book{}
	require.NoError(t, db.First(reloaded, book.ID).Error)
	assert.True(t, reloaded.IsAvailable)

	assertAvailabilityInvariant(t, db)
}

func TestEngine_Return_NotFound(t *testing.T) {
	engine, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := engine.Return(999)

	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestEngine_Return_TwiceIsIdempotent(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")
	alice := createUser(t, db, "Alice")
	bob := createUser(t, db, "Bob")

	loan, err := engine.Checkout(book.ID, alice.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	first, err := engine.Return(loan.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ReturnDate)

	// The book goes straight back out to another borrower.
	_, err = engine.Checkout(book.ID, bob.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	// A second return of the old loan is a no-op success and must not make
	// the book available again under Bob's open loan.
	second, err := engine.Return(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ReturnDate.Unix(), second.ReturnDate.Unix())

	reloaded := &entities.Book{}
	require.NoError(t, db.First(reloaded, book.ID).Error)
	assert.False(t, reloaded.IsAvailable)

	assertAvailabilityInvariant(t, db)
}

func TestEngine_CheckoutAfterReturn(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")
	user := createUser(t, db, "Alice")

	for i := 0; i < 3; i++ {
		loan, err := engine.Checkout(book.ID, user.ID, time.Now().Add(time.Hour))
		require.NoError(t, err)
		_, err = engine.Return(loan.ID)
		require.NoError(t, err)
	}

	assertAvailabilityInvariant(t, db)
}

func TestEngine_OpenLoansForUser(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	dune := createBook(t, db, "Dune")
	hobbit := createBook(t, db, "The Hobbit")
	alice := createUser(t, db, "Alice")
	bob := createUser(t, db, "Bob")

	loan, err := engine.Checkout(dune.ID, alice.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = engine.Checkout(hobbit.ID, bob.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	open, err := engine.OpenLoansForUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Dune", open[0].Book.Title)

	_, err = engine.Return(loan.ID)
	require.NoError(t, err)

	open, err = engine.OpenLoansForUser(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestEngine_OverdueLoans(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	dune := createBook(t, db, "Dune")
	hobbit := createBook(t, db, "The Hobbit")
	alice := createUser(t, db, "Alice")

	_, err := engine.Checkout(dune.ID, alice.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	_, err = engine.Checkout(hobbit.ID, alice.ID, time.Now().Add(48*time.Hour))
	require.NoError(t, err)

	overdue, err := engine.OverdueLoans(time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Dune", overdue[0].Book.Title)
	assert.Equal(t, "Alice", overdue[0].User.Name)

	count, err := engine.CountOverdueLoans(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEngine_CountOpenLoans(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")
	user := createUser(t, db, "Alice")

	count, err := engine.CountOpenLoans()
	require.NoError(t, err)
	assert.Zero(t, count)

	loan, err := engine.Checkout(book.ID, user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	count, err = engine.CountOpenLoans()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = engine.Return(loan.ID)
	require.NoError(t, err)

	count, err = engine.CountOpenLoans()
	require.NoError(t, err)
	assert.Zero(t, count)
}

// End-to-end circulation scenario from the service's point of view:
// checkout, conflicting second checkout, return, book available again.
func TestEngine_FullScenario(t *testing.T) {
	engine, db, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, db, "Dune")
	alice := createUser(t, db, "Alice")
	bob := createUser(t, db, "Bob")

	loan, err := engine.Checkout(book.ID, alice.ID, time.Now().Add(7*24*time.Hour))
	require.NoError(t, err)

	_, err = engine.Checkout(book.ID, bob.ID, time.Now().Add(24*time.Hour))
	assert.ErrorIs(t, err, ErrBookUnavailable)

	returned, err := engine.Return(loan.ID)
	require.NoError(t, err)
	assert.NotNil(t, returned.ReturnDate)

	reloaded := &entities.Book{}
	require.NoError(t, db.First(reloaded, book.ID).Error)
	assert.True(t, reloaded.IsAvailable)

	assertAvailabilityInvariant(t, db)
}
