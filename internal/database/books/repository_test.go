package books

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func strPtr(s string) *string {
	return &s
}

func TestRepository_Create(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{Title: "Dune", Author: "Frank Herbert", ISBN: strPtr("9780441013593")}
	err := repo.Create(book)

	require.NoError(t, err)
	assert.NotZero(t, book.ID)
	assert.True(t, book.IsAvailable)
	assert.NotEmpty(t, book.CodePayload) // minted from the assigned id
}

func TestRepository_Create_RequiresTitleAndAuthor(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.Create(&entities.Book{Author: "Frank Herbert"})
	assert.ErrorIs(t, err, ErrTitleRequired)

	err = repo.Create(&entities.Book{Title: "Dune"})
	assert.ErrorIs(t, err, ErrAuthorRequired)
}

func TestRepository_Create_DuplicateISBN(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.Create(&entities.Book{Title: "Dune", Author: "Frank Herbert", ISBN: strPtr("9780441013593")})
	require.NoError(t, err)

	err = repo.Create(&entities.Book{Title: "Dune (reprint)", Author: "Frank Herbert", ISBN: strPtr("9780441013593")})
	assert.ErrorIs(t, err, ErrDuplicateISBN)
}

func TestRepository_Create_EmptyISBNDoesNotCollide(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	first := &entities.Book{Title: "Book One", Author: "A", ISBN: strPtr("")}
	second := &entities.Book{Title: "Book Two", Author: "B", ISBN: strPtr("")}

	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	// Empty strings are stored as NULL, not as colliding values.
	assert.Nil(t, first.ISBN)
	assert.Nil(t, second.ISBN)
}

func TestRepository_GetByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created := &entities.Book{Title: "Dune", Author: "Frank Herbert"}
	require.NoError(t, repo.Create(created))

	book, err := repo.GetByID(created.ID)

	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetByID(999)

	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_GetByISBN(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created := &entities.Book{Title: "Dune", Author: "Frank Herbert", ISBN: strPtr("9780441013593")}
	require.NoError(t, repo.Create(created))

	book, err := repo.GetByISBN("9780441013593")

	require.NoError(t, err)
	assert.Equal(t, created.ID, book.ID)
}

func TestRepository_SearchByTitle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.Create(&entities.Book{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin"}))
	require.NoError(t, repo.Create(&entities.Book{Title: "A Wizard of Earthsea", Author: "Ursula K. Le Guin"}))
	require.NoError(t, repo.Create(&entities.Book{Title: "Dune", Author: "Frank Herbert"}))

	found, err := repo.SearchByTitle("of", 10)

	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestRepository_SearchByTitle_NoMatches(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.Create(&entities.Book{Title: "Dune", Author: "Frank Herbert"}))

	found, err := repo.SearchByTitle("earthsea", 10)

	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRepository_Update(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created := &entities.Book{Title: "Dune", Author: "Frank Herbert"}
	require.NoError(t, repo.Create(created))

	updated, err := repo.Update(created.ID, &entities.Book{
		Title:  "Dune Messiah",
		Author: "Frank Herbert",
		ISBN:   strPtr("9780441172696"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	require.NotNil(t, updated.ISBN)
	assert.Equal(t, "9780441172696", *updated.ISBN)

	// The code payload survives bibliographic edits.
	reloaded, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.CodePayload, reloaded.CodePayload)
}

func TestRepository_Update_DuplicateISBN(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.Create(&entities.Book{Title: "Dune", Author: "Frank Herbert", ISBN: strPtr("9780441013593")}))
	second := &entities.Book{Title: "Dune Messiah", Author: "Frank Herbert"}
	require.NoError(t, repo.Create(second))

	_, err := repo.Update(second.ID, &entities.Book{
		Title:  "Dune Messiah",
		Author: "Frank Herbert",
		ISBN:   strPtr("9780441013593"),
	})

	assert.ErrorIs(t, err, ErrDuplicateISBN)
}

func TestRepository_SetCoverImageURL(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created := &entities.Book{Title: "Dune", Author: "Frank Herbert"}
	require.NoError(t, repo.Create(created))

	require.NoError(t, repo.SetCoverImageURL(created.ID, "/covers/cover_1.jpg"))

	reloaded, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "/covers/cover_1.jpg", reloaded.CoverImageURL)

	err = repo.SetCoverImageURL(999, "/covers/cover_999.jpg")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_Delete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created := &entities.Book{Title: "Dune", Author: "Frank Herbert"}
	require.NoError(t, repo.Create(created))

	require.NoError(t, repo.Delete(created.ID))

	_, err := repo.GetByID(created.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_Delete_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.Delete(999)

	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_List(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	for _, title := range []string{"One", "Two", "Three"} {
		require.NoError(t, repo.Create(&entities.Book{Title: title, Author: "A"}))
	}

	books, err := repo.List(1, 10)

	require.NoError(t, err)
	assert.Len(t, books, 2)
	assert.Equal(t, "Two", books[0].Title)
}

func TestRepository_Count(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.Create(&entities.Book{Title: "Dune", Author: "Frank Herbert"}))

	count, err := repo.Count()

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
