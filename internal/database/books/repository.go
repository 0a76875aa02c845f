// Package books provides database operations for the book catalogue.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(42)
package books

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/identify"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrTitleRequired  = errors.New("book title is required")
	ErrAuthorRequired = errors.New("book author is required")
	ErrDuplicateISBN  = errors.New("a book with this ISBN already exists")
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new book and mints its identification code payload.
// An empty ISBN is normalized to NULL so it never collides with other
// books that also have no ISBN.
func (r *Repository) Create(book *entities.Book) error {
	if err := validate(book); err != nil {
		return err
	}
	normalizeISBN(book)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(book).Error; err != nil {
			return err
		}
		// The payload is the stable id, so it needs the row to exist first.
		book.CodePayload = identify.MintPayload(book.ID)
		return tx.Model(book).Update("code_payload", book.CodePayload).Error
	})
	if isUniqueViolation(err) {
		return ErrDuplicateISBN
	}
	return err
}

// GetByID retrieves a book by its id.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// GetByISBN retrieves a book by ISBN.
func (r *Repository) GetByISBN(isbn string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.Where("isbn = ?", isbn).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// List returns books ordered by id with offset/limit pagination.
func (r *Repository) List(offset, limit int) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("id").Offset(offset).Limit(limit).Find(&books).Error
	return books, err
}

// SearchByTitle returns books whose title contains the given substring,
// case-insensitively. Used by the bot's /search command.
func (r *Repository) SearchByTitle(query string, limit int) ([]entities.Book, error) {
	var books []entities.Book
	pattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("title LIKE ?", pattern).Order("id").Limit(limit).Find(&books).Error
	return books, err
}

// SetCoverImageURL stores the public URL of an uploaded cover.
func (r *Repository) SetCoverImageURL(id uint, url string) error {
	result := r.db.Model(&entities.Book{}).Where("id = ?", id).Update("cover_image_url", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Update replaces the bibliographic fields of an existing book. Availability
// and the code payload are owned by the circulation engine and the minting
// step respectively, so they are not touched here.
func (r *Repository) Update(id uint, update *entities.Book) (*entities.Book, error) {
	if err := validate(update); err != nil {
		return nil, err
	}
	normalizeISBN(update)

	book, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	err = r.db.Model(book).Updates(map[string]interface{}{
		"title":           update.Title,
		"author":          update.Author,
		"isbn":            update.ISBN,
		"cover_image_url": update.CoverImageURL,
		"summary":         update.Summary,
	}).Error
	if isUniqueViolation(err) {
		return nil, ErrDuplicateISBN
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes a book by id.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Count returns the total number of books, used by the stats endpoint.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

func validate(book *entities.Book) error {
	if strings.TrimSpace(book.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(book.Author) == "" {
		return ErrAuthorRequired
	}
	return nil
}

func normalizeISBN(book *entities.Book) {
	if book.ISBN != nil {
		trimmed := strings.TrimSpace(*book.ISBN)
		if trimmed == "" {
			book.ISBN = nil
		} else {
			book.ISBN = &trimmed
		}
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
