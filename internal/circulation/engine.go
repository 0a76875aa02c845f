// Package circulation is the only writer allowed to flip a book's
// availability flag. Every operation re-reads current state inside its own
// transaction, so the availability invariant — is_available is false exactly
// when an open loan exists — survives concurrent requests and failed calls
// alike.
package circulation

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrBookUnavailable = errors.New("book is already loaned")
	ErrDueDateInPast   = errors.New("due date must be in the future")
)

// Engine holds no state across requests; all mutual exclusion comes from the
// store's transaction isolation.
type Engine struct {
	db *gorm.DB
}

// NewEngine creates a circulation engine on top of the record store.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Checkout lends a book to a user. The availability check, the loan insert
// and the flag flip run in one transaction; of two concurrent checkouts for
// the same book, the loser re-reads is_available as false and gets
// ErrBookUnavailable instead of a double loan.
func (e *Engine) Checkout(bookID, userID uint, dueDate time.Time) (*entities.Loan, error) {
	now := time.Now().UTC()
	if !dueDate.After(now) {
		return nil, ErrDueDateInPast
	}

	var loan entities.Loan
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if !book.IsAvailable {
			return ErrBookUnavailable
		}

		var user entities.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		loan = entities.Loan{
			BookID:   bookID,
			UserID:   userID,
			LoanDate: now,
			DueDate:  dueDate,
		}
		if err := tx.Create(&loan).Error; err != nil {
			return err
		}

		return tx.Model(&book).Update("is_available", false).Error
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Return closes a loan and makes the book available again, atomically.
// Returning an already-closed loan is a deliberate no-op success: the closed
// loan comes back unchanged and the book's availability is not touched a
// second time.
func (e *Engine) Return(loanID uint) (*entities.Loan, error) {
	var loan entities.Loan
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&loan, loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if loan.ReturnDate != nil {
			return nil
		}

		now := time.Now().UTC()
		if err := tx.Model(&loan).Update("return_date", now).Error; err != nil {
			return err
		}
		return tx.Model(&entities.Book{}).
			Where("id = ?", loan.BookID).
			Update("is_available", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// OpenLoansForUser returns the user's loans that have not been returned,
// with the book preloaded. Read-only; used by the bot's /myloans command.
func (e *Engine) OpenLoansForUser(userID uint) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := e.db.Preload("Book").
		Where("user_id = ? AND return_date IS NULL", userID).
		Order("due_date").
		Find(&loans).Error
	return loans, err
}

// ListLoans returns the loan ledger ordered by id with offset/limit
// pagination.
func (e *Engine) ListLoans(offset, limit int) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := e.db.Preload("Book").Order("id").Offset(offset).Limit(limit).Find(&loans).Error
	return loans, err
}

// GetLoan retrieves a single loan by id.
func (e *Engine) GetLoan(loanID uint) (*entities.Loan, error) {
	var loan entities.Loan
	if err := e.db.Preload("Book").First(&loan, loanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// OverdueLoans returns open loans whose due date lies before now, with book
// and user preloaded. The reminder scheduler feeds on this.
func (e *Engine) OverdueLoans(now time.Time) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := e.db.Preload("Book").Preload("User").
		Where("return_date IS NULL AND due_date < ?", now).
		Order("due_date").
		Find(&loans).Error
	return loans, err
}

// DueSoonLoans returns open loans whose due date falls inside the window
// starting at now.
func (e *Engine) DueSoonLoans(now time.Time, window time.Duration) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := e.db.Preload("Book").Preload("User").
		Where("return_date IS NULL AND due_date >= ? AND due_date < ?", now, now.Add(window)).
		Order("due_date").
		Find(&loans).Error
	return loans, err
}

// CountOpenLoans returns the number of loans currently open.
func (e *Engine) CountOpenLoans() (int64, error) {
	var count int64
	err := e.db.Model(&entities.Loan{}).Where("return_date IS NULL").Count(&count).Error
	return count, err
}

// CountOverdueLoans returns the number of open loans past their due date.
func (e *Engine) CountOverdueLoans(now time.Time) (int64, error) {
	var count int64
	err := e.db.Model(&entities.Loan{}).
		Where("return_date IS NULL AND due_date < ?", now).
		Count(&count).Error
	return count, err
}
