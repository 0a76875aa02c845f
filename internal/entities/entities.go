package entities

import (
	"time"
)

// Book is a single physical item in the library. ISBN is nullable so that
// books without one do not collide on the unique index (SQLite treats NULLs
// as distinct).
type Book struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"index;size:512" json:"title"`
	Author        string    `gorm:"index;size:256" json:"author"`
	ISBN          *string   `gorm:"uniqueIndex;size:20" json:"isbn,omitempty"`
	CoverImageURL string    `gorm:"size:2048" json:"cover_image_url,omitempty"`
	Summary       string    `gorm:"type:text" json:"summary,omitempty"`
	CodePayload   string    `gorm:"size:32" json:"code_payload,omitempty"`
	IsAvailable   bool      `gorm:"default:true" json:"is_available"`
	Loans         []Loan    `gorm:"foreignKey:BookID" json:"loans,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// User is a borrower. All contact identifiers are optional but unique when
// present. TelegramChatID is set only through the bot registration flow.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"index;size:256" json:"name"`
	Email          *string   `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	Phone          *string   `gorm:"uniqueIndex;size:32" json:"phone,omitempty"`
	TelegramChatID *string   `gorm:"uniqueIndex;size:32" json:"telegram_chat_id,omitempty"`
	Loans          []Loan    `gorm:"foreignKey:UserID" json:"loans,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Loan is one entry in the circulation ledger. ReturnDate is nil while the
// loan is open; a book has at most one open loan at any time.
type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	BookID     uint       `gorm:"index" json:"book_id"`
	UserID     uint       `gorm:"index" json:"user_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `gorm:"index" json:"return_date,omitempty"`
	Book       Book       `gorm:"foreignKey:BookID" json:"book,omitempty"`
	User       User       `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Admin is an operator account for the HTTP API.
type Admin struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	Name         string    `gorm:"size:256" json:"name"`
	PasswordHash string    `gorm:"size:128" json:"-"`
	IsSuperadmin bool      `gorm:"default:false" json:"is_superadmin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

func (User) TableName() string {
	return "users"
}

func (Loan) TableName() string {
	return "loans"
}

func (Admin) TableName() string {
	return "admins"
}

// IsOpen reports whether the loan has not been returned yet.
func (l Loan) IsOpen() bool {
	return l.ReturnDate == nil
}

// IsOverdue reports whether an open loan is past its due date.
func (l Loan) IsOverdue(now time.Time) bool {
	return l.IsOpen() && now.After(l.DueDate)
}
