// Package users provides database operations for borrower management.
package users

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrNameRequired     = errors.New("user name is required")
	ErrDuplicateContact = errors.New("a user with this contact identifier already exists")
)

// Repository handles all borrower database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new borrower. Empty contact identifiers are normalized to
// NULL so absent values never collide on the unique indexes.
func (r *Repository) Create(user *entities.User) error {
	if strings.TrimSpace(user.Name) == "" {
		return ErrNameRequired
	}
	normalizeContacts(user)

	if err := r.db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateContact
		}
		return err
	}
	return nil
}

// GetByID retrieves a borrower by id.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a borrower by email.
func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByTelegramChatID retrieves the borrower linked to a Telegram chat.
func (r *Repository) GetByTelegramChatID(chatID string) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where("telegram_chat_id = ?", chatID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns borrowers ordered by id with offset/limit pagination.
func (r *Repository) List(offset, limit int) ([]entities.User, error) {
	var users []entities.User
	err := r.db.Order("id").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Update replaces name, email and phone of an existing borrower. The
// Telegram link is owned by LinkTelegram and left untouched here.
func (r *Repository) Update(id uint, update *entities.User) (*entities.User, error) {
	if strings.TrimSpace(update.Name) == "" {
		return nil, ErrNameRequired
	}
	normalizeContacts(update)

	user, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	err = r.db.Model(user).Updates(map[string]interface{}{
		"name":  update.Name,
		"email": update.Email,
		"phone": update.Phone,
	}).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateContact
		}
		return nil, err
	}
	return user, nil
}

// LinkTelegram attaches a Telegram chat id to the borrower with the given
// email. This is the single mutation the bot registration flow performs.
func (r *Repository) LinkTelegram(email, chatID string) (*entities.User, error) {
	user, err := r.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	if err := r.db.Model(user).Update("telegram_chat_id", chatID).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateContact
		}
		return nil, err
	}
	return user, nil
}

// Delete removes a borrower by id.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Count returns the total number of borrowers, used by the stats endpoint.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

func normalizeContacts(user *entities.User) {
	user.Email = normalize(user.Email)
	user.Phone = normalize(user.Phone)
	user.TelegramChatID = normalize(user.TelegramChatID)
}

func normalize(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
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
