// Package admins provides database operations for operator accounts.
// Passwords are only ever stored as bcrypt hashes.
package admins

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
)

var (
	ErrAdminNotFound       = errors.New("admin not found")
	ErrEmailRequired       = errors.New("admin email is required")
	ErrDuplicateEmail      = errors.New("an admin with this email already exists")
	ErrSuperadminProtected = errors.New("superadmin accounts cannot be deleted")
)

// Repository handles all admin database operations.
type Repository struct {
	db         *gorm.DB
	bcryptCost int
}

// NewRepository creates a new admins repository.
func NewRepository(db *gorm.DB, bcryptCost int) *Repository {
	return &Repository{db: db, bcryptCost: bcryptCost}
}

// Create stores a new admin with a hashed password.
func (r *Repository) Create(email, name, password string, isSuperadmin bool) (*entities.Admin, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}

	hash, err := auth.HashPassword(password, r.bcryptCost)
	if err != nil {
		return nil, err
	}

	admin := &entities.Admin{
		Email:        strings.TrimSpace(email),
		Name:         name,
		PasswordHash: hash,
		IsSuperadmin: isSuperadmin,
	}
	if err := r.db.Create(admin).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return admin, nil
}

// GetByID retrieves an admin by id.
func (r *Repository) GetByID(id uint) (*entities.Admin, error) {
	var admin entities.Admin
	if err := r.db.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// GetByEmail retrieves an admin by email.
func (r *Repository) GetByEmail(email string) (*entities.Admin, error) {
	var admin entities.Admin
	if err := r.db.Where("email = ?", email).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// Authenticate verifies credentials and returns the matching admin.
func (r *Repository) Authenticate(email, password string) (*entities.Admin, error) {
	admin, err := r.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(password, admin.PasswordHash); err != nil {
		return nil, err
	}
	return admin, nil
}

// List returns admins ordered by id with offset/limit pagination.
func (r *Repository) List(offset, limit int) ([]entities.Admin, error) {
	var admins []entities.Admin
	err := r.db.Order("id").Offset(offset).Limit(limit).Find(&admins).Error
	return admins, err
}

// UpdateInput carries the optional fields an admin update may set.
type UpdateInput struct {
	Email    *string
	Name     *string
	Password *string
}

// Update applies the provided fields; a new password is re-hashed before
// storage.
func (r *Repository) Update(id uint, input UpdateInput) (*entities.Admin, error) {
	admin, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Email != nil && strings.TrimSpace(*input.Email) != "" {
		updates["email"] = strings.TrimSpace(*input.Email)
	}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password, r.bcryptCost)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if len(updates) == 0 {
		return admin, nil
	}

	if err := r.db.Model(admin).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return admin, nil
}

// Delete removes an admin by id. Superadmins are protected so the install
// cannot lock itself out.
func (r *Repository) Delete(id uint) error {
	admin, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if admin.IsSuperadmin {
		return ErrSuperadminProtected
	}
	return r.db.Delete(&entities.Admin{}, id).Error
}

// Count returns the number of admin accounts. The setup endpoint uses it to
// decide whether initial bootstrap is still allowed.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Admin{}).Count(&count).Error
	return count, err
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
