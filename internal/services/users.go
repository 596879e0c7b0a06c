package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/models"
	"health-registry-server/internal/validation"
)

const msgUserNotFound = "User not found"

// UserService covers staff account administration.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// List returns every account, oldest first.
func (s *UserService) List(ctx context.Context, page Pagination) (Page[models.UserSanitized], error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return Page[models.UserSanitized]{}, fmt.Errorf("failed to count users: %w", err)
	}
	var users []models.User
	if err := page.apply(query.Order("created_at ASC")).Find(&users).Error; err != nil {
		return Page[models.UserSanitized]{}, fmt.Errorf("failed to list users: %w", err)
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitized[i] = u.Sanitize()
	}
	return newPage(page, count, sanitized), nil
}

// SetActive enables or disables an account. Disabling drops every token the
// user holds.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	if !isValidID(id) {
		return nil, apperrors.NotFound(msgUserNotFound)
	}
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound(msgUserNotFound)
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		// Update by column so false is written despite the column default.
		if err := tx.Model(&user).Update("is_active", active).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if !active {
			return revokeCredentials(tx, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.IsActive = active
	return &user, nil
}

// CreateSuperuser creates an active staff account. Used by the command line.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.Validation(validation.FieldErrors{"email": {"Enter a valid email address."}})
	}
	if errs := validation.ValidatePassword(password, password); errs.HasErrors() {
		return nil, apperrors.Validation(errs)
	}

	user := models.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		IsStaff:   true,
		IsActive:  true,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, emailTaken()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}
