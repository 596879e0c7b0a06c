package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/config"
	"health-registry-server/internal/models"
	"health-registry-server/internal/utils"
	"health-registry-server/internal/validation"
)

// BearerPrefix must open the Authorization header, case and space included.
const BearerPrefix = "Bearer "

const (
	msgInvalidToken       = "Invalid token"
	msgTokenExpired       = "Token has expired"
	msgInvalidCredentials = "Invalid email or password"
	msgInactiveAccount    = "User account is disabled."
	msgInvalidRefresh     = "Invalid or expired refresh token"
	msgEmailTaken         = "A user with this email already exists."
	msgWrongPassword      = "Current password is incorrect."
)

// AuthResult is returned by every operation that issues credentials.
type AuthResult struct {
	Token        string               `json:"token"`
	RefreshToken string               `json:"refresh"`
	User         models.UserSanitized `json:"user"`
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	FirstName       string `json:"first_name" validate:"required,max=150"`
	LastName        string `json:"last_name" validate:"required,max=150"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

// ProfileInput carries profile edits. Empty fields are left unchanged.
type ProfileInput struct {
	FirstName string `json:"first_name" validate:"omitempty,max=150"`
	LastName  string `json:"last_name" validate:"omitempty,max=150"`
}

// ChangePasswordInput is the password change form.
type ChangePasswordInput struct {
	OldPassword        string `json:"old_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required"`
}

// AuthService issues and resolves credentials.
type AuthService struct {
	db         *gorm.DB
	tokenTTL   time.Duration
	secret     string
	refreshTTL time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:         db,
		tokenTTL:   cfg.AuthTokenTTL(),
		secret:     cfg.JWTRefreshSecret,
		refreshTTL: time.Duration(cfg.JWTRefreshExpirationHours) * time.Hour,
	}
}

// NormalizeEmail lower-cases the domain part of an address.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if errs := validation.ValidatePassword(in.Password, in.PasswordConfirm); errs.HasErrors() {
		return nil, apperrors.Validation(errs)
	}

	user := models.User{
		Email:     NormalizeEmail(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		IsActive:  true,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var result *AuthResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if existing > 0 {
			return emailTaken()
		}
		if err := tx.Create(&user).Error; err != nil {
			if isDuplicateKey(err) {
				return emailTaken()
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		issued, err := s.issue(tx, &user)
		if err != nil {
			return err
		}
		result = issued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func emailTaken() error {
	return apperrors.Conflict(msgEmailTaken).WithField("email")
}

// Login checks credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized(msgInactiveAccount)
	}
	return s.issue(s.db.WithContext(ctx), &user)
}

// issue creates an AuthToken and a stored refresh token for user.
func (s *AuthService) issue(db *gorm.DB, user *models.User) (*AuthResult, error) {
	token, err := models.NewAuthToken(user.ID, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	if err := db.Create(token).Error; err != nil {
		return nil, fmt.Errorf("failed to store auth token: %w", err)
	}

	refreshString, expiresAt, err := utils.GenerateRefreshToken(user.ID, s.secret, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	refresh := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshString,
		ExpiresAt: expiresAt,
	}
	if err := db.Create(&refresh).Error; err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResult{Token: token.Key, RefreshToken: refreshString, User: user.Sanitize()}, nil
}

// Authenticate resolves an Authorization header value. A header without the
// bearer prefix, or with nothing after it, is anonymous: all results are nil.
// Otherwise the remainder must match a stored key exactly.
func (s *AuthService) Authenticate(ctx context.Context, header string) (*models.User, *models.AuthToken, error) {
	if !strings.HasPrefix(header, BearerPrefix) {
		return nil, nil, nil
	}
	key := header[len(BearerPrefix):]
	if key == "" {
		return nil, nil, nil
	}

	var token models.AuthToken
	if err := s.db.WithContext(ctx).Preload("User").Where("token_key = ?", key).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.Unauthorized(msgInvalidToken)
		}
		return nil, nil, fmt.Errorf("failed to look up token: %w", err)
	}
	// Some collations compare case-insensitively.
	if subtle.ConstantTimeCompare([]byte(token.Key), []byte(key)) != 1 {
		return nil, nil, apperrors.Unauthorized(msgInvalidToken)
	}
	if token.Expired(time.Now().UTC()) {
		if err := s.db.WithContext(ctx).Where("token_key = ?", token.Key).Delete(&models.AuthToken{}).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to delete expired token: %w", err)
		}
		return nil, nil, apperrors.Unauthorized(msgTokenExpired)
	}
	return &token.User, &token, nil
}

// Logout deletes the presented token and, when given, revokes the refresh token.
func (s *AuthService) Logout(ctx context.Context, key, refreshToken string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_key = ?", key).Delete(&models.AuthToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete auth token: %w", err)
		}
		if refreshToken == "" {
			return nil
		}
		if err := tx.Model(&models.RefreshToken{}).
			Where("token = ? AND is_revoked = ?", refreshToken, false).
			Update("is_revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		return nil
	})
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// auth token and refresh token are issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := utils.ValidateToken(refreshToken, s.secret)
	if err != nil {
		return nil, apperrors.Unauthorized(msgInvalidRefresh)
	}

	var result *AuthResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?",
			refreshToken, claims.UserID, false, time.Now().UTC()).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Unauthorized(msgInvalidRefresh)
			}
			return fmt.Errorf("failed to look up refresh token: %w", err)
		}

		var user models.User
		if err := tx.First(&user, "id = ?", claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Unauthorized(msgInvalidRefresh)
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		if !user.IsActive {
			return apperrors.Unauthorized(msgInactiveAccount)
		}

		if err := tx.Model(&stored).Update("is_revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		issued, err := s.issue(tx, &user)
		if err != nil {
			return err
		}
		result = issued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateProfile changes the user's names.
func (s *AuthService) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(in.FirstName); name != "" {
		updates["first_name"] = name
	}
	if name := strings.TrimSpace(in.LastName); name != "" {
		updates["last_name"] = name
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	var fresh models.User
	if err := s.db.WithContext(ctx).First(&fresh, "id = ?", user.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	return &fresh, nil
}

// ChangePassword replaces the password, drops every existing credential and
// issues a new pair.
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, in ChangePasswordInput) (*AuthResult, error) {
	if !user.CheckPassword(in.OldPassword) {
		return nil, apperrors.Validation(validation.FieldErrors{"old_password": {msgWrongPassword}})
	}
	errs := validation.FieldErrors{}
	for field, msgs := range validation.ValidatePassword(in.NewPassword, in.NewPasswordConfirm) {
		errs["new_"+field] = msgs
	}
	if errs.HasErrors() {
		return nil, apperrors.Validation(errs)
	}
	if err := user.SetPassword(in.NewPassword); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var result *AuthResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("password", user.Password).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := revokeCredentials(tx, user.ID); err != nil {
			return err
		}
		issued, err := s.issue(tx, user)
		if err != nil {
			return err
		}
		result = issued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// revokeCredentials deletes every auth token of userID and revokes its
// refresh tokens.
func revokeCredentials(tx *gorm.DB, userID string) error {
	if err := tx.Where("user_id = ?", userID).Delete(&models.AuthToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete auth tokens: %w", err)
	}
	if err := tx.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error; err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}
