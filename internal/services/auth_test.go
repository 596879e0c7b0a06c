package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/models"
)

func registerUser(t *testing.T, svc *Services, email string) *AuthResult {
	t.Helper()
	result, err := svc.Auth.Register(context.Background(), RegisterInput{
		Email:           email,
		FirstName:       "Test",
		LastName:        "User",
		Password:        "password123",
		PasswordConfirm: "password123",
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", email, err)
	}
	return result
}

func TestRegister(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	result := registerUser(t, svc, "nurse@Clinic.ORG")
	if result.User.Email != "nurse@clinic.org" {
		t.Errorf("expected domain to be lower-cased, got %s", result.User.Email)
	}
	if len(result.Token) != 40 {
		t.Errorf("expected a 40 character token, got %q", result.Token)
	}
	if result.RefreshToken == "" {
		t.Error("expected a refresh token")
	}
	if result.User.IsStaff {
		t.Error("expected a registered user not to be staff")
	}

	_, err := svc.Auth.Register(ctx, RegisterInput{
		Email: "nurse@clinic.org", FirstName: "A", LastName: "B",
		Password: "password123", PasswordConfirm: "password123",
	})
	appErr := assertKind(t, err, apperrors.ErrConflict)
	if len(appErr.Fields["email"]) != 1 {
		t.Errorf("expected an email field error, got %v", appErr.Fields)
	}
}

func TestRegister_PasswordRules(t *testing.T) {
	svc, _, _ := newTestServices(t)

	tests := []struct {
		name     string
		password string
		confirm  string
		field    string
	}{
		{"too short", "abc12", "abc12", "password"},
		{"no digit", "passwordonly", "passwordonly", "password"},
		{"no letter", "1234567890", "1234567890", "password"},
		{"mismatch", "password123", "password124", "password_confirm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Auth.Register(context.Background(), RegisterInput{
				Email: "x@example.com", FirstName: "X", LastName: "Y",
				Password: tt.password, PasswordConfirm: tt.confirm,
			})
			appErr := assertKind(t, err, apperrors.ErrValidation)
			if len(appErr.Fields[tt.field]) == 0 {
				t.Errorf("expected an error on %s, got %v", tt.field, appErr.Fields)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, db, _ := newTestServices(t)
	ctx := context.Background()
	registered := registerUser(t, svc, "doctor@example.com")

	result, err := svc.Auth.Login(ctx, "doctor@EXAMPLE.com", "password123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Token == registered.Token {
		t.Error("expected login to issue a new token")
	}

	_, err = svc.Auth.Login(ctx, "doctor@example.com", "wrong-password1")
	assertKind(t, err, apperrors.ErrUnauthorized)
	_, err = svc.Auth.Login(ctx, "nobody@example.com", "password123")
	assertKind(t, err, apperrors.ErrUnauthorized)

	if err := db.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}
	_, err = svc.Auth.Login(ctx, "doctor@example.com", "password123")
	assertKind(t, err, apperrors.ErrUnauthorized)
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()
	result := registerUser(t, svc, "owner@example.com")

	user, token, err := svc.Auth.Authenticate(ctx, BearerPrefix+result.Token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user == nil || user.ID != result.User.ID {
		t.Fatalf("expected the token to resolve to its owner, got %+v", user)
	}
	if token == nil || token.Key != result.Token {
		t.Errorf("expected the resolved token, got %+v", token)
	}

	_, _, err = svc.Auth.Authenticate(ctx, BearerPrefix+strings.Repeat("a", 40))
	assertKind(t, err, apperrors.ErrUnauthorized)

	for i := range result.Token {
		altered := []byte(result.Token)
		if altered[i] == '0' {
			altered[i] = '1'
		} else {
			altered[i] = '0'
		}
		if _, _, err := svc.Auth.Authenticate(ctx, BearerPrefix+string(altered)); err == nil {
			t.Fatalf("expected altered token at position %d to be rejected", i)
		}
	}

	for _, header := range []string{"", result.Token, "bearer " + result.Token, "Token " + result.Token, BearerPrefix} {
		user, token, err := svc.Auth.Authenticate(ctx, header)
		if user != nil || token != nil || err != nil {
			t.Errorf("header %q: expected anonymous, got user=%v err=%v", header, user, err)
		}
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	svc, db, _ := newTestServices(t)
	ctx := context.Background()
	result := registerUser(t, svc, "expiring@example.com")

	past := time.Now().UTC().Add(-time.Minute)
	if err := db.Model(&models.AuthToken{}).Where("token_key = ?", result.Token).Update("expires_at", past).Error; err != nil {
		t.Fatalf("failed to expire token: %v", err)
	}

	_, _, err := svc.Auth.Authenticate(ctx, BearerPrefix+result.Token)
	appErr := assertKind(t, err, apperrors.ErrUnauthorized)
	if appErr.Message != msgTokenExpired {
		t.Errorf("expected %q, got %q", msgTokenExpired, appErr.Message)
	}
	if n := countRows(t, db, &models.AuthToken{}, "token_key = ?", result.Token); n != 0 {
		t.Errorf("expected the expired token to be deleted, got %d rows", n)
	}

	_, _, err = svc.Auth.Authenticate(ctx, BearerPrefix+result.Token)
	if appErr := assertKind(t, err, apperrors.ErrUnauthorized); appErr.Message != msgInvalidToken {
		t.Errorf("expected %q once deleted, got %q", msgInvalidToken, appErr.Message)
	}
}

func TestLogout(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()
	result := registerUser(t, svc, "leaving@example.com")

	if err := svc.Auth.Logout(ctx, result.Token, result.RefreshToken); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	_, _, err := svc.Auth.Authenticate(ctx, BearerPrefix+result.Token)
	assertKind(t, err, apperrors.ErrUnauthorized)
	_, err = svc.Auth.Refresh(ctx, result.RefreshToken)
	assertKind(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_Rotates(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()
	result := registerUser(t, svc, "rotating@example.com")

	rotated, err := svc.Auth.Refresh(ctx, result.RefreshToken)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rotated.RefreshToken == result.RefreshToken {
		t.Error("expected a new refresh token")
	}
	if _, _, err := svc.Auth.Authenticate(ctx, BearerPrefix+rotated.Token); err != nil {
		t.Errorf("expected the new token to resolve, got %v", err)
	}

	_, err = svc.Auth.Refresh(ctx, result.RefreshToken)
	assertKind(t, err, apperrors.ErrUnauthorized)

	_, err = svc.Auth.Refresh(ctx, "not-a-jwt")
	assertKind(t, err, apperrors.ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	svc, db, _ := newTestServices(t)
	ctx := context.Background()
	result := registerUser(t, svc, "changer@example.com")

	var user models.User
	if err := db.First(&user, "id = ?", result.User.ID).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}

	_, err := svc.Auth.ChangePassword(ctx, &user, ChangePasswordInput{
		OldPassword: "wrong", NewPassword: "newpassword1", NewPasswordConfirm: "newpassword1",
	})
	appErr := assertKind(t, err, apperrors.ErrValidation)
	if len(appErr.Fields["old_password"]) != 1 {
		t.Errorf("expected an old_password error, got %v", appErr.Fields)
	}

	_, err = svc.Auth.ChangePassword(ctx, &user, ChangePasswordInput{
		OldPassword: "password123", NewPassword: "short", NewPasswordConfirm: "other",
	})
	appErr = assertKind(t, err, apperrors.ErrValidation)
	if len(appErr.Fields["new_password"]) == 0 || len(appErr.Fields["new_password_confirm"]) == 0 {
		t.Errorf("expected new_password errors, got %v", appErr.Fields)
	}

	changed, err := svc.Auth.ChangePassword(ctx, &user, ChangePasswordInput{
		OldPassword: "password123", NewPassword: "newpassword1", NewPasswordConfirm: "newpassword1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, _, err = svc.Auth.Authenticate(ctx, BearerPrefix+result.Token)
	assertKind(t, err, apperrors.ErrUnauthorized)
	if _, _, err := svc.Auth.Authenticate(ctx, BearerPrefix+changed.Token); err != nil {
		t.Errorf("expected the new token to resolve, got %v", err)
	}
	if _, err := svc.Auth.Login(ctx, "changer@example.com", "newpassword1"); err != nil {
		t.Errorf("expected login with the new password, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, db, _ := newTestServices(t)
	result := registerUser(t, svc, "profile@example.com")

	var user models.User
	if err := db.First(&user, "id = ?", result.User.ID).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	updated, err := svc.Auth.UpdateProfile(context.Background(), &user, ProfileInput{FirstName: "Renamed"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.FirstName != "Renamed" || updated.LastName != "User" {
		t.Errorf("expected only the first name to change, got %s %s", updated.FirstName, updated.LastName)
	}
}
