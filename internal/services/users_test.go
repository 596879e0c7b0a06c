package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/models"
)

func TestSetActive_DisableRevokesTokens(t *testing.T) {
	svc, db, _ := newTestServices(t)
	ctx := context.Background()
	result := registerUser(t, svc, "staff@example.com")
	if _, err := svc.Auth.Login(ctx, "staff@example.com", "password123"); err != nil {
		t.Fatalf("failed to log in: %v", err)
	}

	user, err := svc.Users.SetActive(ctx, result.User.ID, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.IsActive {
		t.Error("expected user to be inactive")
	}
	if n := countRows(t, db, &models.AuthToken{}, "user_id = ?", result.User.ID); n != 0 {
		t.Errorf("expected all auth tokens to be deleted, got %d", n)
	}
	if n := countRows(t, db, &models.RefreshToken{}, "user_id = ? AND is_revoked = ?", result.User.ID, false); n != 0 {
		t.Errorf("expected all refresh tokens to be revoked, got %d", n)
	}
	if n := countRows(t, db, &models.User{}, "id = ? AND is_active = ?", result.User.ID, false); n != 1 {
		t.Error("expected is_active=false to be persisted")
	}

	user, err = svc.Users.SetActive(ctx, result.User.ID, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !user.IsActive {
		t.Error("expected user to be active again")
	}

	_, err = svc.Users.SetActive(ctx, uuid.NewString(), false)
	assertKind(t, err, apperrors.ErrNotFound)
}

func TestCreateSuperuser(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	user, err := svc.Users.CreateSuperuser(ctx, "admin@Example.com", "adminpass1", "Ada", "Admin")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !user.IsStaff || !user.IsActive {
		t.Errorf("expected an active staff user, got %+v", user.Sanitize())
	}
	if user.Email != "admin@example.com" {
		t.Errorf("expected normalized email, got %s", user.Email)
	}

	_, err = svc.Users.CreateSuperuser(ctx, "admin@example.com", "adminpass1", "Ada", "Admin")
	assertKind(t, err, apperrors.ErrConflict)
	_, err = svc.Users.CreateSuperuser(ctx, "other@example.com", "weak", "", "")
	assertKind(t, err, apperrors.ErrValidation)
	_, err = svc.Users.CreateSuperuser(ctx, "not-an-email", "adminpass1", "", "")
	assertKind(t, err, apperrors.ErrValidation)
}

func TestUserList(t *testing.T) {
	svc, _, _ := newTestServices(t)
	registerUser(t, svc, "first@example.com")
	registerUser(t, svc, "second@example.com")

	got, err := svc.Users.List(context.Background(), Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Count != 2 || len(got.Results) != 2 {
		t.Errorf("expected 2 users, got %d", got.Count)
	}
}
