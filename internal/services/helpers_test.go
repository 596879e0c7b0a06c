package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/config"
	"health-registry-server/internal/events"
	"health-registry-server/internal/models"
	"health-registry-server/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTRefreshSecret:          "test-refresh-secret",
		JWTRefreshExpirationHours: 24,
	}
}

func newTestServices(t *testing.T) (*Services, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := testutil.NewDB(t)
	pub := &recordingPublisher{}
	return New(db, testConfig(), pub, zerolog.Nop()), db, pub
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func createProgram(t *testing.T, db *gorm.DB, name string, mutate func(p *models.HealthProgram)) *models.HealthProgram {
	t.Helper()
	p := &models.HealthProgram{
		Name:        name,
		Description: name + " program",
		StartDate:   models.NewDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Status:      models.ProgramStatusActive,
	}
	if mutate != nil {
		mutate(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to create program: %v", err)
	}
	return p
}

func createClient(t *testing.T, db *gorm.DB, first, last string, mutate func(c *models.Client)) *models.Client {
	t.Helper()
	c := &models.Client{
		FirstName:        first,
		LastName:         last,
		DateOfBirth:      models.NewDate(time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)),
		Gender:           models.GenderFemale,
		ContactNumber:    "555-010-2000",
		Email:            first + "." + last + "@example.com",
		Address:          "1 Clinic Road",
		EmergencyContact: "555-010-2001",
		RegistrationDate: models.NewDate(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
	}
	if mutate != nil {
		mutate(c)
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func enroll(t *testing.T, db *gorm.DB, clientID, programID string) {
	t.Helper()
	e := &models.Enrollment{
		ClientID:       clientID,
		ProgramID:      programID,
		EnrollmentDate: models.NewDate(time.Now()),
		Status:         models.EnrollmentStatusActive,
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("failed to create enrollment: %v", err)
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func assertKind(t *testing.T, err error, kind error) *apperrors.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v error, got %v", kind, err)
	}
	appErr, ok := apperrors.As(err)
	if !ok {
		t.Fatalf("expected *apperrors.Error, got %T", err)
	}
	return appErr
}
