package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/events"
	"health-registry-server/internal/models"
	"health-registry-server/internal/validation"
)

// Enrollment workflow rejections.
const (
	MsgInvalidProgram   = "Invalid program ID"
	MsgProgramCompleted = "Cannot enroll in a completed program"
	MsgProgramFull      = "Program has reached maximum capacity"
	MsgAlreadyEnrolled  = "Client is already enrolled in this program"
	MsgClientNotFound   = "Client not found"
	MsgEnrollmentAbsent = "Enrollment not found"
)

// EnrollmentService creates and maintains enrollments.
type EnrollmentService struct {
	db        *gorm.DB
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(db *gorm.DB, publisher events.Publisher, lgr zerolog.Logger) *EnrollmentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &EnrollmentService{
		db:        db,
		publisher: publisher,
		logger:    lgr.With().Str("component", "enrollments").Logger(),
		now:       time.Now,
	}
}

// Enroll registers clientID in programID. The checks run in order and the
// first failure is returned:
//
//  1. the program exists
//  2. the program is not completed
//  3. the program has room, when a capacity is set
//  4. the client is not already enrolled
//
// A client already enrolled in a full program gets the duplicate error: the
// repeat call would not take a seat.
//
// Checks and insert share one transaction. Where the dialect supports it the
// program row is locked so concurrent capacity checks serialize; the unique
// index on (client_id, program_id) catches any remaining race.
func (s *EnrollmentService) Enroll(ctx context.Context, clientID, programID string) (*models.Enrollment, error) {
	if !isValidID(clientID) {
		return nil, apperrors.NotFound(MsgClientNotFound)
	}
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(MsgClientNotFound)
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	var enrollment *models.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		program, err := lockProgram(tx, programID)
		if err != nil {
			return err
		}

		if program.Status == models.ProgramStatusCompleted {
			return apperrors.InvalidState(MsgProgramCompleted).WithField("program_id")
		}

		var existing int64
		if err := tx.Model(&models.Enrollment{}).
			Where("client_id = ? AND program_id = ?", client.ID, program.ID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing enrollment: %w", err)
		}

		if program.Capacity != nil {
			var enrolled int64
			if err := tx.Model(&models.Enrollment{}).Where("program_id = ?", program.ID).Count(&enrolled).Error; err != nil {
				return fmt.Errorf("failed to count enrollments: %w", err)
			}
			if !program.HasCapacityFor(enrolled) && existing == 0 {
				return apperrors.CapacityExceeded(MsgProgramFull).WithField("program_id")
			}
		}

		if existing > 0 {
			return alreadyEnrolled()
		}

		enrollment = &models.Enrollment{
			ClientID:       client.ID,
			ProgramID:      program.ID,
			EnrollmentDate: models.NewDate(s.now()),
			Status:         models.EnrollmentStatusActive,
		}
		if err := tx.Create(enrollment).Error; err != nil {
			if isDuplicateKey(err) {
				return alreadyEnrolled()
			}
			return fmt.Errorf("failed to create enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("enrollment_id", enrollment.ID).
		Str("client_id", client.ID).
		Str("program_id", programID).
		Msg("Client enrolled")
	s.publish(ctx, events.EnrollmentCreated, enrollment)
	return enrollment, nil
}

func lockProgram(tx *gorm.DB, programID string) (*models.HealthProgram, error) {
	invalid := apperrors.NotFound(MsgInvalidProgram).WithField("program_id")
	if !isValidID(programID) {
		return nil, invalid
	}
	query := tx
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var program models.HealthProgram
	if err := query.First(&program, "id = ?", programID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("failed to load program: %w", err)
	}
	return &program, nil
}

func alreadyEnrolled() error {
	return apperrors.Conflict(MsgAlreadyEnrolled).WithField(validation.NonFieldErrors)
}

func (s *EnrollmentService) publish(ctx context.Context, eventType events.Type, e *models.Enrollment) {
	evt := events.New(eventType, e.ID, e.ToResponse())
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.Warn().Err(err).Str("enrollment_id", e.ID).Str("event", string(eventType)).Msg("Failed to publish event")
	}
}
