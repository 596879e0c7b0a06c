package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/events"
	"health-registry-server/internal/models"
	"health-registry-server/internal/validation"
)

// EnrollmentFilter narrows an enrollment listing.
type EnrollmentFilter struct {
	ClientID  string
	ProgramID string
	Status    string
}

// List returns enrollments ordered by enrollment date, newest first.
func (s *EnrollmentService) List(ctx context.Context, filter EnrollmentFilter, page Pagination) (Page[models.Enrollment], error) {
	query := s.db.WithContext(ctx).Model(&models.Enrollment{})
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.ProgramID != "" {
		query = query.Where("program_id = ?", filter.ProgramID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query = query.Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return Page[models.Enrollment]{}, fmt.Errorf("failed to count enrollments: %w", err)
	}
	var enrollments []models.Enrollment
	if err := page.apply(query.Order("enrollment_date DESC, created_at DESC")).Find(&enrollments).Error; err != nil {
		return Page[models.Enrollment]{}, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return newPage(page, count, enrollments), nil
}

// Get loads one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	if !isValidID(id) {
		return nil, apperrors.NotFound(MsgEnrollmentAbsent)
	}
	var enrollment models.Enrollment
	if err := s.db.WithContext(ctx).First(&enrollment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(MsgEnrollmentAbsent)
		}
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}
	return &enrollment, nil
}

// EnrollmentUpdate carries the mutable enrollment fields. Nil leaves a
// field unchanged.
type EnrollmentUpdate struct {
	Status *string `json:"status" validate:"omitempty,oneof=active completed suspended"`
	Notes  *string `json:"notes"`
}

// Update changes status or notes. An active status is refused while the
// program is completed.
func (s *EnrollmentService) Update(ctx context.Context, id string, in EnrollmentUpdate) (*models.Enrollment, error) {
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.Status != nil {
			status := models.EnrollmentStatus(*in.Status)
			if !slices.Contains(models.EnrollmentStatuses, status) {
				fields := validation.FieldErrors{}
				fields.AddMessage("status", fmt.Sprintf("\"%s\" is not a valid choice.", *in.Status))
				return apperrors.Validation(fields)
			}
			var program models.HealthProgram
			if err := tx.First(&program, "id = ?", enrollment.ProgramID).Error; err != nil {
				return fmt.Errorf("failed to load program: %w", err)
			}
			if fe := validation.ValidateEnrollmentStatus(string(status), string(program.Status)); fe != nil {
				fields := validation.FieldErrors{}
				fields.Add("status", fe)
				return apperrors.Validation(fields)
			}
			enrollment.Status = status
		}
		if in.Notes != nil {
			enrollment.Notes = in.Notes
		}
		if err := tx.Save(enrollment).Error; err != nil {
			return fmt.Errorf("failed to update enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EnrollmentUpdated, enrollment)
	return enrollment, nil
}
