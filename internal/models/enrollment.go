package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"health-registry-server/internal/validation"
)

// EnrollmentStatus represents the status of a client's participation in a program
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusSuspended EnrollmentStatus = "suspended"
)

// EnrollmentStatuses lists every accepted enrollment status.
var EnrollmentStatuses = []EnrollmentStatus{EnrollmentStatusActive, EnrollmentStatusCompleted, EnrollmentStatusSuspended}

// Enrollment links one client to one program. The (client, program) pair is unique.
type Enrollment struct {
	BaseModel
	ClientID       string           `gorm:"size:36;not null;uniqueIndex:idx_enrollment_client_program,priority:1"`
	ProgramID      string           `gorm:"size:36;not null;uniqueIndex:idx_enrollment_client_program,priority:2;index"`
	EnrollmentDate datatypes.Date   `gorm:"not null;index"`
	Status         EnrollmentStatus `gorm:"size:20;not null;default:'active';index"`
	Notes          *string          `gorm:"type:text"`
}

func (e *Enrollment) BeforeSave(tx *gorm.DB) error {
	e.EnrollmentDate = NewDate(time.Time(e.EnrollmentDate))
	return nil
}

// EnrollmentResponse is the API representation of an enrollment.
type EnrollmentResponse struct {
	ID             string           `json:"id"`
	ClientID       string           `json:"client_id"`
	ProgramID      string           `json:"program_id"`
	EnrollmentDate string           `json:"enrollment_date"`
	Status         EnrollmentStatus `json:"status"`
	Notes          *string          `json:"notes"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ToResponse renders the enrollment.
func (e *Enrollment) ToResponse() EnrollmentResponse {
	return EnrollmentResponse{
		ID:             e.ID,
		ClientID:       e.ClientID,
		ProgramID:      e.ProgramID,
		EnrollmentDate: FormatDate(e.EnrollmentDate),
		Status:         e.Status,
		Notes:          e.Notes,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// NewDate stores the calendar date of t.
func NewDate(t time.Time) datatypes.Date {
	return datatypes.Date(validation.TruncateDate(t))
}

// FormatDate renders d as YYYY-MM-DD.
func FormatDate(d datatypes.Date) string {
	return time.Time(d).Format(validation.DateLayout)
}

func formatOptionalDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := FormatDate(*d)
	return &s
}
