package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProgramStatus represents the lifecycle stage of a health program
type ProgramStatus string

const (
	ProgramStatusPlanned   ProgramStatus = "planned"
	ProgramStatusActive    ProgramStatus = "active"
	ProgramStatusCompleted ProgramStatus = "completed"
)

// ProgramStatuses lists every accepted program status.
var ProgramStatuses = []ProgramStatus{ProgramStatusPlanned, ProgramStatusActive, ProgramStatusCompleted}

// HealthProgram is a named program (TB, malaria, prenatal care...) with a time window.
type HealthProgram struct {
	BaseModel
	Name        string          `gorm:"size:255;not null;index"`
	Description string          `gorm:"type:text;not null"`
	StartDate   datatypes.Date  `gorm:"not null;index"`
	EndDate     *datatypes.Date `gorm:"default:null"`
	Status      ProgramStatus   `gorm:"size:20;not null;default:'planned';index"`
	Capacity    *int            `gorm:"default:null"`

	Enrollments []Enrollment `gorm:"foreignKey:ProgramID"`
}

// BeforeSave keeps stored dates at UTC midnight.
func (p *HealthProgram) BeforeSave(tx *gorm.DB) error {
	p.StartDate = NewDate(time.Time(p.StartDate))
	if p.EndDate != nil {
		end := NewDate(time.Time(*p.EndDate))
		p.EndDate = &end
	}
	return nil
}

// ProgramResponse is the API representation of a program.
type ProgramResponse struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	StartDate       string        `json:"start_date"`
	EndDate         *string       `json:"end_date"`
	Status          ProgramStatus `json:"status"`
	Capacity        *int          `json:"capacity"`
	EnrolledClients int64         `json:"enrolled_clients"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ToResponse renders the program with its enrolled-client count.
func (p *HealthProgram) ToResponse(enrolled int64) ProgramResponse {
	return ProgramResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		StartDate:       FormatDate(p.StartDate),
		EndDate:         formatOptionalDate(p.EndDate),
		Status:          p.Status,
		Capacity:        p.Capacity,
		EnrolledClients: enrolled,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// HasCapacityFor reports whether another enrollment fits given the current count.
func (p *HealthProgram) HasCapacityFor(enrolled int64) bool {
	return p.Capacity == nil || enrolled < int64(*p.Capacity)
}
