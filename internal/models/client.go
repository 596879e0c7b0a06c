package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Gender of a client
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Client represents a patient registered with the clinic.
type Client struct {
	BaseModel
	FirstName        string         `gorm:"size:150;not null;index:idx_client_name"`
	LastName         string         `gorm:"size:150;not null;index:idx_client_name"`
	DateOfBirth      datatypes.Date `gorm:"not null;index"`
	Gender           Gender         `gorm:"size:10;not null;index"`
	ContactNumber    string         `gorm:"size:20;not null"`
	Email            string         `gorm:"size:255;not null;index"`
	Address          string         `gorm:"type:text;not null"`
	EmergencyContact string         `gorm:"size:20;not null"`
	RegistrationDate datatypes.Date `gorm:"not null;index"`

	Enrollments []Enrollment `gorm:"foreignKey:ClientID"`
}

// BeforeSave keeps stored dates at UTC midnight.
func (c *Client) BeforeSave(tx *gorm.DB) error {
	c.DateOfBirth = NewDate(time.Time(c.DateOfBirth))
	c.RegistrationDate = NewDate(time.Time(c.RegistrationDate))
	return nil
}

// ClientProgram summarises one enrollment inside a client representation.
type ClientProgram struct {
	ProgramID      string           `json:"program_id"`
	EnrollmentDate string           `json:"enrollment_date"`
	Status         EnrollmentStatus `json:"status"`
}

// ClientResponse is the API representation of a client.
type ClientResponse struct {
	ID               string          `json:"id"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	DateOfBirth      string          `json:"date_of_birth"`
	Gender           Gender          `json:"gender"`
	ContactNumber    string          `json:"contact_number"`
	Email            string          `json:"email"`
	Address          string          `json:"address"`
	EmergencyContact string          `json:"emergency_contact"`
	RegistrationDate string          `json:"registration_date"`
	Programs         []ClientProgram `json:"programs"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToResponse renders the client. Enrollments must be preloaded to be listed.
func (c *Client) ToResponse() ClientResponse {
	programs := make([]ClientProgram, 0, len(c.Enrollments))
	for _, e := range c.Enrollments {
		programs = append(programs, ClientProgram{
			ProgramID:      e.ProgramID,
			EnrollmentDate: FormatDate(e.EnrollmentDate),
			Status:         e.Status,
		})
	}
	return ClientResponse{
		ID:               c.ID,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		DateOfBirth:      FormatDate(c.DateOfBirth),
		Gender:           c.Gender,
		ContactNumber:    c.ContactNumber,
		Email:            c.Email,
		Address:          c.Address,
		EmergencyContact: c.EmergencyContact,
		RegistrationDate: FormatDate(c.RegistrationDate),
		Programs:         programs,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
