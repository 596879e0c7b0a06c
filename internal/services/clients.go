package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/models"
	"health-registry-server/internal/validation"
)

var clientOrdering = map[string]string{
	"first_name":        "first_name",
	"last_name":         "last_name",
	"registration_date": "registration_date",
	"created_at":        "created_at",
}

const defaultClientOrder = "registration_date DESC, created_at DESC"

const msgSearchQueryRequired = "Please provide a search query"

// daysPerYear is the calendar-naive year length used by the age filters.
const daysPerYear = 365

// ClientInput is the writable part of a client. On partial updates nil
// fields are left unchanged.
type ClientInput struct {
	FirstName        *string `json:"first_name" validate:"omitempty,max=150"`
	LastName         *string `json:"last_name" validate:"omitempty,max=150"`
	DateOfBirth      *string `json:"date_of_birth"`
	Gender           *string `json:"gender" validate:"omitempty,oneof=male female other"`
	ContactNumber    *string `json:"contact_number" validate:"omitempty,max=20"`
	Email            *string `json:"email" validate:"omitempty,email,max=255"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergency_contact" validate:"omitempty,max=20"`
}

func (in ClientInput) apply(c *models.Client, partial bool) validation.FieldErrors {
	errs := validation.FieldErrors{}

	setRequiredString(errs, "first_name", in.FirstName, &c.FirstName, partial)
	setRequiredString(errs, "last_name", in.LastName, &c.LastName, partial)
	setRequiredString(errs, "address", in.Address, &c.Address, partial)

	var email string
	setRequiredString(errs, "email", in.Email, &email, partial)
	if email != "" {
		c.Email = strings.ToLower(email)
	}

	var gender string
	setRequiredString(errs, "gender", in.Gender, &gender, partial)
	if gender != "" {
		c.Gender = models.Gender(gender)
	}

	switch {
	case in.DateOfBirth != nil:
		if d, fe := validation.ParseDate(*in.DateOfBirth); fe != nil {
			errs.Add("date_of_birth", fe)
		} else {
			c.DateOfBirth = models.NewDate(d)
		}
	case !partial:
		errs.AddMessage("date_of_birth", msgRequired)
	}

	setPhone(errs, "contact_number", in.ContactNumber, &c.ContactNumber, partial)
	setPhone(errs, "emergency_contact", in.EmergencyContact, &c.EmergencyContact, partial)
	return errs
}

func setPhone(errs validation.FieldErrors, field string, in *string, dst *string, partial bool) {
	if in == nil {
		if !partial {
			errs.AddMessage(field, msgRequired)
		}
		return
	}
	phone, fe := validation.ValidatePhoneNumber(strings.TrimSpace(*in))
	if fe != nil {
		errs.Add(field, fe)
		return
	}
	*dst = phone
}

// ClientFilter narrows a client listing. Age bounds compare the date of
// birth against today minus 365 days per year.
type ClientFilter struct {
	Name             string
	Gender           string
	RegistrationDate *time.Time
	ProgramID        string
	MinAge           *int
	MaxAge           *int
	Search           string
	Ordering         string
}

// ClientService manages client records.
type ClientService struct {
	db    *gorm.DB
	today func() time.Time
}

// NewClientService creates a new ClientService.
func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db, today: validation.Today}
}

// Create validates and stores a new client registered today.
func (s *ClientService) Create(ctx context.Context, in ClientInput) (*models.Client, error) {
	client := models.Client{RegistrationDate: models.NewDate(s.today())}
	if errs := in.apply(&client, false); errs.HasErrors() {
		return nil, apperrors.Validation(errs)
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &client, nil
}

// Get loads one client with its enrollments.
func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	if !isValidID(id) {
		return nil, apperrors.NotFound(MsgClientNotFound)
	}
	var client models.Client
	err := s.db.WithContext(ctx).
		Preload("Enrollments", orderEnrollments).
		First(&client, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(MsgClientNotFound)
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return &client, nil
}

// Update applies in to the client. Registration date is never changed.
func (s *ClientService) Update(ctx context.Context, id string, in ClientInput, partial bool) (*models.Client, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if errs := in.apply(client, partial); errs.HasErrors() {
		return nil, apperrors.Validation(errs)
	}
	if err := s.db.WithContext(ctx).Omit("Enrollments", "registration_date").Save(client).Error; err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

// Delete removes the client and its enrollments in one transaction.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return apperrors.NotFound(MsgClientNotFound)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
			return fmt.Errorf("failed to delete client enrollments: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Client{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete client: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound(MsgClientNotFound)
		}
		return nil
	})
}

// List returns clients matching filter.
func (s *ClientService) List(ctx context.Context, filter ClientFilter, page Pagination) (Page[models.ClientResponse], error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.Client{})

	if name := strings.TrimSpace(filter.Name); name != "" {
		pattern := containsPattern(name)
		query = query.Where("(LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if filter.Gender != "" {
		query = query.Where("gender = ?", filter.Gender)
	}
	if filter.RegistrationDate != nil {
		query = query.Where("registration_date = ?", models.NewDate(*filter.RegistrationDate))
	}
	if filter.ProgramID != "" {
		query = query.Where("id IN (?)",
			db.Model(&models.Enrollment{}).Select("client_id").Where("program_id = ?", filter.ProgramID))
	}
	if filter.MinAge != nil {
		query = query.Where("date_of_birth <= ?", s.ageCutoff(*filter.MinAge))
	}
	if filter.MaxAge != nil {
		query = query.Where("date_of_birth >= ?", s.ageCutoff(*filter.MaxAge))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		query = matchClientText(query, q)
	}

	return listClients(query, orderClause(filter.Ordering, clientOrdering, defaultClientOrder), page)
}

// Search matches query, case-insensitively, against first name, last name,
// email or contact number.
func (s *ClientService) Search(ctx context.Context, query string, page Pagination) (Page[models.ClientResponse], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		err := apperrors.Validation(validation.FieldErrors{"query": {msgSearchQueryRequired}})
		err.Message = msgSearchQueryRequired
		return Page[models.ClientResponse]{}, err
	}
	db := matchClientText(s.db.WithContext(ctx).Model(&models.Client{}), query)
	return listClients(db, defaultClientOrder, page)
}

func (s *ClientService) ageCutoff(years int) datatypes.Date {
	return models.NewDate(s.today().AddDate(0, 0, -daysPerYear*years))
}

func matchClientText(db *gorm.DB, query string) *gorm.DB {
	pattern := containsPattern(query)
	return db.Where(
		"(LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!' OR LOWER(contact_number) LIKE ? ESCAPE '!')",
		pattern, pattern, pattern, pattern,
	)
}

func orderEnrollments(db *gorm.DB) *gorm.DB {
	return db.Order("enrollment_date DESC, created_at DESC")
}

func listClients(query *gorm.DB, order string, page Pagination) (Page[models.ClientResponse], error) {
	query = query.Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return Page[models.ClientResponse]{}, fmt.Errorf("failed to count clients: %w", err)
	}

	var clients []models.Client
	if err := page.apply(query.Order(order)).Preload("Enrollments", orderEnrollments).Find(&clients).Error; err != nil {
		return Page[models.ClientResponse]{}, fmt.Errorf("failed to list clients: %w", err)
	}

	results := make([]models.ClientResponse, 0, len(clients))
	for i := range clients {
		results = append(results, clients[i].ToResponse())
	}
	return newPage(page, count, results), nil
}
