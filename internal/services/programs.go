package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/models"
	"health-registry-server/internal/validation"
)

const msgProgramNotFound = "Program not found"

var programOrdering = map[string]string{
	"name":       "name",
	"start_date": "start_date",
	"status":     "status",
	"created_at": "created_at",
}

const defaultProgramOrder = "start_date DESC, created_at DESC"

// ProgramInput is the writable part of a program. On partial updates absent
// fields are left unchanged. EndDate and Capacity are cleared by an explicit
// null, and by their absence on a full update.
type ProgramInput struct {
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	StartDate   *string          `json:"start_date"`
	EndDate     Nullable[string] `json:"end_date"`
	Status      *string          `json:"status" validate:"omitempty,oneof=planned active completed"`
	Capacity    Nullable[int]    `json:"capacity"`
}

// apply copies the input onto p and validates the resulting program.
func (in ProgramInput) apply(p *models.HealthProgram, partial bool) validation.FieldErrors {
	errs := validation.FieldErrors{}

	setRequiredString(errs, "name", in.Name, &p.Name, partial)
	setRequiredString(errs, "description", in.Description, &p.Description, partial)

	switch {
	case in.StartDate != nil:
		if d, fe := validation.ParseDate(*in.StartDate); fe != nil {
			errs.Add("start_date", fe)
		} else {
			p.StartDate = models.NewDate(d)
		}
	case !partial:
		errs.AddMessage("start_date", msgRequired)
	}

	if raw, ok := in.EndDate.Get(); ok && raw != "" {
		if d, fe := validation.ParseDate(raw); fe != nil {
			errs.Add("end_date", fe)
		} else {
			end := models.NewDate(d)
			p.EndDate = &end
		}
	} else if in.EndDate.IsSet() || !partial {
		p.EndDate = nil
	}

	if in.Status != nil {
		p.Status = models.ProgramStatus(*in.Status)
	}
	if p.Status == "" {
		p.Status = models.ProgramStatusPlanned
	}

	if capacity, ok := in.Capacity.Get(); ok {
		if fe := validation.ValidateProgramCapacity(&capacity); fe != nil {
			errs.Add("capacity", fe)
		} else {
			p.Capacity = &capacity
		}
	} else if in.Capacity.IsSet() || !partial {
		p.Capacity = nil
	}

	if errs.HasErrors() {
		return errs
	}

	var end *time.Time
	if p.EndDate != nil {
		t := time.Time(*p.EndDate)
		end = &t
	}
	errs.Add(validation.NonFieldErrors, validation.ValidateDateRange(time.Time(p.StartDate), end))
	if p.Status == models.ProgramStatusCompleted && p.EndDate == nil {
		errs.AddMessage(validation.NonFieldErrors, "End date is required for completed programs.")
	}
	return errs
}

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
)

func setRequiredString(errs validation.FieldErrors, field string, in *string, dst *string, partial bool) {
	switch {
	case in == nil:
		if !partial {
			errs.AddMessage(field, msgRequired)
		}
	case strings.TrimSpace(*in) == "":
		errs.AddMessage(field, msgBlank)
	default:
		*dst = strings.TrimSpace(*in)
	}
}

// ProgramFilter narrows a program listing.
type ProgramFilter struct {
	Status          string
	StartDateAfter  *time.Time
	StartDateBefore *time.Time
	Search          string
	Ordering        string
}

// ProgramService manages health programs.
type ProgramService struct {
	db *gorm.DB
}

// NewProgramService creates a new ProgramService.
func NewProgramService(db *gorm.DB) *ProgramService {
	return &ProgramService{db: db}
}

// Create validates and stores a new program.
func (s *ProgramService) Create(ctx context.Context, in ProgramInput) (*models.ProgramResponse, error) {
	var program models.HealthProgram
	if errs := in.apply(&program, false); errs.HasErrors() {
		return nil, apperrors.Validation(errs)
	}
	if err := s.db.WithContext(ctx).Create(&program).Error; err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}
	resp := program.ToResponse(0)
	return &resp, nil
}

// Get loads one program with its enrolled-client count.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.ProgramResponse, error) {
	program, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	count, err := s.enrolledCount(s.db.WithContext(ctx), program.ID)
	if err != nil {
		return nil, err
	}
	resp := program.ToResponse(count)
	return &resp, nil
}

// Update applies in to the program. A partial update only touches the
// supplied fields; a full update requires every mandatory field.
func (s *ProgramService) Update(ctx context.Context, id string, in ProgramInput, partial bool) (*models.ProgramResponse, error) {
	db := s.db.WithContext(ctx)
	program, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if errs := in.apply(program, partial); errs.HasErrors() {
		return nil, apperrors.Validation(errs)
	}
	if err := db.Save(program).Error; err != nil {
		return nil, fmt.Errorf("failed to update program: %w", err)
	}
	count, err := s.enrolledCount(db, program.ID)
	if err != nil {
		return nil, err
	}
	resp := program.ToResponse(count)
	return &resp, nil
}

// Delete removes the program and its enrollments in one transaction.
func (s *ProgramService) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return apperrors.NotFound(msgProgramNotFound)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("program_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
			return fmt.Errorf("failed to delete program enrollments: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&models.HealthProgram{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete program: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound(msgProgramNotFound)
		}
		return nil
	})
}

// List returns programs matching filter, newest start date first by default.
func (s *ProgramService) List(ctx context.Context, filter ProgramFilter, page Pagination) (Page[models.ProgramResponse], error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.HealthProgram{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StartDateAfter != nil {
		query = query.Where("start_date >= ?", models.NewDate(*filter.StartDateAfter))
	}
	if filter.StartDateBefore != nil {
		query = query.Where("start_date <= ?", models.NewDate(*filter.StartDateBefore))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		pattern := containsPattern(q)
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')", pattern, pattern)
	}

	query = query.Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return Page[models.ProgramResponse]{}, fmt.Errorf("failed to count programs: %w", err)
	}

	var programs []models.HealthProgram
	order := orderClause(filter.Ordering, programOrdering, defaultProgramOrder)
	if err := page.apply(query.Order(order)).Find(&programs).Error; err != nil {
		return Page[models.ProgramResponse]{}, fmt.Errorf("failed to list programs: %w", err)
	}

	ids := make([]string, 0, len(programs))
	for _, p := range programs {
		ids = append(ids, p.ID)
	}
	counts, err := enrolledCounts(db, ids)
	if err != nil {
		return Page[models.ProgramResponse]{}, err
	}

	results := make([]models.ProgramResponse, 0, len(programs))
	for i := range programs {
		results = append(results, programs[i].ToResponse(counts[programs[i].ID]))
	}
	return newPage(page, count, results), nil
}

// Clients lists the clients enrolled in a program.
func (s *ProgramService) Clients(ctx context.Context, id string, page Pagination) (Page[models.ClientResponse], error) {
	db := s.db.WithContext(ctx)
	program, err := s.find(db, id)
	if err != nil {
		return Page[models.ClientResponse]{}, err
	}
	query := db.Model(&models.Client{}).Where("id IN (?)",
		db.Model(&models.Enrollment{}).Select("client_id").Where("program_id = ?", program.ID))
	return listClients(query, defaultClientOrder, page)
}

func (s *ProgramService) find(db *gorm.DB, id string) (*models.HealthProgram, error) {
	if !isValidID(id) {
		return nil, apperrors.NotFound(msgProgramNotFound)
	}
	var program models.HealthProgram
	if err := db.First(&program, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(msgProgramNotFound)
		}
		return nil, fmt.Errorf("failed to load program: %w", err)
	}
	return &program, nil
}

func (s *ProgramService) enrolledCount(db *gorm.DB, programID string) (int64, error) {
	var count int64
	if err := db.Model(&models.Enrollment{}).Where("program_id = ?", programID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

func enrolledCounts(db *gorm.DB, programIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(programIDs))
	if len(programIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ProgramID string
		Total     int64
	}
	if err := db.Model(&models.Enrollment{}).
		Select("program_id, COUNT(*) AS total").
		Where("program_id IN ?", programIDs).
		Group("program_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}
	for _, r := range rows {
		counts[r.ProgramID] = r.Total
	}
	return counts, nil
}
