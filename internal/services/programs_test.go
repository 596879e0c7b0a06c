package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"health-registry-server/internal/apperrors"
	"health-registry-server/internal/models"
	"health-registry-server/internal/validation"
)

func TestProgramCreate_RoundTrip(t *testing.T) {
	svc, _, _ := newTestServices(t)
	ctx := context.Background()

	in := ProgramInput{
		Name:        strPtr("Hypertension"),
		Description: strPtr("Blood pressure follow-up"),
		StartDate:   strPtr("2025-06-01"),
		EndDate:     Value("2025-05-01"),
	}
	_, err := svc.Programs.Create(ctx, in)
	appErr := assertKind(t, err, apperrors.ErrValidation)
	if len(appErr.Fields[validation.NonFieldErrors]) != 1 {
		t.Fatalf("expected a date range error, got %v", appErr.Fields)
	}

	in.EndDate = Value("2025-12-01")
	created, err := svc.Programs.Create(ctx, in)
	if err != nil {
		t.Fatalf("expected no error after fixing end date, got %v", err)
	}
	if created.Status != models.ProgramStatusPlanned {
		t.Errorf("expected default status planned, got %s", created.Status)
	}
	if created.StartDate != "2025-06-01" || created.EndDate == nil || *created.EndDate != "2025-12-01" {
		t.Errorf("unexpected dates %s / %v", created.StartDate, created.EndDate)
	}

	completed := ProgramInput{
		Name:        strPtr("Polio drive"),
		Description: strPtr("Vaccination"),
		StartDate:   strPtr("2024-01-01"),
		Status:      strPtr("completed"),
	}
	_, err = svc.Programs.Create(ctx, completed)
	appErr = assertKind(t, err, apperrors.ErrValidation)
	if msgs := appErr.Fields[validation.NonFieldErrors]; len(msgs) != 1 || msgs[0] != "End date is required for completed programs." {
		t.Fatalf("expected end date required error, got %v", appErr.Fields)
	}

	completed.EndDate = Value("2024-03-01")
	if _, err := svc.Programs.Create(ctx, completed); err != nil {
		t.Fatalf("expected no error once end date is set, got %v", err)
	}
}

func TestProgramCreate_FieldErrors(t *testing.T) {
	svc, _, _ := newTestServices(t)

	_, err := svc.Programs.Create(context.Background(), ProgramInput{
		Name:      strPtr("  "),
		StartDate: strPtr("01/06/2025"),
		Capacity:  Value(0),
	})
	appErr := assertKind(t, err, apperrors.ErrValidation)
	for _, field := range []string{"name", "description", "start_date", "capacity"} {
		if len(appErr.Fields[field]) == 0 {
			t.Errorf("expected an error for %s, got %v", field, appErr.Fields)
		}
	}
}

func TestProgramUpdate_PartialAndFull(t *testing.T) {
	svc, db, _ := newTestServices(t)
	ctx := context.Background()
	program := createProgram(t, db, "Asthma", func(p *models.HealthProgram) { p.Capacity = intPtr(10) })

	updated, err := svc.Programs.Update(ctx, program.ID, ProgramInput{Capacity: Value(20)}, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Capacity == nil || *updated.Capacity != 20 || updated.Name != "Asthma" {
		t.Errorf("expected capacity 20 and name kept, got %+v", updated)
	}

	_, err = svc.Programs.Update(ctx, program.ID, ProgramInput{Name: strPtr("Asthma care")}, false)
	appErr := assertKind(t, err, apperrors.ErrValidation)
	if len(appErr.Fields["description"]) == 0 || len(appErr.Fields["start_date"]) == 0 {
		t.Errorf("expected required errors on full update, got %v", appErr.Fields)
	}

	_, err = svc.Programs.Update(ctx, program.ID, ProgramInput{Status: strPtr("completed")}, true)
	assertKind(t, err, apperrors.ErrValidation)

	updated, err = svc.Programs.Update(ctx, program.ID, ProgramInput{
		Status:  strPtr("completed"),
		EndDate: Value("2025-09-30"),
	}, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Status != models.ProgramStatusCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}

	_, err = svc.Programs.Update(ctx, uuid.NewString(), ProgramInput{}, true)
	assertKind(t, err, apperrors.ErrNotFound)
}

func TestProgramUpdate_ClearsOptionalFields(t *testing.T) {
	svc, db, _ := newTestServices(t)
	ctx := context.Background()
	end := models.NewDate(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	withLimits := func(p *models.HealthProgram) {
		p.Capacity = intPtr(5)
		p.EndDate = &end
	}

	decodeInput := func(body string) ProgramInput {
		t.Helper()
		var in ProgramInput
		if err := json.Unmarshal([]byte(body), &in); err != nil {
			t.Fatalf("failed to decode %s: %v", body, err)
		}
		return in
	}
	full := `"name":"Diabetes","description":"Glucose checks","start_date":"2025-01-01"`

	tests := []struct {
		name     string
		body     string
		partial  bool
		cleared  bool
		capacity int
	}{
		{"full update with explicit nulls", `{` + full + `,"capacity":null,"end_date":null}`, false, true, 0},
		{"full update omitting optional fields", `{` + full + `}`, false, true, 0},
		{"partial update with explicit nulls", `{"capacity":null,"end_date":null}`, true, true, 0},
		{"partial update leaving them out", `{"name":"Diabetes care"}`, true, false, 5},
		{"partial update with a new capacity", `{"capacity":8}`, true, false, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := createProgram(t, db, "Diabetes", withLimits)

			updated, err := svc.Programs.Update(ctx, program.ID, decodeInput(tt.body), tt.partial)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tt.cleared {
				if updated.Capacity != nil || updated.EndDate != nil {
					t.Errorf("expected capacity and end date cleared, got %v / %v", updated.Capacity, updated.EndDate)
				}
			} else if updated.Capacity == nil || *updated.Capacity != tt.capacity || updated.EndDate == nil {
				t.Errorf("expected capacity %d and end date kept, got %v / %v", tt.capacity, updated.Capacity, updated.EndDate)
			}

			var stored models.HealthProgram
			if err := db.First(&stored, "id = ?", program.ID).Error; err != nil {
				t.Fatalf("failed to reload program: %v", err)
			}
			if tt.cleared && (stored.Capacity != nil || stored.EndDate != nil) {
				t.Errorf("expected NULL columns, got %v / %v", stored.Capacity, stored.EndDate)
			}
		})
	}
}

func TestProgramGet_EnrolledCount(t *testing.T) {
	svc, db, _ := newTestServices(t)
	program := createProgram(t, db, "Counted", nil)
	for _, name := range []string{"X", "Y"} {
		c := createClient(t, db, name, "Z", nil)
		enroll(t, db, c.ID, program.ID)
	}

	got, err := svc.Programs.Get(context.Background(), program.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.EnrolledClients != 2 {
		t.Errorf("expected 2 enrolled clients, got %d", got.EnrolledClients)
	}

	_, err = svc.Programs.Get(context.Background(), "bogus")
	assertKind(t, err, apperrors.ErrNotFound)
}

func TestProgramList_FiltersAndOrdering(t *testing.T) {
	svc, db, _ := newTestServices(t)
	ctx := context.Background()
	startOn := func(m time.Month) datatypes.Date {
		return models.NewDate(time.Date(2025, m, 10, 0, 0, 0, 0, time.UTC))
	}
	createProgram(t, db, "Early", func(p *models.HealthProgram) {
		p.StartDate = startOn(time.January)
		p.Status = models.ProgramStatusPlanned
	})
	mid := createProgram(t, db, "Middle", func(p *models.HealthProgram) { p.StartDate = startOn(time.March) })
	createProgram(t, db, "Late", func(p *models.HealthProgram) { p.StartDate = startOn(time.May) })
	client := createClient(t, db, "Counted", "Client", nil)
	enroll(t, db, client.ID, mid.ID)

	page := Pagination{Page: 1, PageSize: 10}

	all, err := svc.Programs.List(ctx, ProgramFilter{}, page)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	names := programNames(all.Results)
	if want := []string{"Late", "Middle", "Early"}; !equalStrings(names, want) {
		t.Errorf("expected default ordering %v, got %v", want, names)
	}
	if all.Results[1].EnrolledClients != 1 {
		t.Errorf("expected Middle to have 1 enrolled client, got %d", all.Results[1].EnrolledClients)
	}

	after := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	before := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	ranged, err := svc.Programs.List(ctx, ProgramFilter{StartDateAfter: &after, StartDateBefore: &before}, page)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if names := programNames(ranged.Results); !equalStrings(names, []string{"Middle"}) {
		t.Errorf("expected only Middle in range, got %v", names)
	}

	planned, err := svc.Programs.List(ctx, ProgramFilter{Status: "planned"}, page)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if names := programNames(planned.Results); !equalStrings(names, []string{"Early"}) {
		t.Errorf("expected only Early to be planned, got %v", names)
	}

	byName, err := svc.Programs.List(ctx, ProgramFilter{Ordering: "name"}, page)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if names := programNames(byName.Results); !equalStrings(names, []string{"Early", "Late", "Middle"}) {
		t.Errorf("expected name ordering, got %v", names)
	}

	searched, err := svc.Programs.List(ctx, ProgramFilter{Search: "LATE"}, page)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if searched.Count != 1 {
		t.Errorf("expected 1 search match, got %d", searched.Count)
	}

	paged, err := svc.Programs.List(ctx, ProgramFilter{}, Pagination{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if paged.Count != 3 || len(paged.Results) != 1 || paged.Results[0].Name != "Early" {
		t.Errorf("expected second page to hold Early only, got count=%d %v", paged.Count, programNames(paged.Results))
	}
}

func TestProgramDelete_CascadesEnrollments(t *testing.T) {
	svc, db, _ := newTestServices(t)
	ctx := context.Background()
	program := createProgram(t, db, "Removed", nil)
	other := createProgram(t, db, "Kept", nil)
	client := createClient(t, db, "Lucy", "Auma", nil)
	enroll(t, db, client.ID, program.ID)
	enroll(t, db, client.ID, other.ID)

	if err := svc.Programs.Delete(ctx, program.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n := countRows(t, db, &models.Enrollment{}, "program_id = ?", program.ID); n != 0 {
		t.Errorf("expected enrollments to be removed, got %d", n)
	}
	if n := countRows(t, db, &models.Enrollment{}, "program_id = ?", other.ID); n != 1 {
		t.Errorf("expected other enrollments to remain, got %d", n)
	}
	if n := countRows(t, db, &models.Client{}, "id = ?", client.ID); n != 1 {
		t.Errorf("expected the client to remain, got %d", n)
	}

	assertKind(t, svc.Programs.Delete(ctx, program.ID), apperrors.ErrNotFound)
}

func TestProgramClients(t *testing.T) {
	svc, db, _ := newTestServices(t)
	ctx := context.Background()
	program := createProgram(t, db, "Clinic", nil)
	in := createClient(t, db, "In", "Program", nil)
	createClient(t, db, "Out", "Program", nil)
	enroll(t, db, in.ID, program.ID)

	got, err := svc.Programs.Clients(ctx, program.ID, Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Count != 1 || got.Results[0].ID != in.ID {
		t.Fatalf("expected only the enrolled client, got %+v", got)
	}
	if len(got.Results[0].Programs) != 1 || got.Results[0].Programs[0].ProgramID != program.ID {
		t.Errorf("expected the enrollment in the client representation, got %+v", got.Results[0].Programs)
	}

	_, err = svc.Programs.Clients(ctx, uuid.NewString(), Pagination{Page: 1, PageSize: 10})
	assertKind(t, err, apperrors.ErrNotFound)
}

func programNames(programs []models.ProgramResponse) []string {
	names := make([]string, 0, len(programs))
	for _, p := range programs {
		names = append(names, p.Name)
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
