package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"health-registry-server/internal/config"
)

func newQueryContext(rawQuery string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c, rec
}

func TestQueryParams_Pagination(t *testing.T) {
	cfg := config.PaginationConfig{DefaultPageSize: 10, MaxPageSize: 25}

	tests := []struct {
		name     string
		query    string
		page     int
		pageSize int
		valid    bool
	}{
		{"defaults", "", 1, 10, true},
		{"explicit", "page=3&page_size=5", 3, 5, true},
		{"capped", "page_size=1000", 1, 25, true},
		{"zero page", "page=0", 1, 10, false},
		{"bad size", "page_size=ten", 1, 10, false},
		{"last allowed page", "page=100000", 100000, 10, true},
		{"beyond last page", "page=100001", 1, 10, false},
		{"overflowing page", "page=9223372036854775807", 1, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newQueryContext(tt.query)
			q := newQueryParams(c)
			got := q.pagination(cfg)
			if got.Page != tt.page || got.PageSize != tt.pageSize {
				t.Errorf("expected page %d size %d, got %+v", tt.page, tt.pageSize, got)
			}
			if ok := q.ok(); ok != tt.valid {
				t.Errorf("expected ok=%v, got %v", tt.valid, ok)
			}
			if !tt.valid && rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestQueryParams_TypedValues(t *testing.T) {
	c, _ := newQueryContext("min_age=30&max_age=-1&registration_date=2025-02-03&gender=male&program=6f1c2c9e-8f7a-4c8e-9f53-2d8c1d6c9b10")
	q := newQueryParams(c)

	if got := q.nonNegativeInt("min_age"); got == nil || *got != 30 {
		t.Errorf("expected min_age 30, got %v", got)
	}
	if got := q.nonNegativeInt("max_age"); got != nil {
		t.Errorf("expected a negative age to be rejected, got %v", *got)
	}
	if got := q.date("registration_date"); got == nil || got.Day() != 3 {
		t.Errorf("expected a parsed date, got %v", got)
	}
	if got := q.choice("gender", genders...); got != "male" {
		t.Errorf("expected male, got %q", got)
	}
	if got := q.uuid("program"); got == "" {
		t.Error("expected the program id to be accepted")
	}
	if q.nonNegativeInt("absent") != nil || q.date("absent") != nil {
		t.Error("expected absent parameters to be nil")
	}

	if len(q.errs) != 1 || len(q.errs["max_age"]) != 1 {
		t.Errorf("expected exactly one error on max_age, got %v", q.errs)
	}
}
