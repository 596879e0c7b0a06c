package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"health-registry-server/internal/config"
	"health-registry-server/internal/services"
	"health-registry-server/internal/utils"
	"health-registry-server/internal/validation"
)

// queryParams collects typed query parameters and their errors so every bad
// parameter is reported at once.
type queryParams struct {
	c    *gin.Context
	errs validation.FieldErrors
}

func newQueryParams(c *gin.Context) *queryParams {
	return &queryParams{c: c, errs: validation.FieldErrors{}}
}

func (q *queryParams) str(name string) string {
	return strings.TrimSpace(q.c.Query(name))
}

func (q *queryParams) date(name string) *time.Time {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	d, fe := validation.ParseDate(raw)
	if fe != nil {
		q.errs.Add(name, fe)
		return nil
	}
	return &d
}

func (q *queryParams) nonNegativeInt(name string) *int {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		q.errs.AddMessage(name, "A valid non-negative integer is required.")
		return nil
	}
	return &n
}

func (q *queryParams) choice(name string, allowed ...string) string {
	raw := q.str(name)
	if raw == "" {
		return ""
	}
	for _, a := range allowed {
		if raw == a {
			return raw
		}
	}
	q.errs.AddMessage(name, "Select a valid choice. "+raw+" is not one of the available choices.")
	return ""
}

func (q *queryParams) uuid(name string) string {
	raw := q.str(name)
	if raw == "" {
		return ""
	}
	if _, err := uuid.Parse(raw); err != nil {
		q.errs.AddMessage(name, "Must be a valid UUID.")
		return ""
	}
	return raw
}

// pagination reads page and page_size. page runs from 1 to services.MaxPage;
// page_size is capped at the configured maximum.
func (q *queryParams) pagination(cfg config.PaginationConfig) services.Pagination {
	page := services.Pagination{Page: 1, PageSize: cfg.DefaultPageSize}
	if raw := q.str("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > services.MaxPage {
			q.errs.AddMessage("page", "Invalid page.")
		} else {
			page.Page = n
		}
	}
	if raw := q.str("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			q.errs.AddMessage("page_size", "A valid positive integer is required.")
		} else {
			page.PageSize = min(n, cfg.MaxPageSize)
		}
	}
	return page
}

// ok writes a 400 with the collected errors when there are any.
func (q *queryParams) ok() bool {
	if q.errs.HasErrors() {
		utils.ValidationFailed(q.c, q.errs)
		return false
	}
	return true
}

func statusStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
