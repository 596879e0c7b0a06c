// Package services implements the registry's business operations on top of
// gorm. Handlers translate HTTP to these calls and back.
package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"health-registry-server/internal/config"
	"health-registry-server/internal/events"
)

// Services bundles every service the transport layer needs.
type Services struct {
	Auth        *AuthService
	Users       *UserService
	Programs    *ProgramService
	Clients     *ClientService
	Enrollments *EnrollmentService
}

// New wires the services around a shared database handle.
func New(db *gorm.DB, cfg *config.Config, publisher events.Publisher, lgr zerolog.Logger) *Services {
	return &Services{
		Auth:        NewAuthService(db, cfg),
		Users:       NewUserService(db),
		Programs:    NewProgramService(db),
		Clients:     NewClientService(db),
		Enrollments: NewEnrollmentService(db, publisher, lgr),
	}
}

// MaxPage is the highest page number a listing accepts.
const MaxPage = 100000

// Pagination selects one page of a result set. Page is 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	return (min(p.Page, MaxPage) - 1) * p.PageSize
}

func (p Pagination) apply(db *gorm.DB) *gorm.DB {
	if p.PageSize <= 0 {
		return db
	}
	return db.Offset(p.offset()).Limit(p.PageSize)
}

// Page is one page of results plus the total match count.
type Page[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

func newPage[T any](p Pagination, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{Count: count, Page: p.Page, PageSize: p.PageSize, Results: results}
}

// orderClause resolves a "field" or "-field" request against the allowed
// columns. Unknown fields fall back to def.
func orderClause(requested string, allowed map[string]string, def string) string {
	requested = strings.TrimSpace(requested)
	desc := strings.HasPrefix(requested, "-")
	column, ok := allowed[strings.TrimPrefix(requested, "-")]
	if !ok {
		return def
	}
	if desc {
		return column + " DESC, created_at DESC"
	}
	return column + " ASC, created_at DESC"
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern builds a lower-cased LIKE pattern for use with ESCAPE '!'.
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}

func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// isDuplicateKey reports whether err is a unique index violation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
