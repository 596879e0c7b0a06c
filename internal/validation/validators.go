// Package validation holds the stateless field rules shared by record
// creation and the enrollment workflow. Callers decide which rules apply.
package validation

import (
	"strings"
	"time"
	"unicode"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Program and enrollment status values referenced by the rules below.
const (
	ProgramStatusCompleted = "completed"
	EnrollmentStatusActive = "active"
	MinPhoneDigits         = 10
	MaxPhoneDigits         = 15
	MinPasswordLength      = 8
)

// Today returns the current UTC date at midnight.
func Today() time.Time {
	return TruncateDate(time.Now().UTC())
}

// TruncateDate drops the time of day, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD value.
func ParseDate(raw string) (time.Time, *FieldError) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &FieldError{Code: "invalid_date", Message: "Date has wrong format. Use YYYY-MM-DD."}
	}
	return t, nil
}

// ValidateFutureDate fails when d is earlier than today.
func ValidateFutureDate(d time.Time) *FieldError {
	if TruncateDate(d).Before(Today()) {
		return &FieldError{Code: "date_in_past", Message: "Date must be in the future."}
	}
	return nil
}

// ValidateDateRange fails when end is set and falls before start.
func ValidateDateRange(start time.Time, end *time.Time) *FieldError {
	if end != nil && !start.IsZero() && TruncateDate(*end).Before(TruncateDate(start)) {
		return &FieldError{Code: "invalid_date_range", Message: "End date must be after start date."}
	}
	return nil
}

// ValidateProgramCapacity fails when a capacity is given and is not positive.
func ValidateProgramCapacity(capacity *int) *FieldError {
	if capacity != nil && *capacity <= 0 {
		return &FieldError{Code: "invalid_capacity", Message: "Capacity must be a positive number."}
	}
	return nil
}

// ValidateEnrollmentStatus rejects an active enrollment in a completed program.
func ValidateEnrollmentStatus(requestedStatus, programStatus string) *FieldError {
	if programStatus == ProgramStatusCompleted && requestedStatus == EnrollmentStatusActive {
		return &FieldError{
			Code:    "invalid_enrollment_status",
			Message: "Cannot have active enrollment in a completed program.",
		}
	}
	return nil
}

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// ValidatePhoneNumber checks the digit count once separators are removed.
// On success the original, unstripped value is returned.
func ValidatePhoneNumber(raw string) (string, *FieldError) {
	cleaned := phoneSeparators.Replace(raw)
	if cleaned == "" || strings.IndexFunc(cleaned, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", &FieldError{Code: "invalid_phone", Message: "Phone number can only contain digits and separators."}
	}
	if len(cleaned) < MinPhoneDigits || len(cleaned) > MaxPhoneDigits {
		return "", &FieldError{Code: "invalid_phone_length", Message: "Phone number must be between 10 and 15 digits."}
	}
	return raw, nil
}

// ValidatePassword checks a new password against its confirmation and the
// strength rules. Messages are keyed by the field they belong to.
func ValidatePassword(password, confirm string) FieldErrors {
	errs := FieldErrors{}
	if password != confirm {
		errs.AddMessage("password_confirm", "Password fields didn't match.")
	}
	if len(password) < MinPasswordLength {
		errs.AddMessage("password", "Password must be at least 8 characters long.")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		errs.AddMessage("password", "Password must contain at least one letter.")
	}
	if !hasDigit {
		errs.AddMessage("password", "Password must contain at least one digit.")
	}
	return errs
}
