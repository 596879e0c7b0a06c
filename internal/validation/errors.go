package validation

import "sort"

// NonFieldErrors is the key used for failures that span several fields.
const NonFieldErrors = "non_field_errors"

// FieldError is a single rule failure.
type FieldError struct {
	Code    string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// FieldErrors collects messages per field.
type FieldErrors map[string][]string

// Add records err under field. A nil err is ignored.
func (fe FieldErrors) Add(field string, err *FieldError) {
	if err == nil {
		return
	}
	fe[field] = append(fe[field], err.Message)
}

// AddMessage records a plain message under field.
func (fe FieldErrors) AddMessage(field, message string) {
	fe[field] = append(fe[field], message)
}

// Merge copies every message from other into fe.
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, msgs := range other {
		fe[field] = append(fe[field], msgs...)
	}
}

func (fe FieldErrors) HasErrors() bool { return len(fe) > 0 }

// Fields returns the failing field names in sorted order.
func (fe FieldErrors) Fields() []string {
	names := make([]string, 0, len(fe))
	for name := range fe {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
