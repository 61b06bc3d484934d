package document

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const (
	MaxTitleLength   = 100
	MaxContentLength = 100000
)

// ValidationError holds per-field validation failure messages. It unwraps
// to ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Validate checks title and content against the stored-document limits.
// Lengths count characters, not bytes.
func Validate(req Request) error {
	errs := make(map[string]string)

	if strings.TrimSpace(req.Title) == "" {
		errs["title"] = "title is required"
	} else if utf8.RuneCountInString(req.Title) > MaxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", MaxTitleLength)
	}
	if strings.TrimSpace(req.Content) == "" {
		errs["content"] = "content is required"
	} else if utf8.RuneCountInString(req.Content) > MaxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d characters", MaxContentLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
