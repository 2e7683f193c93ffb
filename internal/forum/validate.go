package forum

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
)

// ValidationError holds per-field failures for one record. Only identity
// fields are checked: missing text is tolerated and becomes "".
type ValidationError struct {
	Kind   string
	ID     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s:%s", f, e.Fields[f]))
	}
	return fmt.Sprintf("%s %q: %s", e.Kind, e.ID, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrMalformedRecord
}

func ValidateSubmission(s Submission) error {
	errs := make(map[string]string)
	if strings.TrimSpace(s.ID) == "" {
		errs["id"] = "id is required"
	}
	if strings.TrimSpace(s.Author) == "" {
		errs["author"] = "author is required"
	}
	if len(errs) > 0 {
		return &ValidationError{Kind: "submission", ID: s.ID, Fields: errs}
	}
	return nil
}

func ValidateComment(c Comment) error {
	errs := make(map[string]string)
	if strings.TrimSpace(c.ID) == "" {
		errs["id"] = "id is required"
	}
	if strings.TrimSpace(c.Author) == "" {
		errs["author"] = "author is required"
	}
	if strings.TrimSpace(c.SubmissionID) == "" {
		errs["submission_id"] = "submission id is required"
	}
	if strings.TrimSpace(c.ParentID) == "" {
		errs["parent_id"] = "parent id is required"
	}
	if len(errs) > 0 {
		return &ValidationError{Kind: "comment", ID: c.ID, Fields: errs}
	}
	return nil
}

// ValidateAll checks every record and returns the first failure.
func ValidateAll(subs []Submission, comments []Comment) error {
	for _, s := range subs {
		if err := ValidateSubmission(s); err != nil {
			return err
		}
	}
	for _, c := range comments {
		if err := ValidateComment(c); err != nil {
			return err
		}
	}
	return nil
}
