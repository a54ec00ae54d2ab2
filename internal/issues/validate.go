package issues

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/issuedesk/issuedesk/internal/models"
)

const maxTitleLength = 255

// CreateInput is the payload for creating an issue. Unknown JSON fields
// are dropped by struct decoding, never rejected.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateInput is the payload for updating an issue. A nil Status means
// "leave unchanged".
type UpdateInput struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      *models.IssueStatus `json:"status"`
}

// AssignInput is the payload for (re)assigning an issue. A nil AssigneeID
// clears the assignment.
type AssignInput struct {
	AssigneeID *string `json:"assigneeId"`
}

func validateTitle(title string) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "is required"})
	} else if utf8.RuneCountInString(title) > maxTitleLength {
		errs = append(errs, FieldError{Field: "title", Message: fmt.Sprintf("must be at most %d characters", maxTitleLength)})
	}
	return errs
}

func validateDescription(description string) []FieldError {
	if strings.TrimSpace(description) == "" {
		return []FieldError{{Field: "description", Message: "is required"}}
	}
	return nil
}

// ValidateCreate checks a create payload and returns every violation.
func ValidateCreate(in CreateInput) []FieldError {
	var errs []FieldError
	errs = append(errs, validateTitle(in.Title)...)
	errs = append(errs, validateDescription(in.Description)...)
	return errs
}

// ValidateUpdate checks an update payload. Title and description follow
// the create rules; status, when present, must be a known value.
func ValidateUpdate(in UpdateInput) []FieldError {
	var errs []FieldError
	errs = append(errs, validateTitle(in.Title)...)
	errs = append(errs, validateDescription(in.Description)...)
	if in.Status != nil && !in.Status.Valid() {
		errs = append(errs, FieldError{Field: "status", Message: "must be one of OPEN, IN_PROGRESS, CLOSED"})
	}
	return errs
}

// ValidateAssign checks an assign payload. Existence of the target user
// is a lifecycle concern, not checked here.
func ValidateAssign(in AssignInput) []FieldError {
	if in.AssigneeID != nil && strings.TrimSpace(*in.AssigneeID) == "" {
		return []FieldError{{Field: "assigneeId", Message: "must be null or a non-empty user id"}}
	}
	return nil
}
