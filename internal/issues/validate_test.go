package issues

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issuedesk/issuedesk/internal/models"
)

func fieldNames(errs []FieldError) []string {
	names := make([]string, len(errs))
	for i, e := range errs {
		names[i] = e.Field
	}
	return names
}

func TestValidateCreate_Valid(t *testing.T) {
	errs := ValidateCreate(CreateInput{Title: "Broken login", Description: "Submit does nothing"})
	assert.Empty(t, errs)
}

func TestValidateCreate_EmptyTitle(t *testing.T) {
	errs := ValidateCreate(CreateInput{Title: "", Description: "desc"})
	require.Len(t, errs, 1)
	assert.Equal(t, "title", errs[0].Field)
}

func TestValidateCreate_WhitespaceOnly(t *testing.T) {
	errs := ValidateCreate(CreateInput{Title: "   \t", Description: "\n  "})
	assert.ElementsMatch(t, []string{"title", "description"}, fieldNames(errs))
}

func TestValidateCreate_ReportsAllViolations(t *testing.T) {
	errs := ValidateCreate(CreateInput{Title: "", Description: ""})
	assert.Len(t, errs, 2, "both fields should be reported, not just the first")
}

func TestValidateCreate_TitleLength(t *testing.T) {
	at := strings.Repeat("x", 255)
	assert.Empty(t, ValidateCreate(CreateInput{Title: at, Description: "d"}))

	over := strings.Repeat("x", 256)
	errs := ValidateCreate(CreateInput{Title: over, Description: "d"})
	require.Len(t, errs, 1)
	assert.Equal(t, "title", errs[0].Field)
}

func TestValidateCreate_TitleLengthCountsRunes(t *testing.T) {
	// 255 multi-byte runes must pass; the limit is characters, not bytes.
	title := strings.Repeat("é", 255)
	assert.Empty(t, ValidateCreate(CreateInput{Title: title, Description: "d"}))
}

func TestValidateUpdate_InvalidStatus(t *testing.T) {
	bogus := models.IssueStatus("DONE")
	errs := ValidateUpdate(UpdateInput{Title: "t", Description: "d", Status: &bogus})
	require.Len(t, errs, 1)
	assert.Equal(t, "status", errs[0].Field)
}

func TestValidateUpdate_NilStatusUnchanged(t *testing.T) {
	errs := ValidateUpdate(UpdateInput{Title: "t", Description: "d"})
	assert.Empty(t, errs)
}

func TestValidateAssign(t *testing.T) {
	assert.Empty(t, ValidateAssign(AssignInput{}), "nil assignee clears the assignment")

	id := "01HZXW"
	assert.Empty(t, ValidateAssign(AssignInput{AssigneeID: &id}))

	blank := "  "
	errs := ValidateAssign(AssignInput{AssigneeID: &blank})
	require.Len(t, errs, 1)
	assert.Equal(t, "assigneeId", errs[0].Field)
}
