package issues

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issuedesk/issuedesk/internal/auth"
	"github.com/issuedesk/issuedesk/internal/models"
	"github.com/issuedesk/issuedesk/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewService(st, DefaultPolicy()), st
}

func registerUser(t *testing.T, st store.Store, email, name string) auth.Caller {
	t.Helper()
	u := &models.User{Email: email, Name: name}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return auth.Caller{ID: u.ID, Email: u.Email}
}

func TestCreate_RoundTrip(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")

	created, err := svc.Create(ctx, ada, CreateInput{
		Title:       "Login page not responding",
		Description: "Submit button does nothing on iOS Safari",
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, models.IssueStatusOpen, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Description, got.Description)
	require.NotNil(t, got.Author)
	assert.Equal(t, "ada@example.com", got.Author.Email)
	assert.Nil(t, got.Assignee)
}

func TestCreate_AnonymousDenied(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), auth.Anonymous, CreateInput{
		Title:       "t",
		Description: "d",
	})
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestCreate_ValidationBeforeAuth(t *testing.T) {
	// An invalid payload from an anonymous caller reports the validation
	// failure, since validation runs first.
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), auth.Anonymous, CreateInput{})
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Len(t, FieldsOf(err), 2)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUpdate_OwnerOnly(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")
	grace := registerUser(t, st, "grace@example.com", "Grace")

	issue, err := svc.Create(ctx, ada, CreateInput{Title: "original", Description: "original desc"})
	require.NoError(t, err)

	// Non-author is forbidden and the issue is untouched.
	_, err = svc.Update(ctx, grace, issue.ID, UpdateInput{Title: "hijacked", Description: "d"})
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))

	got, err := svc.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)

	// Author succeeds.
	inProgress := models.IssueStatusInProgress
	updated, err := svc.Update(ctx, ada, issue.ID, UpdateInput{
		Title:       "updated",
		Description: "updated desc",
		Status:      &inProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Title)
	assert.Equal(t, models.IssueStatusInProgress, updated.Status)
}

func TestUpdate_NilStatusUnchanged(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")

	issue, err := svc.Create(ctx, ada, CreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	inProgress := models.IssueStatusInProgress
	_, err = svc.Update(ctx, ada, issue.ID, UpdateInput{Title: "t", Description: "d", Status: &inProgress})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, ada, issue.ID, UpdateInput{Title: "t2", Description: "d2"})
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusInProgress, updated.Status, "omitted status is left unchanged")
}

func TestUpdate_Anonymous(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")

	issue, err := svc.Create(ctx, ada, CreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, auth.Anonymous, issue.ID, UpdateInput{Title: "x", Description: "y"})
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestDelete_SecondDeleteNotFound(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")

	issue, err := svc.Create(ctx, ada, CreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, ada, issue.ID))

	err = svc.Delete(ctx, ada, issue.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAssign_SetAndClear(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")
	grace := registerUser(t, st, "grace@example.com", "Grace")

	issue, err := svc.Create(ctx, ada, CreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	// Any caller may assign under the default policy.
	assigned, err := svc.Assign(ctx, grace, issue.ID, AssignInput{AssigneeID: &grace.ID})
	require.NoError(t, err)
	require.NotNil(t, assigned.Assignee)
	assert.Equal(t, "grace@example.com", assigned.Assignee.Email)

	cleared, err := svc.Assign(ctx, grace, issue.ID, AssignInput{})
	require.NoError(t, err)
	assert.Nil(t, cleared.Assignee)
}

func TestAssign_NonexistentUserLeavesIssueUnchanged(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")

	issue, err := svc.Create(ctx, ada, CreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	ghost := "no-such-user"
	_, err = svc.Assign(ctx, ada, issue.ID, AssignInput{AssigneeID: &ghost})
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	require.Len(t, FieldsOf(err), 1)
	assert.Equal(t, "assigneeId", FieldsOf(err)[0].Field)

	got, err := svc.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Assignee, "failed assignment must not change the issue")
}

func TestOwnership_EndToEnd(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")
	grace := registerUser(t, st, "grace@example.com", "Grace")

	issue, err := svc.Create(ctx, ada, CreateInput{Title: "mine", Description: "d"})
	require.NoError(t, err)

	// Grace can read and assign but not update or delete.
	_, err = svc.Get(ctx, issue.ID)
	assert.NoError(t, err)

	_, err = svc.Assign(ctx, grace, issue.ID, AssignInput{AssigneeID: &grace.ID})
	assert.NoError(t, err)

	_, err = svc.Update(ctx, grace, issue.ID, UpdateInput{Title: "x", Description: "y"})
	assert.Equal(t, KindForbidden, KindOf(err))

	err = svc.Delete(ctx, grace, issue.ID)
	assert.Equal(t, KindForbidden, KindOf(err))

	// Ada retains full control.
	before, err := svc.Get(ctx, issue.ID)
	require.NoError(t, err)

	closed := models.IssueStatusClosed
	updated, err := svc.Update(ctx, ada, issue.ID, UpdateInput{Title: "mine", Description: "d", Status: &closed})
	assert.NoError(t, err)
	assert.Equal(t, models.IssueStatusClosed, updated.Status)
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt), "update must advance updatedAt")

	assert.NoError(t, svc.Delete(ctx, ada, issue.ID))
}

func seedIssues(t *testing.T, svc *Service, caller auth.Caller, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := svc.Create(context.Background(), caller, CreateInput{
			Title:       fmt.Sprintf("issue %d", i),
			Description: "d",
		})
		require.NoError(t, err)
	}
}

func TestList_Pagination(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")
	seedIssues(t, svc, ada, 23)

	page, err := svc.List(ctx, ListFilter{}, PageRequest{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Issues, 3)
	assert.Equal(t, 23, page.Pagination.TotalCount)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasNextPage)
	assert.True(t, page.Pagination.HasPreviousPage)

	// A page past the end returns an empty slice with the same metadata.
	page, err = svc.List(ctx, ListFilter{}, PageRequest{Page: 4, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Issues)
	assert.NotNil(t, page.Issues, "empty page is [], not null")
	assert.Equal(t, 23, page.Pagination.TotalCount)
	assert.False(t, page.Pagination.HasNextPage)
}

func TestList_NewestFirst(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")
	seedIssues(t, svc, ada, 5)

	page, err := svc.List(ctx, ListFilter{}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Issues, 5)
	for i := 1; i < len(page.Issues); i++ {
		assert.Greater(t, page.Issues[i-1].ID, page.Issues[i].ID, "newest (highest id) first")
	}
}

func TestList_NormalizesPageAndLimit(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")
	seedIssues(t, svc, ada, 12)

	page, err := svc.List(ctx, ListFilter{}, PageRequest{Page: -3, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, DefaultPageSize, page.Pagination.Limit)
	assert.Len(t, page.Issues, DefaultPageSize)
}

func TestList_StatusFilter(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")
	seedIssues(t, svc, ada, 3)

	page1, err := svc.List(ctx, ListFilter{}, PageRequest{})
	require.NoError(t, err)
	closed := models.IssueStatusClosed
	_, err = svc.Update(ctx, ada, page1.Issues[0].ID, UpdateInput{
		Title: page1.Issues[0].Title, Description: "d", Status: &closed,
	})
	require.NoError(t, err)

	open, err := svc.List(ctx, ListFilter{Status: "OPEN"}, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, open.Pagination.TotalCount)

	// Filtering is case-insensitive.
	lower, err := svc.List(ctx, ListFilter{Status: "closed"}, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, lower.Pagination.TotalCount)

	// Unrecognized values and ALL fall back to no filter.
	for _, status := range []string{"ALL", "", "DONE", "garbage"} {
		page, err := svc.List(ctx, ListFilter{Status: status}, PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Pagination.TotalCount, "status %q should not filter", status)
	}
}

func TestStats(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	ada := registerUser(t, st, "ada@example.com", "Ada")
	seedIssues(t, svc, ada, 4)

	page, err := svc.List(ctx, ListFilter{}, PageRequest{})
	require.NoError(t, err)
	closed := models.IssueStatusClosed
	inProgress := models.IssueStatusInProgress
	_, err = svc.Update(ctx, ada, page.Issues[0].ID, UpdateInput{Title: "t", Description: "d", Status: &closed})
	require.NoError(t, err)
	_, err = svc.Update(ctx, ada, page.Issues[1].ID, UpdateInput{Title: "t", Description: "d", Status: &inProgress})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Open)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Closed)
	assert.Equal(t, 4, stats.Total)
}
