package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issuedesk/issuedesk/internal/models"
)

func TestMemoryStore_ReturnsDetachedCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	issue := &models.Issue{Title: "t", Description: "d"}
	require.NoError(t, s.CreateIssue(ctx, issue))

	got, err := s.GetIssue(ctx, issue.ID, Projection{})
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := s.GetIssue(ctx, issue.ID, Projection{})
	require.NoError(t, err)
	assert.Equal(t, "t", again.Title, "callers must not reach stored state")
}

func TestMemoryStore_UpdatePreservesCreateOnlyFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ada := &models.User{Email: "ada@example.com", Name: "Ada"}
	require.NoError(t, s.CreateUser(ctx, ada))

	issue := &models.Issue{Title: "t", Description: "d", AuthorID: ada.ID}
	require.NoError(t, s.CreateIssue(ctx, issue))

	issue.AuthorID = ""
	require.NoError(t, s.UpdateIssue(ctx, issue))

	got, err := s.GetIssue(ctx, issue.ID, Projection{})
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.AuthorID)
}

func TestMemoryStore_ListTieBreakByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// Created back to back; timestamps may collide within clock resolution.
	for i := 0; i < 4; i++ {
		require.NoError(t, s.CreateIssue(ctx, &models.Issue{Title: "t", Description: "d"}))
	}

	got, total, err := s.ListIssues(ctx, IssueFilter{}, 0, 10, Projection{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].ID, got[i].ID)
	}
}

func TestMemoryStore_DuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "ada@example.com"}))
	err := s.CreateUser(ctx, &models.User{Email: "ADA@example.com"})
	assert.Error(t, err)
}
