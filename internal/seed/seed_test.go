package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issuedesk/issuedesk/internal/store"
)

func TestLoad(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	res, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, res.UsersCreated)
	assert.Equal(t, 8, res.IssuesCreated)

	// Every seeded issue carries a valid author so ownership flows work.
	issues, total, err := s.ListIssues(ctx, store.IssueFilter{}, 0, 100, store.Projection{Author: true})
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	for _, issue := range issues {
		assert.NotNil(t, issue.Author, "issue %q has no author", issue.Title)
	}
}

func TestLoad_ReusesExistingUsers(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	_, err := Load(ctx, s)
	require.NoError(t, err)

	res, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, res.UsersCreated, "second load must not duplicate users")
	assert.Equal(t, 8, res.IssuesCreated)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
