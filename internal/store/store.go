package store

import (
	"context"
	"errors"

	"github.com/issuedesk/issuedesk/internal/models"
)

// ErrNotFound is wrapped by store implementations when a record is absent,
// so callers can distinguish "missing" from a storage failure.
var ErrNotFound = errors.New("not found")

// IssueFilter specifies filters for listing issues. An empty Status means
// no status filter.
type IssueFilter struct {
	Status models.IssueStatus
}

// Projection selects which related records to load alongside an issue.
// Storage decides how to fetch them; callers say only what they need.
type Projection struct {
	Author   bool
	Assignee bool
}

// Store defines the persistence interface for issuedesk. Each call is
// atomic on its own; there are no cross-call transactions.
type Store interface {
	// Issues
	CreateIssue(ctx context.Context, issue *models.Issue) error
	GetIssue(ctx context.Context, id int64, proj Projection) (*models.Issue, error)
	ListIssues(ctx context.Context, filter IssueFilter, skip, take int, proj Projection) ([]*models.Issue, int, error)
	UpdateIssue(ctx context.Context, issue *models.Issue) error
	DeleteIssue(ctx context.Context, id int64) error
	CountIssuesByStatus(ctx context.Context) (map[models.IssueStatus]int, error)

	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UserExists(ctx context.Context, id string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
