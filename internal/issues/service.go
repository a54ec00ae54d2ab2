// Package issues implements the issue lifecycle: validation,
// ownership-based authorization, and orchestration of the store for the
// six issue operations.
package issues

import (
	"context"
	"errors"
	"strings"

	"github.com/issuedesk/issuedesk/internal/auth"
	"github.com/issuedesk/issuedesk/internal/models"
	"github.com/issuedesk/issuedesk/internal/store"
)

// DefaultPageSize is used when a list request does not specify a limit.
const DefaultPageSize = 10

// Service orchestrates validate -> authorize -> persist for each issue
// operation. It holds no mutable state; all operations are safe for
// concurrent use.
type Service struct {
	store  store.Store
	policy Policy
}

// NewService creates a Service over the given store with the given policy.
func NewService(st store.Store, policy Policy) *Service {
	return &Service{store: st, policy: policy}
}

// Policy returns the authorization policy in effect.
func (s *Service) Policy() Policy {
	return s.policy
}

// Create validates the payload, applies the create policy, and persists a
// new OPEN issue. When the caller is authenticated it becomes the author;
// the author is never reassigned afterwards.
func (s *Service) Create(ctx context.Context, caller auth.Caller, in CreateInput) (*models.Issue, error) {
	if fields := ValidateCreate(in); len(fields) > 0 {
		return nil, invalidInput(fields)
	}

	if d := s.policy.Authorize(caller, nil, OpCreate); !d.Allowed {
		return nil, denied(d)
	}

	issue := &models.Issue{
		Title:       in.Title,
		Description: in.Description,
		Status:      models.IssueStatusOpen,
		AuthorID:    caller.ID,
	}
	if err := s.store.CreateIssue(ctx, issue); err != nil {
		return nil, storage("create issue", err)
	}
	return issue, nil
}

// Get fetches an issue with author and assignee summaries. Reads are
// unrestricted; there is no caller argument.
func (s *Service) Get(ctx context.Context, id int64) (*models.Issue, error) {
	return s.fetch(ctx, id, store.Projection{Author: true, Assignee: true})
}

// Update applies title, description, and (when provided) status to an
// existing issue. Only the author may update.
func (s *Service) Update(ctx context.Context, caller auth.Caller, id int64, in UpdateInput) (*models.Issue, error) {
	issue, err := s.fetch(ctx, id, store.Projection{Author: true})
	if err != nil {
		return nil, err
	}

	if fields := ValidateUpdate(in); len(fields) > 0 {
		return nil, invalidInput(fields)
	}

	if d := s.policy.Authorize(caller, issue, OpUpdate); !d.Allowed {
		return nil, denied(d)
	}

	issue.Title = in.Title
	issue.Description = in.Description
	if in.Status != nil {
		issue.Status = *in.Status
	}
	if err := s.store.UpdateIssue(ctx, issue); err != nil {
		return nil, s.mutationErr("update issue", id, err)
	}
	return issue, nil
}

// Delete removes an issue permanently. Only the author may delete; a
// second delete of the same id reports NotFound.
func (s *Service) Delete(ctx context.Context, caller auth.Caller, id int64) error {
	issue, err := s.fetch(ctx, id, store.Projection{Author: true})
	if err != nil {
		return err
	}

	if d := s.policy.Authorize(caller, issue, OpDelete); !d.Allowed {
		return denied(d)
	}

	if err := s.store.DeleteIssue(ctx, id); err != nil {
		return s.mutationErr("delete issue", id, err)
	}
	return nil
}

// Assign sets or clears the assignee. The target user must exist at
// assignment time; it is not re-validated later. Returns the issue with
// author and assignee summaries attached.
func (s *Service) Assign(ctx context.Context, caller auth.Caller, id int64, in AssignInput) (*models.Issue, error) {
	issue, err := s.fetch(ctx, id, store.Projection{Author: true})
	if err != nil {
		return nil, err
	}

	if fields := ValidateAssign(in); len(fields) > 0 {
		return nil, invalidInput(fields)
	}

	if d := s.policy.Authorize(caller, issue, OpAssign); !d.Allowed {
		return nil, denied(d)
	}

	assigneeID := ""
	if in.AssigneeID != nil {
		assigneeID = strings.TrimSpace(*in.AssigneeID)
		exists, err := s.store.UserExists(ctx, assigneeID)
		if err != nil {
			return nil, storage("check assignee", err)
		}
		if !exists {
			return nil, invalidInput([]FieldError{{Field: "assigneeId", Message: "user does not exist"}})
		}
	}

	issue.AssigneeID = assigneeID
	if err := s.store.UpdateIssue(ctx, issue); err != nil {
		return nil, s.mutationErr("assign issue", id, err)
	}
	return s.Get(ctx, id)
}

// ListFilter narrows a listing. Status values outside the known enum
// (including "ALL" and empty) mean no filter.
type ListFilter struct {
	Status string
}

// PageRequest selects a page of results. Values below 1 are normalized.
type PageRequest struct {
	Page  int
	Limit int
}

// Pagination is the listing metadata computed from the filtered total.
type Pagination struct {
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// IssuePage is one page of issues plus its pagination metadata.
type IssuePage struct {
	Issues     []*models.Issue `json:"issues"`
	Pagination Pagination      `json:"pagination"`
}

// List returns issues ordered by creation time descending (newest first,
// id descending on ties) with pagination metadata. A page beyond the last
// returns an empty slice, not an error.
func (s *Service) List(ctx context.Context, filter ListFilter, page PageRequest) (*IssuePage, error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = DefaultPageSize
	}
	skip := (page.Page - 1) * page.Limit

	sf := store.IssueFilter{}
	if status := models.IssueStatus(strings.ToUpper(filter.Status)); status.Valid() {
		sf.Status = status
	}

	items, total, err := s.store.ListIssues(ctx, sf, skip, page.Limit, store.Projection{Author: true, Assignee: true})
	if err != nil {
		return nil, storage("list issues", err)
	}
	if items == nil {
		items = []*models.Issue{}
	}

	totalPages := (total + page.Limit - 1) / page.Limit
	return &IssuePage{
		Issues: items,
		Pagination: Pagination{
			Page:            page.Page,
			Limit:           page.Limit,
			TotalCount:      total,
			TotalPages:      totalPages,
			HasNextPage:     page.Page < totalPages,
			HasPreviousPage: page.Page > 1,
		},
	}, nil
}

// Stats holds issue counts by status.
type Stats struct {
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Closed     int `json:"closed"`
	Total      int `json:"total"`
}

// Stats returns issue counts by status across all issues.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.store.CountIssuesByStatus(ctx)
	if err != nil {
		return nil, storage("issue stats", err)
	}
	st := &Stats{
		Open:       counts[models.IssueStatusOpen],
		InProgress: counts[models.IssueStatusInProgress],
		Closed:     counts[models.IssueStatusClosed],
	}
	st.Total = st.Open + st.InProgress + st.Closed
	return st, nil
}

// fetch loads an issue, mapping store errors to the service taxonomy.
func (s *Service) fetch(ctx context.Context, id int64, proj store.Projection) (*models.Issue, error) {
	issue, err := s.store.GetIssue(ctx, id, proj)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storage("get issue", err)
	}
	return issue, nil
}

// mutationErr maps a failed write to the taxonomy. A vanished row between
// the read and the write surfaces as NotFound, not a storage failure.
func (s *Service) mutationErr(op string, id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(id)
	}
	return storage(op, err)
}
