package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/issuedesk/issuedesk/internal/models"
)

// MemoryStore is an in-memory Store used as a test double and for
// ephemeral runs. Each method takes the lock once, matching the
// per-call atomicity the interface promises.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	issues map[int64]*models.Issue
	users  map[string]*models.User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		issues: make(map[int64]*models.Issue),
		users:  make(map[string]*models.User),
	}
}

// Migrate is a no-op for the in-memory store.
func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// copyIssue returns a detached copy so callers cannot mutate stored state.
func copyIssue(i *models.Issue) *models.Issue {
	c := *i
	c.Author = nil
	c.Assignee = nil
	return &c
}

func (s *MemoryStore) project(issue *models.Issue, proj Projection) {
	if proj.Author && issue.AuthorID != "" {
		if u, ok := s.users[issue.AuthorID]; ok {
			c := *u
			issue.Author = &c
		}
	}
	if proj.Assignee && issue.AssigneeID != "" {
		if u, ok := s.users[issue.AssigneeID]; ok {
			c := *u
			issue.Assignee = &c
		}
	}
}

// --- Issues ---

func (s *MemoryStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	issue.ID = s.nextID
	s.nextID++
	issue.CreatedAt = now
	issue.UpdatedAt = now
	if issue.Status == "" {
		issue.Status = models.IssueStatusOpen
	}
	s.issues[issue.ID] = copyIssue(issue)
	return nil
}

func (s *MemoryStore) GetIssue(ctx context.Context, id int64, proj Projection) (*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.issues[id]
	if !ok {
		return nil, fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	issue := copyIssue(stored)
	s.project(issue, proj)
	return issue, nil
}

func (s *MemoryStore) ListIssues(ctx context.Context, filter IssueFilter, skip, take int, proj Projection) ([]*models.Issue, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Issue
	for _, issue := range s.issues {
		if filter.Status != "" && issue.Status != filter.Status {
			continue
		}
		matched = append(matched, issue)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if skip >= total {
		return nil, total, nil
	}
	end := skip + take
	if end > total {
		end = total
	}

	out := make([]*models.Issue, 0, end-skip)
	for _, stored := range matched[skip:end] {
		issue := copyIssue(stored)
		s.project(issue, proj)
		out = append(out, issue)
	}
	return out, total, nil
}

func (s *MemoryStore) UpdateIssue(ctx context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.issues[issue.ID]
	if !ok {
		return fmt.Errorf("issue %d: %w", issue.ID, ErrNotFound)
	}
	issue.CreatedAt = stored.CreatedAt
	issue.AuthorID = stored.AuthorID
	issue.UpdatedAt = time.Now().UTC()
	s.issues[issue.ID] = copyIssue(issue)
	return nil
}

func (s *MemoryStore) DeleteIssue(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[id]; !ok {
		return fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	delete(s.issues, id)
	return nil
}

func (s *MemoryStore) CountIssuesByStatus(ctx context.Context) (map[models.IssueStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.IssueStatus]int)
	for _, issue := range s.issues {
		counts[issue.Status]++
	}
	return counts, nil
}

// --- Users ---

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = newULID()
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = time.Now().UTC()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("create user: email %s already exists", u.Email)
		}
	}
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].Email < users[j].Email
	})
	return users, nil
}

func (s *MemoryStore) UserExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[id]
	return ok, nil
}
