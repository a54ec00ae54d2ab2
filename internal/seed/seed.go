// Package seed loads a small set of demo users and issues into a store.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/issuedesk/issuedesk/internal/models"
	"github.com/issuedesk/issuedesk/internal/store"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

type fixtureUser struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

type fixtureIssue struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
	Author      string `yaml:"author"`
	Assignee    string `yaml:"assignee"`
}

type fixtures struct {
	Users  []fixtureUser  `yaml:"users"`
	Issues []fixtureIssue `yaml:"issues"`
}

// Result reports what Load created.
type Result struct {
	UsersCreated  int
	IssuesCreated int
}

// Load inserts the embedded fixtures. Users that already exist (by email) are
// reused rather than duplicated, so running it twice only re-adds the issues.
func Load(ctx context.Context, st store.Store) (*Result, error) {
	var fx fixtures
	if err := yaml.Unmarshal(fixturesYAML, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse seed fixtures: %w", err)
	}

	res := &Result{}
	userIDs := make(map[string]string, len(fx.Users))

	for _, fu := range fx.Users {
		existing, err := st.GetUserByEmail(ctx, fu.Email)
		if err == nil {
			userIDs[fu.Email] = existing.ID
			continue
		}
		user := &models.User{Email: fu.Email, Name: fu.Name}
		if err := st.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", fu.Email, err)
		}
		userIDs[fu.Email] = user.ID
		res.UsersCreated++
	}

	for _, fi := range fx.Issues {
		status := models.IssueStatus(fi.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("seed issue %q has invalid status %q", fi.Title, fi.Status)
		}
		issue := &models.Issue{
			Title:       fi.Title,
			Description: fi.Description,
			Status:      status,
			AuthorID:    userIDs[fi.Author],
			AssigneeID:  userIDs[fi.Assignee],
		}
		if err := st.CreateIssue(ctx, issue); err != nil {
			return nil, fmt.Errorf("failed to seed issue %q: %w", fi.Title, err)
		}
		res.IssuesCreated++
	}

	return res, nil
}
