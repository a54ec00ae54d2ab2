package models

import "time"

// IssueStatus represents the state of an issue.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusClosed     IssueStatus = "CLOSED"
)

// Valid reports whether the status is one of the three known values.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusClosed:
		return true
	}
	return false
}

// Issue represents a tracked work item (bug/task).
type Issue struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      IssueStatus `json:"status"`
	AuthorID    string      `json:"authorId,omitempty"`   // empty = created without an identity
	AssigneeID  string      `json:"assigneeId,omitempty"` // empty = unassigned
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	// Author and Assignee are populated only when the corresponding
	// projection is requested on get/list.
	Author   *User `json:"author,omitempty"`
	Assignee *User `json:"assignee,omitempty"`
}
