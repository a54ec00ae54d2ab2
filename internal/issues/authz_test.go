package issues

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/issuedesk/issuedesk/internal/auth"
	"github.com/issuedesk/issuedesk/internal/models"
)

var (
	alice = auth.Caller{ID: "u_alice", Email: "alice@example.com"}
	bob   = auth.Caller{ID: "u_bob", Email: "bob@example.com"}
)

func ownedIssue(owner auth.Caller) *models.Issue {
	return &models.Issue{
		ID:       1,
		AuthorID: owner.ID,
		Author:   &models.User{ID: owner.ID, Email: owner.Email},
	}
}

func TestAuthorize_Create(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.Authorize(alice, nil, OpCreate).Allowed)

	d := p.Authorize(auth.Anonymous, nil, OpCreate)
	assert.False(t, d.Allowed)
	assert.Equal(t, KindUnauthorized, d.Kind)
}

func TestAuthorize_Create_OpenPolicy(t *testing.T) {
	p := Policy{RequireAuthForCreate: false}
	assert.True(t, p.Authorize(auth.Anonymous, nil, OpCreate).Allowed)
}

func TestAuthorize_ReadIsOpen(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.Authorize(auth.Anonymous, ownedIssue(alice), OpRead).Allowed)
	assert.True(t, p.Authorize(bob, ownedIssue(alice), OpRead).Allowed)
}

func TestAuthorize_UpdateDelete_OwnerOnly(t *testing.T) {
	p := DefaultPolicy()
	issue := ownedIssue(alice)

	for _, op := range []Operation{OpUpdate, OpDelete} {
		assert.True(t, p.Authorize(alice, issue, op).Allowed, "author allowed for %s", op)

		d := p.Authorize(bob, issue, op)
		assert.False(t, d.Allowed, "non-author denied for %s", op)
		assert.Equal(t, KindForbidden, d.Kind)

		d = p.Authorize(auth.Anonymous, issue, op)
		assert.False(t, d.Allowed)
		assert.Equal(t, KindUnauthorized, d.Kind, "anonymous is unauthorized, not forbidden")
	}
}

func TestAuthorize_NoAuthorIsImmutable(t *testing.T) {
	p := DefaultPolicy()
	orphan := &models.Issue{ID: 2}

	d := p.Authorize(alice, orphan, OpUpdate)
	assert.False(t, d.Allowed)
	assert.Equal(t, KindForbidden, d.Kind)

	d = p.Authorize(alice, orphan, OpDelete)
	assert.False(t, d.Allowed)
}

func TestAuthorize_AssignUnrestricted(t *testing.T) {
	p := DefaultPolicy()
	issue := ownedIssue(alice)

	// Anyone, even anonymous, may reassign under the default policy.
	assert.True(t, p.Authorize(bob, issue, OpAssign).Allowed)
	assert.True(t, p.Authorize(auth.Anonymous, issue, OpAssign).Allowed)
}

func TestDenied_KindAndReason(t *testing.T) {
	err := denied(Decision{Kind: KindUnauthorized, Reason: "authentication required"})
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.EqualError(t, err, "authentication required")

	err = denied(Decision{Kind: KindForbidden, Reason: "only the author may update this issue"})
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.EqualError(t, err, "only the author may update this issue")
}

func TestAuthorize_AssignOwnerRestricted(t *testing.T) {
	p := Policy{RequireAuthForCreate: true, OwnerRestrictedAssign: true}
	issue := ownedIssue(alice)

	assert.True(t, p.Authorize(alice, issue, OpAssign).Allowed)

	d := p.Authorize(bob, issue, OpAssign)
	assert.False(t, d.Allowed)
	assert.Equal(t, KindForbidden, d.Kind)
}
