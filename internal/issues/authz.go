package issues

import (
	"github.com/issuedesk/issuedesk/internal/auth"
	"github.com/issuedesk/issuedesk/internal/models"
)

// Operation identifies which issue operation is being authorized.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpAssign Operation = "assign"
)

// Policy is the operation-by-condition authorization table. The flags
// select between the deployment variants this system has shipped with;
// the decision logic itself never changes per deployment.
type Policy struct {
	// RequireAuthForCreate denies anonymous issue creation. Earlier
	// deployments allowed it; current ones do not.
	RequireAuthForCreate bool

	// OwnerRestrictedAssign gates assignment behind the same ownership
	// check as update/delete. Off by default: assignment is deliberately
	// unrestricted, and the asymmetry is a recorded product decision,
	// not an oversight.
	OwnerRestrictedAssign bool
}

// DefaultPolicy returns the policy matching the most complete observed
// deployment: authenticated creation, unrestricted assignment.
func DefaultPolicy() Policy {
	return Policy{RequireAuthForCreate: true, OwnerRestrictedAssign: false}
}

// Decision is the outcome of an authorization check. Deny carries the
// error kind the transport should signal.
type Decision struct {
	Allowed bool
	Kind    ErrorKind
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(kind ErrorKind, reason string) Decision {
	return Decision{Kind: kind, Reason: reason}
}

// Authorize decides whether caller may perform op on issue. It is total:
// every (caller, issue, operation) triple maps to exactly one outcome.
// For OpCreate the issue argument is ignored and may be nil.
func (p Policy) Authorize(caller auth.Caller, issue *models.Issue, op Operation) Decision {
	switch op {
	case OpCreate:
		if p.RequireAuthForCreate && !caller.Authenticated() {
			return deny(KindUnauthorized, "authentication required to create issues")
		}
		return allow()

	case OpRead:
		return allow()

	case OpUpdate, OpDelete:
		return p.requireOwner(caller, issue)

	case OpAssign:
		if p.OwnerRestrictedAssign {
			return p.requireOwner(caller, issue)
		}
		return allow()
	}

	return deny(KindForbidden, "unknown operation")
}

// requireOwner allows only the issue author. An issue with no author can
// never pass: the ownership policy is closed, with no admin fallback.
func (p Policy) requireOwner(caller auth.Caller, issue *models.Issue) Decision {
	if !caller.Authenticated() {
		return deny(KindUnauthorized, "authentication required")
	}
	if issue == nil || issue.Author == nil {
		return deny(KindForbidden, "issue has no owner")
	}
	if caller.Email != issue.Author.Email {
		return deny(KindForbidden, "only the issue author may do this")
	}
	return allow()
}
