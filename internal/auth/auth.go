// Package auth models the caller identity attached to each operation.
// Verification itself is external (a session provider, an authenticating
// reverse proxy, a local config identity); this package only resolves a
// request into a Caller value the core can reason about.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/issuedesk/issuedesk/internal/store"
)

// Caller is the identity associated with an inbound operation. The zero
// value is an anonymous caller.
type Caller struct {
	ID    string
	Email string
}

// Anonymous is the caller used when no verified identity is available.
var Anonymous = Caller{}

// Authenticated reports whether the caller carries a verified identity.
func (c Caller) Authenticated() bool {
	return c.Email != ""
}

// Resolver turns an HTTP request into a Caller. Implementations must
// return Anonymous (not an error) when no identity is present.
type Resolver interface {
	Resolve(r *http.Request) (Caller, error)
}

// HeaderResolver trusts identity headers set by an authenticating
// reverse proxy and verifies them against the user store. Unknown or
// absent identities resolve to Anonymous.
type HeaderResolver struct {
	Store store.Store

	// Header is the email header to trust. Defaults to X-User-Email.
	Header string
}

// NewHeaderResolver creates a HeaderResolver backed by the given store.
func NewHeaderResolver(s store.Store) *HeaderResolver {
	return &HeaderResolver{Store: s, Header: "X-User-Email"}
}

func (h *HeaderResolver) Resolve(r *http.Request) (Caller, error) {
	email := strings.TrimSpace(r.Header.Get(h.Header))
	if email == "" {
		return Anonymous, nil
	}

	u, err := h.Store.GetUserByEmail(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, err
	}
	return Caller{ID: u.ID, Email: u.Email}, nil
}

// ResolveEmail looks up a caller by email directly, for surfaces that
// carry a configured local identity (CLI, MCP) rather than a request.
func ResolveEmail(ctx context.Context, s store.Store, email string) (Caller, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Anonymous, nil
	}
	u, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, err
	}
	return Caller{ID: u.ID, Email: u.Email}, nil
}

// StaticResolver returns a fixed caller for every request. Used in tests.
type StaticResolver struct {
	Caller Caller
}

func (s StaticResolver) Resolve(r *http.Request) (Caller, error) {
	return s.Caller, nil
}
