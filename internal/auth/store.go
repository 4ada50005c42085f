package auth

import (
	"context"
	"time"
)

// UserStore persists account identities.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Search(ctx context.Context, fragment string) ([]*User, error)
}

// GrantStore is the RBAC source of truth: per-user organization and
// workspace memberships with their roles. Reads always reflect the latest
// write; there is no caching layer in front of it.
type GrantStore interface {
	// AddOrgMembership upserts the (user, org) membership. It reports
	// whether a membership was created so callers can detect a no-op on an
	// already-present membership.
	AddOrgMembership(ctx context.Context, userID, orgID string, role OrgRole) (created bool, err error)
	// RemoveOrgMembership removes the org membership together with the
	// workspace memberships nested under it.
	RemoveOrgMembership(ctx context.Context, userID, orgID string) error
	// AddWorkspaceMembership assumes the caller verified org membership.
	// A duplicate (user, workspace) pair yields ErrAlreadyExists; a missing
	// org membership yields ErrNotFound.
	AddWorkspaceMembership(ctx context.Context, userID, orgID, workspaceID string, role WorkspaceRole) error
	RemoveWorkspaceMembership(ctx context.Context, userID, orgID, workspaceID string) error

	// OrgRole returns the user's role in the organization, or ErrNotFound
	// when no membership exists. ErrNotFound is the canonical no-access
	// signal for the authorization engine.
	OrgRole(ctx context.Context, userID, orgID string) (OrgRole, error)
	// WorkspaceRole resolves a workspace-only lookup and reports the owning
	// organization id alongside the role.
	WorkspaceRole(ctx context.Context, userID, workspaceID string) (WorkspaceRole, string, error)
	// WorkspaceRoleIn additionally validates that the workspace is nested
	// under the given organization.
	WorkspaceRoleIn(ctx context.Context, userID, orgID, workspaceID string) (WorkspaceRole, error)

	UpdateOrgRole(ctx context.Context, userID, orgID string, role OrgRole) error
	UpdateWorkspaceRole(ctx context.Context, userID, orgID, workspaceID string, role WorkspaceRole) error

	// Memberships returns the user's full nested membership document.
	Memberships(ctx context.Context, userID string) ([]OrgMembership, error)
}

// TokenBlocklist is the append-only revocation list. Entries expire on their
// own after the maximum token lifetime.
type TokenBlocklist interface {
	// Block records the token. A token already present yields
	// ErrAlreadyExists, which callers treat as already-revoked.
	Block(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

// LoginAttemptStore persists failed-login records for the brute-force guard.
type LoginAttemptStore interface {
	Record(ctx context.Context, attempt FailedLogin) error
	// CountSince counts records matching username OR ip since the cutoff.
	CountSince(ctx context.Context, username, ip string, since time.Time) (int, error)
	// Clear deletes every record for the username, regardless of IP.
	Clear(ctx context.Context, username string) error
}
