package auth

import (
	"context"
	"errors"
	"fmt"

	"tasklane.org/internal/ids"
)

// PermissionDenied explains which permission was denied at which scope.
// It never carries role data of other users.
type PermissionDenied struct {
	Scope      Scope
	ScopeID    string
	Permission Permission
}

func (e *PermissionDenied) Error() string {
	return fmt.Sprintf("insufficient permission: %s on %s %s", e.Permission, e.Scope, e.ScopeID)
}

func (e *PermissionDenied) Unwrap() error { return ErrInsufficientPermission }

// Authorizer evaluates (user, scope, permission) triples against the static
// role tables and the grant store. Every check reads current state; a role
// change takes effect on the very next check.
type Authorizer struct {
	grants GrantStore
}

// NewAuthorizer constructs the authorization engine.
func NewAuthorizer(grants GrantStore) (*Authorizer, error) {
	if grants == nil {
		return nil, errors.New("auth: grant store is required")
	}
	return &Authorizer{grants: grants}, nil
}

func deny(scope Scope, scopeID string, perm Permission) error {
	return &PermissionDenied{Scope: scope, ScopeID: scopeID, Permission: perm}
}

// RequireOrgPermission returns nil when the user's organization role carries
// the permission. Missing membership, unknown role, or a malformed id all
// deny; store errors propagate so the boundary can distinguish 403 from 503,
// but either way the operation does not proceed.
func (a *Authorizer) RequireOrgPermission(ctx context.Context, userID, orgID string, perm Permission) error {
	if !ids.Valid(userID) || !ids.Valid(orgID) {
		return deny(ScopeOrganization, orgID, perm)
	}
	role, err := a.grants.OrgRole(ctx, userID, orgID)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownRole):
		return deny(ScopeOrganization, orgID, perm)
	case err != nil:
		return fmt.Errorf("resolve organization role: %w", err)
	}
	if !role.Allows(perm) {
		return deny(ScopeOrganization, orgID, perm)
	}
	return nil
}

// RequireWorkspacePermission is the workspace-scope counterpart. The lookup
// is workspace-only; the owning organization is resolved by the grant store.
func (a *Authorizer) RequireWorkspacePermission(ctx context.Context, userID, workspaceID string, perm Permission) error {
	if !ids.Valid(userID) || !ids.Valid(workspaceID) {
		return deny(ScopeWorkspace, workspaceID, perm)
	}
	role, _, err := a.grants.WorkspaceRole(ctx, userID, workspaceID)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownRole):
		return deny(ScopeWorkspace, workspaceID, perm)
	case err != nil:
		return fmt.Errorf("resolve workspace role: %w", err)
	}
	if !role.Allows(perm) {
		return deny(ScopeWorkspace, workspaceID, perm)
	}
	return nil
}

// HasOrgPermission collapses RequireOrgPermission to a boolean; every error
// becomes deny. Use at call sites that cannot surface structured errors.
func (a *Authorizer) HasOrgPermission(ctx context.Context, userID, orgID string, perm Permission) bool {
	return a.RequireOrgPermission(ctx, userID, orgID, perm) == nil
}

// HasWorkspacePermission collapses RequireWorkspacePermission to a boolean.
func (a *Authorizer) HasWorkspacePermission(ctx context.Context, userID, workspaceID string, perm Permission) bool {
	return a.RequireWorkspacePermission(ctx, userID, workspaceID, perm) == nil
}

// OrgRoleFor resolves the user's organization role; ErrNotFound is the
// canonical no-membership signal.
func (a *Authorizer) OrgRoleFor(ctx context.Context, userID, orgID string) (OrgRole, error) {
	if err := ids.Validate(userID); err != nil {
		return "", err
	}
	if err := ids.Validate(orgID); err != nil {
		return "", err
	}
	return a.grants.OrgRole(ctx, userID, orgID)
}

// WorkspaceRoleFor resolves a workspace-only lookup, reporting the owning
// organization id alongside the role.
func (a *Authorizer) WorkspaceRoleFor(ctx context.Context, userID, workspaceID string) (WorkspaceRole, string, error) {
	if err := ids.Validate(userID); err != nil {
		return "", "", err
	}
	if err := ids.Validate(workspaceID); err != nil {
		return "", "", err
	}
	return a.grants.WorkspaceRole(ctx, userID, workspaceID)
}
