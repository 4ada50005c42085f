package auth

import "fmt"

// Scope is the level at which a role or permission applies.
type Scope string

const (
	ScopeOrganization Scope = "organization"
	ScopeWorkspace    Scope = "workspace"
)

// OrgRole is a fixed role at organization scope.
type OrgRole string

const (
	OrgRoleAdmin  OrgRole = "Admin"
	OrgRoleMember OrgRole = "Member"
)

// WorkspaceRole is a fixed role at workspace scope. Admin appears in both
// scopes with a different permission set.
type WorkspaceRole string

const (
	WorkspaceRoleAdmin     WorkspaceRole = "Admin"
	WorkspaceRoleDeveloper WorkspaceRole = "Developer"
	WorkspaceRoleViewer    WorkspaceRole = "Viewer"
)

// Permission is a fine-grained capability key.
type Permission string

// Organization-scope permissions.
const (
	PermManageOrganization Permission = "manage_organization"
	PermManageWorkspaces   Permission = "manage_workspaces"
	PermInviteUsersToOrg   Permission = "invite_users_to_org"
	PermManageBilling      Permission = "manage_billing"
	PermDeleteOrganization Permission = "delete_organization"
	PermViewOrganization   Permission = "view_organization"
	PermViewWorkspaces     Permission = "view_workspaces"
)

// Workspace-scope permissions.
const (
	PermManageWorkspace        Permission = "manage_workspace"
	PermInviteUsersToWorkspace Permission = "invite_users_to_workspace"
	PermCreateProjects         Permission = "create_projects"
	PermDeleteProjects         Permission = "delete_projects"
	PermCreateTasks            Permission = "create_tasks"
	PermEditAllTasks           Permission = "edit_all_tasks"
	PermEditOwnTasks           Permission = "edit_own_tasks"
	PermDeleteTasks            Permission = "delete_tasks"
	PermAssignTasks            Permission = "assign_tasks"
	PermChangeTaskStatus       Permission = "change_task_status"
	PermViewTasks              Permission = "view_tasks"
	PermViewAnalytics          Permission = "view_analytics"
	PermCreateComments         Permission = "create_comments"
	PermEditOwnComments        Permission = "edit_own_comments"
	PermDeleteComments         Permission = "delete_comments"
)

// Static role → permission tables. These are the single source of truth for
// what a role may do; there are no custom or composite roles.
var orgRolePermissions = map[OrgRole][]Permission{
	OrgRoleAdmin: {
		PermManageOrganization,
		PermManageWorkspaces,
		PermInviteUsersToOrg,
		PermManageBilling,
		PermDeleteOrganization,
	},
	OrgRoleMember: {
		PermViewOrganization,
		PermViewWorkspaces,
	},
}

var workspaceRolePermissions = map[WorkspaceRole][]Permission{
	WorkspaceRoleAdmin: {
		PermManageWorkspace,
		PermInviteUsersToWorkspace,
		PermCreateProjects,
		PermDeleteProjects,
		PermCreateTasks,
		PermEditAllTasks,
		PermDeleteTasks,
		PermAssignTasks,
		PermChangeTaskStatus,
		PermViewTasks,
		PermViewAnalytics,
		PermCreateComments,
		PermDeleteComments,
	},
	WorkspaceRoleDeveloper: {
		PermCreateTasks,
		PermEditOwnTasks,
		PermAssignTasks,
		PermChangeTaskStatus,
		PermViewTasks,
		PermCreateComments,
		PermEditOwnComments,
		PermCreateProjects,
	},
	WorkspaceRoleViewer: {
		PermViewTasks,
		PermCreateComments,
		PermEditOwnComments,
	},
}

// Set-form tables built once at startup so permission checks are map lookups.
var (
	orgGrantTable       = buildGrantTable(orgRolePermissions)
	workspaceGrantTable = buildGrantTable(workspaceRolePermissions)
)

func buildGrantTable[R comparable](src map[R][]Permission) map[R]map[Permission]struct{} {
	out := make(map[R]map[Permission]struct{}, len(src))
	for role, perms := range src {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		out[role] = set
	}
	return out
}

// ParseOrgRole rejects role strings outside the fixed organization enum.
func ParseOrgRole(s string) (OrgRole, error) {
	switch OrgRole(s) {
	case OrgRoleAdmin, OrgRoleMember:
		return OrgRole(s), nil
	}
	return "", fmt.Errorf("%w: %q at %s scope", ErrUnknownRole, s, ScopeOrganization)
}

// ParseWorkspaceRole rejects role strings outside the fixed workspace enum.
func ParseWorkspaceRole(s string) (WorkspaceRole, error) {
	switch WorkspaceRole(s) {
	case WorkspaceRoleAdmin, WorkspaceRoleDeveloper, WorkspaceRoleViewer:
		return WorkspaceRole(s), nil
	}
	return "", fmt.Errorf("%w: %q at %s scope", ErrUnknownRole, s, ScopeWorkspace)
}

// Allows reports whether the organization role carries the permission.
// Unknown roles map to the empty set, so the answer is deny.
func (r OrgRole) Allows(p Permission) bool {
	_, ok := orgGrantTable[r][p]
	return ok
}

// Allows reports whether the workspace role carries the permission.
func (r WorkspaceRole) Allows(p Permission) bool {
	_, ok := workspaceGrantTable[r][p]
	return ok
}

// Permissions returns the permission set of the role, for introspection
// surfaces. The returned slice is a copy.
func (r OrgRole) Permissions() []Permission {
	return append([]Permission(nil), orgRolePermissions[r]...)
}

// Permissions returns the permission set of the role.
func (r WorkspaceRole) Permissions() []Permission {
	return append([]Permission(nil), workspaceRolePermissions[r]...)
}
