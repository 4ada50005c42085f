package pg

import (
	"context"
	"database/sql"
	"errors"

	"tasklane.org/internal/auth"
)

// Grants implements auth.GrantStore over the org_memberships and
// workspace_memberships tables. Workspace rows reference the org row with
// ON DELETE CASCADE, so revoking an org membership takes the workspace
// grants under it along.
type Grants struct {
	store *Store
}

var _ auth.GrantStore = (*Grants)(nil)

func NewGrants(store *Store) *Grants { return &Grants{store: store} }

// AddOrgMembership inserts the grant if absent. The created flag tells the
// caller whether a new row appeared or the user was already a member.
func (s *Grants) AddOrgMembership(ctx context.Context, userID, orgID string, role auth.OrgRole) (bool, error) {
	res, err := s.store.db.ExecContext(ctx, `
		insert into org_memberships (user_id, org_id, role, joined_at)
		values ($1, $2, $3, now())
		on conflict (user_id, org_id) do nothing
	`, userID, orgID, string(role))
	if err != nil {
		return false, mapWriteErr(err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff > 0, nil
}

func (s *Grants) RemoveOrgMembership(ctx context.Context, userID, orgID string) error {
	res, err := s.store.db.ExecContext(ctx, `
		delete from org_memberships where user_id = $1 and org_id = $2
	`, userID, orgID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// AddWorkspaceMembership requires an existing org membership: the composite
// foreign key surfaces a missing one as auth.ErrNotFound, a duplicate pair
// as auth.ErrAlreadyExists.
func (s *Grants) AddWorkspaceMembership(ctx context.Context, userID, orgID, workspaceID string, role auth.WorkspaceRole) error {
	_, err := s.store.db.ExecContext(ctx, `
		insert into workspace_memberships (user_id, org_id, workspace_id, role, joined_at)
		values ($1, $2, $3, $4, now())
	`, userID, orgID, workspaceID, string(role))
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *Grants) RemoveWorkspaceMembership(ctx context.Context, userID, orgID, workspaceID string) error {
	res, err := s.store.db.ExecContext(ctx, `
		delete from workspace_memberships
		where user_id = $1 and org_id = $2 and workspace_id = $3
	`, userID, orgID, workspaceID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Grants) OrgRole(ctx context.Context, userID, orgID string) (auth.OrgRole, error) {
	var role string
	err := s.store.db.QueryRowContext(ctx, `
		select role from org_memberships where user_id = $1 and org_id = $2
	`, userID, orgID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", auth.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return auth.ParseOrgRole(role)
}

// WorkspaceRole resolves a workspace-only lookup and reports the owning
// organization alongside the role.
func (s *Grants) WorkspaceRole(ctx context.Context, userID, workspaceID string) (auth.WorkspaceRole, string, error) {
	var (
		role  string
		orgID string
	)
	err := s.store.db.QueryRowContext(ctx, `
		select role, org_id from workspace_memberships
		where user_id = $1 and workspace_id = $2
	`, userID, workspaceID).Scan(&role, &orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", auth.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	parsed, err := auth.ParseWorkspaceRole(role)
	if err != nil {
		return "", "", err
	}
	return parsed, orgID, nil
}

// WorkspaceRoleIn validates the org/workspace nesting as part of the lookup.
func (s *Grants) WorkspaceRoleIn(ctx context.Context, userID, orgID, workspaceID string) (auth.WorkspaceRole, error) {
	var role string
	err := s.store.db.QueryRowContext(ctx, `
		select role from workspace_memberships
		where user_id = $1 and org_id = $2 and workspace_id = $3
	`, userID, orgID, workspaceID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", auth.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return auth.ParseWorkspaceRole(role)
}

func (s *Grants) UpdateOrgRole(ctx context.Context, userID, orgID string, role auth.OrgRole) error {
	res, err := s.store.db.ExecContext(ctx, `
		update org_memberships set role = $3 where user_id = $1 and org_id = $2
	`, userID, orgID, string(role))
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Grants) UpdateWorkspaceRole(ctx context.Context, userID, orgID, workspaceID string, role auth.WorkspaceRole) error {
	res, err := s.store.db.ExecContext(ctx, `
		update workspace_memberships set role = $4
		where user_id = $1 and org_id = $2 and workspace_id = $3
	`, userID, orgID, workspaceID, string(role))
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Memberships assembles the nested membership document: org grants with
// their workspace grants inside.
func (s *Grants) Memberships(ctx context.Context, userID string) ([]auth.OrgMembership, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		select org_id, role, joined_at from org_memberships
		where user_id = $1
		order by joined_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		result []auth.OrgMembership
		index  = map[string]int{}
	)
	for rows.Next() {
		var (
			m    auth.OrgMembership
			role string
		)
		if err := rows.Scan(&m.OrgID, &role, &m.JoinedAt); err != nil {
			return nil, err
		}
		if m.Role, err = auth.ParseOrgRole(role); err != nil {
			return nil, err
		}
		index[m.OrgID] = len(result)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	wsRows, err := s.store.db.QueryContext(ctx, `
		select org_id, workspace_id, role, joined_at from workspace_memberships
		where user_id = $1
		order by joined_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer wsRows.Close()

	for wsRows.Next() {
		var (
			orgID string
			ws    auth.WorkspaceMembership
			role  string
		)
		if err := wsRows.Scan(&orgID, &ws.WorkspaceID, &role, &ws.JoinedAt); err != nil {
			return nil, err
		}
		if ws.Role, err = auth.ParseWorkspaceRole(role); err != nil {
			return nil, err
		}
		if i, ok := index[orgID]; ok {
			result[i].Workspaces = append(result[i].Workspaces, ws)
		}
	}
	if err := wsRows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
