package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tasklane.org/internal/auth"
	"tasklane.org/internal/ids"
)

// ErrInvalidInput marks caller mistakes in creation and update forms, as
// opposed to store failures or authorization denials.
var ErrInvalidInput = errors.New("project: invalid input")

// Service coordinates the hierarchy: organization creation with its
// compensating-delete saga, workspace and board CRUD, and invite flows.
// Every mutating call is permission-gated through the authorizer.
type Service struct {
	orgs       OrganizationStore
	workspaces WorkspaceStore
	boards     BoardStore
	grants     auth.GrantStore
	authz      *auth.Authorizer
	now        func() time.Time
	log        *logrus.Logger
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source.
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithServiceLogger overrides the logger.
func WithServiceLogger(log *logrus.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService constructs the project service.
func NewService(orgs OrganizationStore, workspaces WorkspaceStore, boards BoardStore, grants auth.GrantStore, authz *auth.Authorizer, opts ...ServiceOption) (*Service, error) {
	if orgs == nil || workspaces == nil || boards == nil {
		return nil, errors.New("project: all stores are required")
	}
	if grants == nil {
		return nil, errors.New("project: grant store is required")
	}
	if authz == nil {
		return nil, errors.New("project: authorizer is required")
	}
	s := &Service{
		orgs:       orgs,
		workspaces: workspaces,
		boards:     boards,
		grants:     grants,
		authz:      authz,
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// requireOrgMember gates read surfaces: any role inside the org may look.
func (s *Service) requireOrgMember(ctx context.Context, userID, orgID string) error {
	_, err := s.authz.OrgRoleFor(ctx, userID, orgID)
	switch {
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, ids.ErrInvalidIdentifier):
		return &auth.PermissionDenied{Scope: auth.ScopeOrganization, ScopeID: orgID, Permission: auth.PermViewOrganization}
	case err != nil:
		return fmt.Errorf("resolve organization membership: %w", err)
	}
	return nil
}

// requireWorkspaceMember gates workspace read surfaces.
func (s *Service) requireWorkspaceMember(ctx context.Context, userID, workspaceID string) error {
	_, _, err := s.authz.WorkspaceRoleFor(ctx, userID, workspaceID)
	switch {
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, ids.ErrInvalidIdentifier):
		return &auth.PermissionDenied{Scope: auth.ScopeWorkspace, ScopeID: workspaceID, Permission: auth.PermViewTasks}
	case err != nil:
		return fmt.Errorf("resolve workspace membership: %w", err)
	}
	return nil
}

// CreateOrganizationInput carries the creation form.
type CreateOrganizationInput struct {
	Title       string
	Description string
	Color       string
	Image       Image
}

// CreateOrganization inserts the organization and grants the creator the
// Admin role. The two writes are not atomic across stores, so a failed grant
// triggers a compensating delete of the fresh org; if even that fails the
// orphan is logged for cleanup.
func (s *Service) CreateOrganization(ctx context.Context, creatorID string, in CreateOrganizationInput) (*Organization, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: organization title is required", ErrInvalidInput)
	}
	if err := ids.Validate(creatorID); err != nil {
		return nil, err
	}
	slug, err := UniqueSlug(ctx, title, s.orgs.SlugTaken)
	if err != nil {
		return nil, fmt.Errorf("generate slug: %w", err)
	}
	now := s.now().UTC()
	org := &Organization{
		ID:          ids.New(),
		Title:       title,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		Color:       strings.TrimSpace(in.Color),
		Image:       in.Image,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	if _, err := s.grants.AddOrgMembership(ctx, creatorID, org.ID, auth.OrgRoleAdmin); err != nil {
		if delErr := s.orgs.Delete(ctx, org.ID); delErr != nil {
			s.log.WithError(delErr).WithFields(logrus.Fields{
				"organization_id": org.ID,
				"creator_id":      creatorID,
			}).Error("compensating delete failed, organization orphaned")
		}
		return nil, fmt.Errorf("grant creator admin: %w", err)
	}
	return org, nil
}

// GetOrganization resolves by id, for members only.
func (s *Service) GetOrganization(ctx context.Context, callerID, orgID string) (*Organization, error) {
	if err := s.requireOrgMember(ctx, callerID, orgID); err != nil {
		return nil, err
	}
	return s.orgs.Get(ctx, orgID)
}

// GetOrganizationBySlug resolves by slug, then applies the same membership gate.
func (s *Service) GetOrganizationBySlug(ctx context.Context, callerID, slug string) (*Organization, error) {
	org, err := s.orgs.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrgMember(ctx, callerID, org.ID); err != nil {
		return nil, err
	}
	return org, nil
}

// SearchOrganizations finds organizations by title fragment, restricted to
// ones the caller belongs to.
func (s *Service) SearchOrganizations(ctx context.Context, callerID, title string) ([]*Organization, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	matches, err := s.orgs.SearchByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	memberships, err := s.grants.Memberships(ctx, callerID)
	if err != nil {
		return nil, err
	}
	member := make(map[string]bool, len(memberships))
	for _, m := range memberships {
		member[m.OrgID] = true
	}
	var out []*Organization
	for _, org := range matches {
		if member[org.ID] {
			out = append(out, org)
		}
	}
	return out, nil
}

// ListOrganizations returns every org the user belongs to, with workspace
// counts and the user's role.
func (s *Service) ListOrganizations(ctx context.Context, userID string) ([]OrganizationSummary, error) {
	memberships, err := s.grants.Memberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, nil
	}
	orgIDs := make([]string, 0, len(memberships))
	roles := make(map[string]auth.OrgRole, len(memberships))
	for _, m := range memberships {
		orgIDs = append(orgIDs, m.OrgID)
		roles[m.OrgID] = m.Role
	}
	orgs, err := s.orgs.ListByIDs(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	out := make([]OrganizationSummary, 0, len(orgs))
	for _, org := range orgs {
		count, err := s.workspaces.CountByOrg(ctx, org.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, OrganizationSummary{
			Organization:   *org,
			WorkspaceCount: count,
			UserRole:       roles[org.ID],
		})
	}
	return out, nil
}

// UpdateOrganization applies the change set and appends a history entry.
func (s *Service) UpdateOrganization(ctx context.Context, callerID, orgID string, upd OrganizationUpdate) (*Organization, error) {
	if err := s.authz.RequireOrgPermission(ctx, callerID, orgID, auth.PermManageOrganization); err != nil {
		return nil, err
	}
	if upd.Slug != nil {
		slug := strings.TrimSpace(*upd.Slug)
		if slug == "" {
			return nil, fmt.Errorf("%w: slug must not be empty", ErrInvalidInput)
		}
		taken, err := s.orgs.SlugTaken(ctx, slug)
		if err != nil {
			return nil, err
		}
		if taken {
			current, err := s.orgs.Get(ctx, orgID)
			if err != nil || current.Slug != slug {
				return nil, fmt.Errorf("%w: slug %q", auth.ErrAlreadyExists, slug)
			}
		}
		upd.Slug = &slug
	}
	changes := upd.Changes()
	if len(changes) == 0 {
		return s.orgs.Get(ctx, orgID)
	}
	entry := HistoryEntry{UpdatedAt: s.now().UTC(), UpdatedBy: callerID, Changes: changes}
	return s.orgs.Update(ctx, orgID, upd, entry)
}

// DeleteOrganization removes the org and everything under it.
func (s *Service) DeleteOrganization(ctx context.Context, callerID, orgID string) error {
	if err := s.authz.RequireOrgPermission(ctx, callerID, orgID, auth.PermDeleteOrganization); err != nil {
		return err
	}
	return s.orgs.Delete(ctx, orgID)
}

// InviteToOrganization adds a user to the org. An existing membership
// reports auth.ErrAlreadyExists.
func (s *Service) InviteToOrganization(ctx context.Context, callerID, orgID, inviteeID string, role auth.OrgRole) error {
	if err := s.authz.RequireOrgPermission(ctx, callerID, orgID, auth.PermInviteUsersToOrg); err != nil {
		return err
	}
	if err := ids.Validate(inviteeID); err != nil {
		return err
	}
	created, err := s.grants.AddOrgMembership(ctx, inviteeID, orgID, role)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: user already in organization", auth.ErrAlreadyExists)
	}
	return nil
}

// UpdateOrganizationRole changes a member's org-scope role.
func (s *Service) UpdateOrganizationRole(ctx context.Context, callerID, orgID, memberID string, role auth.OrgRole) error {
	if err := s.authz.RequireOrgPermission(ctx, callerID, orgID, auth.PermManageOrganization); err != nil {
		return err
	}
	return s.grants.UpdateOrgRole(ctx, memberID, orgID, role)
}

// RemoveFromOrganization revokes the member's org grant; workspace grants
// under that org go with it.
func (s *Service) RemoveFromOrganization(ctx context.Context, callerID, orgID, memberID string) error {
	if err := s.authz.RequireOrgPermission(ctx, callerID, orgID, auth.PermManageOrganization); err != nil {
		return err
	}
	return s.grants.RemoveOrgMembership(ctx, memberID, orgID)
}

// CreateWorkspaceInput carries the creation form.
type CreateWorkspaceInput struct {
	Title       string
	Description string
	Image       Image
}

// CreateWorkspace inserts a workspace under the org and makes the creator
// its workspace-scope Admin, with the same compensation shape as org
// creation.
func (s *Service) CreateWorkspace(ctx context.Context, creatorID, orgID string, in CreateWorkspaceInput) (*Workspace, error) {
	if err := s.authz.RequireOrgPermission(ctx, creatorID, orgID, auth.PermManageWorkspaces); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: workspace title is required", ErrInvalidInput)
	}
	slug, err := UniqueSlug(ctx, title, s.workspaces.SlugTaken)
	if err != nil {
		return nil, fmt.Errorf("generate slug: %w", err)
	}
	now := s.now().UTC()
	ws := &Workspace{
		ID:          ids.New(),
		OrgID:       orgID,
		Title:       title,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		Image:       in.Image,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.workspaces.Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	if err := s.grants.AddWorkspaceMembership(ctx, creatorID, orgID, ws.ID, auth.WorkspaceRoleAdmin); err != nil {
		if delErr := s.workspaces.Delete(ctx, ws.ID); delErr != nil {
			s.log.WithError(delErr).WithFields(logrus.Fields{
				"workspace_id": ws.ID,
				"creator_id":   creatorID,
			}).Error("compensating delete failed, workspace orphaned")
		}
		return nil, fmt.Errorf("grant creator workspace admin: %w", err)
	}
	return ws, nil
}

// GetWorkspace resolves by id, for workspace members and org members alike.
func (s *Service) GetWorkspace(ctx context.Context, callerID, workspaceID string) (*Workspace, error) {
	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWorkspaceMember(ctx, callerID, workspaceID); err != nil {
		// Org-level membership also grants read access.
		if orgErr := s.requireOrgMember(ctx, callerID, ws.OrgID); orgErr != nil {
			return nil, err
		}
	}
	return ws, nil
}

// GetWorkspaceBySlug resolves by slug with the same gates as GetWorkspace.
func (s *Service) GetWorkspaceBySlug(ctx context.Context, callerID, slug string) (*Workspace, error) {
	ws, err := s.workspaces.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.GetWorkspace(ctx, callerID, ws.ID)
}

// ListWorkspaces returns the org's workspaces with member counts.
func (s *Service) ListWorkspaces(ctx context.Context, callerID, orgID string) ([]WorkspaceSummary, error) {
	if err := s.requireOrgMember(ctx, callerID, orgID); err != nil {
		return nil, err
	}
	return s.workspaces.ListByOrg(ctx, orgID)
}

// UpdateWorkspace applies the change set and appends a history entry. The
// parent organization is not updatable.
func (s *Service) UpdateWorkspace(ctx context.Context, callerID, workspaceID string, upd WorkspaceUpdate) (*Workspace, error) {
	if err := s.authz.RequireWorkspacePermission(ctx, callerID, workspaceID, auth.PermManageWorkspace); err != nil {
		return nil, err
	}
	changes := upd.Changes()
	if len(changes) == 0 {
		return s.workspaces.Get(ctx, workspaceID)
	}
	entry := HistoryEntry{UpdatedAt: s.now().UTC(), UpdatedBy: callerID, Changes: changes}
	return s.workspaces.Update(ctx, workspaceID, upd, entry)
}

// DeleteWorkspace removes the workspace and its boards.
func (s *Service) DeleteWorkspace(ctx context.Context, callerID, workspaceID string) error {
	if err := s.authz.RequireWorkspacePermission(ctx, callerID, workspaceID, auth.PermManageWorkspace); err != nil {
		return err
	}
	return s.workspaces.Delete(ctx, workspaceID)
}

// InviteToWorkspace adds an org member to a workspace. The invitee must
// already belong to the owning organization; the grant store reports
// auth.ErrNotFound otherwise.
func (s *Service) InviteToWorkspace(ctx context.Context, callerID, workspaceID, inviteeID string, role auth.WorkspaceRole) error {
	if err := s.authz.RequireWorkspacePermission(ctx, callerID, workspaceID, auth.PermInviteUsersToWorkspace); err != nil {
		return err
	}
	if err := ids.Validate(inviteeID); err != nil {
		return err
	}
	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return err
	}
	return s.grants.AddWorkspaceMembership(ctx, inviteeID, ws.OrgID, workspaceID, role)
}

// UpdateWorkspaceRole changes a member's workspace-scope role.
func (s *Service) UpdateWorkspaceRole(ctx context.Context, callerID, workspaceID, memberID string, role auth.WorkspaceRole) error {
	if err := s.authz.RequireWorkspacePermission(ctx, callerID, workspaceID, auth.PermManageWorkspace); err != nil {
		return err
	}
	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return err
	}
	return s.grants.UpdateWorkspaceRole(ctx, memberID, ws.OrgID, workspaceID, role)
}

// RemoveFromWorkspace revokes the member's workspace grant. The org grant
// stays.
func (s *Service) RemoveFromWorkspace(ctx context.Context, callerID, workspaceID, memberID string) error {
	if err := s.authz.RequireWorkspacePermission(ctx, callerID, workspaceID, auth.PermManageWorkspace); err != nil {
		return err
	}
	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return err
	}
	return s.grants.RemoveWorkspaceMembership(ctx, memberID, ws.OrgID, workspaceID)
}

// CreateBoardInput carries the creation form.
type CreateBoardInput struct {
	Title     string
	Type      BoardType
	Image     Image
	StartDate *time.Time
	EndDate   *time.Time
}

// CreateBoard inserts a board. Sprint boards must carry a start date strictly
// before the end date.
func (s *Service) CreateBoard(ctx context.Context, creatorID, workspaceID string, in CreateBoardInput) (*Board, error) {
	if err := s.authz.RequireWorkspacePermission(ctx, creatorID, workspaceID, auth.PermCreateProjects); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: board title is required", ErrInvalidInput)
	}
	if in.Type == "" {
		in.Type = BoardTypeKanban
	}
	if in.Type == BoardTypeSprint {
		if in.StartDate == nil || in.EndDate == nil {
			return nil, fmt.Errorf("%w: sprint boards require start and end dates", ErrInvalidInput)
		}
		if !in.StartDate.Before(*in.EndDate) {
			return nil, fmt.Errorf("%w: sprint start date must be before end date", ErrInvalidInput)
		}
	}
	now := s.now().UTC()
	board := &Board{
		ID:          ids.New(),
		WorkspaceID: workspaceID,
		Title:       title,
		Type:        in.Type,
		Status:      BoardUncompleted,
		Image:       in.Image,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.boards.Create(ctx, board); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	return board, nil
}

// GetBoard resolves by id for workspace members.
func (s *Service) GetBoard(ctx context.Context, callerID, boardID string) (*Board, error) {
	board, err := s.boards.Get(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWorkspaceMember(ctx, callerID, board.WorkspaceID); err != nil {
		return nil, err
	}
	return board, nil
}

// ListBoards returns the workspace's boards.
func (s *Service) ListBoards(ctx context.Context, callerID, workspaceID string) ([]*Board, error) {
	if err := s.requireWorkspaceMember(ctx, callerID, workspaceID); err != nil {
		return nil, err
	}
	return s.boards.ListByWorkspace(ctx, workspaceID)
}

// UpdateBoard applies the change set. A date change on a sprint board is
// re-validated against the stored counterpart.
func (s *Service) UpdateBoard(ctx context.Context, callerID, boardID string, upd BoardUpdate) (*Board, error) {
	board, err := s.boards.Get(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireWorkspacePermission(ctx, callerID, board.WorkspaceID, auth.PermCreateProjects); err != nil {
		return nil, err
	}
	if board.Type == BoardTypeSprint && (upd.StartDate != nil || upd.EndDate != nil) {
		start, end := board.StartDate, board.EndDate
		if upd.StartDate != nil {
			start = upd.StartDate
		}
		if upd.EndDate != nil {
			end = upd.EndDate
		}
		if start == nil || end == nil || !start.Before(*end) {
			return nil, fmt.Errorf("%w: sprint start date must be before end date", ErrInvalidInput)
		}
	}
	changes := upd.Changes()
	if len(changes) == 0 {
		return board, nil
	}
	entry := HistoryEntry{UpdatedAt: s.now().UTC(), UpdatedBy: callerID, Changes: changes}
	return s.boards.Update(ctx, boardID, upd, entry)
}

// DeleteBoard removes the board.
func (s *Service) DeleteBoard(ctx context.Context, callerID, boardID string) error {
	board, err := s.boards.Get(ctx, boardID)
	if err != nil {
		return err
	}
	if err := s.authz.RequireWorkspacePermission(ctx, callerID, board.WorkspaceID, auth.PermDeleteProjects); err != nil {
		return err
	}
	return s.boards.Delete(ctx, boardID)
}

// Members lists the caller's own nested membership document, for the /me
// surface.
func (s *Service) Members(ctx context.Context, userID string) ([]auth.OrgMembership, error) {
	return s.grants.Memberships(ctx, userID)
}
