package project

import (
	"context"
	"strings"
	"sync"
	"time"

	"tasklane.org/internal/auth"
)

// In-memory store fakes for the service tests.

type memOrgStore struct {
	mu         sync.Mutex
	orgs       map[string]*Organization
	failCreate error
	failDelete error
}

func newMemOrgStore() *memOrgStore {
	return &memOrgStore{orgs: make(map[string]*Organization)}
}

func (s *memOrgStore) Create(_ context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *memOrgStore) Get(_ context.Context, id string) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *memOrgStore) GetBySlug(_ context.Context, slug string) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, org := range s.orgs {
		if org.Slug == slug {
			cp := *org
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *memOrgStore) SearchByTitle(_ context.Context, fragment string) ([]*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Organization
	for _, org := range s.orgs {
		if strings.Contains(strings.ToLower(org.Title), strings.ToLower(fragment)) {
			cp := *org
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memOrgStore) ListByIDs(_ context.Context, ids []string) ([]*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Organization
	for _, id := range ids {
		if org, ok := s.orgs[id]; ok {
			cp := *org
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memOrgStore) Update(_ context.Context, id string, upd OrganizationUpdate, entry HistoryEntry) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Title != nil {
		org.Title = *upd.Title
	}
	if upd.Slug != nil {
		org.Slug = *upd.Slug
	}
	if upd.Description != nil {
		org.Description = *upd.Description
	}
	if upd.Color != nil {
		org.Color = *upd.Color
	}
	if upd.Image != nil {
		org.Image = *upd.Image
	}
	org.UpdatedAt = entry.UpdatedAt
	org.History = append(org.History, entry)
	cp := *org
	return &cp, nil
}

func (s *memOrgStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	if _, ok := s.orgs[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.orgs, id)
	return nil
}

func (s *memOrgStore) SlugTaken(_ context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, org := range s.orgs {
		if org.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

type memWorkspaceStore struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	members    map[string]int
}

func newMemWorkspaceStore() *memWorkspaceStore {
	return &memWorkspaceStore{workspaces: make(map[string]*Workspace), members: make(map[string]int)}
}

func (s *memWorkspaceStore) Create(_ context.Context, ws *Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ws
	s.workspaces[ws.ID] = &cp
	return nil
}

func (s *memWorkspaceStore) Get(_ context.Context, id string) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (s *memWorkspaceStore) GetBySlug(_ context.Context, slug string) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ws := range s.workspaces {
		if ws.Slug == slug {
			cp := *ws
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *memWorkspaceStore) ListByOrg(_ context.Context, orgID string) ([]WorkspaceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []WorkspaceSummary
	for _, ws := range s.workspaces {
		if ws.OrgID == orgID {
			out = append(out, WorkspaceSummary{Workspace: *ws, MemberCount: s.members[ws.ID]})
		}
	}
	return out, nil
}

func (s *memWorkspaceStore) CountByOrg(_ context.Context, orgID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ws := range s.workspaces {
		if ws.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

func (s *memWorkspaceStore) Update(_ context.Context, id string, upd WorkspaceUpdate, entry HistoryEntry) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Title != nil {
		ws.Title = *upd.Title
	}
	if upd.Description != nil {
		ws.Description = *upd.Description
	}
	if upd.Image != nil {
		ws.Image = *upd.Image
	}
	ws.UpdatedAt = entry.UpdatedAt
	ws.History = append(ws.History, entry)
	cp := *ws
	return &cp, nil
}

func (s *memWorkspaceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.workspaces, id)
	return nil
}

func (s *memWorkspaceStore) SlugTaken(_ context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ws := range s.workspaces {
		if ws.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

type memBoardStore struct {
	mu     sync.Mutex
	boards map[string]*Board
}

func newMemBoardStore() *memBoardStore {
	return &memBoardStore{boards: make(map[string]*Board)}
}

func (s *memBoardStore) Create(_ context.Context, b *Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.boards[b.ID] = &cp
	return nil
}

func (s *memBoardStore) Get(_ context.Context, id string) (*Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memBoardStore) ListByWorkspace(_ context.Context, workspaceID string) ([]*Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Board
	for _, b := range s.boards {
		if b.WorkspaceID == workspaceID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memBoardStore) Update(_ context.Context, id string, upd BoardUpdate, entry HistoryEntry) (*Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Title != nil {
		b.Title = *upd.Title
	}
	if upd.Status != nil {
		b.Status = *upd.Status
	}
	if upd.Image != nil {
		b.Image = *upd.Image
	}
	if upd.StartDate != nil {
		b.StartDate = upd.StartDate
	}
	if upd.EndDate != nil {
		b.EndDate = upd.EndDate
	}
	b.UpdatedAt = entry.UpdatedAt
	b.History = append(b.History, entry)
	cp := *b
	return &cp, nil
}

func (s *memBoardStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.boards, id)
	return nil
}

// memGrants is a nested-membership grant store fake.
type memGrants struct {
	mu      sync.Mutex
	grants  map[string][]auth.OrgMembership
	failAdd error
}

func newMemGrants() *memGrants {
	return &memGrants{grants: make(map[string][]auth.OrgMembership)}
}

func (s *memGrants) AddOrgMembership(_ context.Context, userID, orgID string, role auth.OrgRole) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdd != nil {
		return false, s.failAdd
	}
	for _, m := range s.grants[userID] {
		if m.OrgID == orgID {
			return false, nil
		}
	}
	s.grants[userID] = append(s.grants[userID], auth.OrgMembership{OrgID: orgID, Role: role, JoinedAt: time.Now()})
	return true, nil
}

func (s *memGrants) RemoveOrgMembership(_ context.Context, userID, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.grants[userID]
	for i, m := range list {
		if m.OrgID == orgID {
			s.grants[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return auth.ErrNotFound
}

func (s *memGrants) AddWorkspaceMembership(_ context.Context, userID, orgID, workspaceID string, role auth.WorkspaceRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdd != nil {
		return s.failAdd
	}
	list := s.grants[userID]
	for i, m := range list {
		if m.OrgID != orgID {
			continue
		}
		for _, ws := range m.Workspaces {
			if ws.WorkspaceID == workspaceID {
				return auth.ErrAlreadyExists
			}
		}
		list[i].Workspaces = append(list[i].Workspaces, auth.WorkspaceMembership{
			WorkspaceID: workspaceID, Role: role, JoinedAt: time.Now(),
		})
		return nil
	}
	return auth.ErrNotFound
}

func (s *memGrants) RemoveWorkspaceMembership(_ context.Context, userID, orgID, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.grants[userID] {
		if m.OrgID != orgID {
			continue
		}
		for j, ws := range m.Workspaces {
			if ws.WorkspaceID == workspaceID {
				s.grants[userID][i].Workspaces = append(m.Workspaces[:j:j], m.Workspaces[j+1:]...)
				return nil
			}
		}
	}
	return auth.ErrNotFound
}

func (s *memGrants) OrgRole(_ context.Context, userID, orgID string) (auth.OrgRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.grants[userID] {
		if m.OrgID == orgID {
			return m.Role, nil
		}
	}
	return "", auth.ErrNotFound
}

func (s *memGrants) WorkspaceRole(_ context.Context, userID, workspaceID string) (auth.WorkspaceRole, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.grants[userID] {
		for _, ws := range m.Workspaces {
			if ws.WorkspaceID == workspaceID {
				return ws.Role, m.OrgID, nil
			}
		}
	}
	return "", "", auth.ErrNotFound
}

func (s *memGrants) WorkspaceRoleIn(ctx context.Context, userID, orgID, workspaceID string) (auth.WorkspaceRole, error) {
	role, owner, err := s.WorkspaceRole(ctx, userID, workspaceID)
	if err != nil {
		return "", err
	}
	if owner != orgID {
		return "", auth.ErrNotFound
	}
	return role, nil
}

func (s *memGrants) UpdateOrgRole(_ context.Context, userID, orgID string, role auth.OrgRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.grants[userID] {
		if m.OrgID == orgID {
			s.grants[userID][i].Role = role
			return nil
		}
	}
	return auth.ErrNotFound
}

func (s *memGrants) UpdateWorkspaceRole(_ context.Context, userID, orgID, workspaceID string, role auth.WorkspaceRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.grants[userID] {
		if m.OrgID != orgID {
			continue
		}
		for j, ws := range m.Workspaces {
			if ws.WorkspaceID == workspaceID {
				s.grants[userID][i].Workspaces[j].Role = role
				return nil
			}
		}
	}
	return auth.ErrNotFound
}

func (s *memGrants) Memberships(_ context.Context, userID string) ([]auth.OrgMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auth.OrgMembership(nil), s.grants[userID]...), nil
}
