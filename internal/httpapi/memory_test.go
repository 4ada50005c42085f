package httpapi

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tasklane.org/internal/auth"
	"tasklane.org/internal/project"
)

// In-memory store implementations backing the handler tests. They honor the
// same sentinel-error contracts as the pg and redis stores.

type memUsers struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*auth.User{}}
}

func (m *memUsers) Create(ctx context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return auth.ErrAlreadyExists
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Find(ctx context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memUsers) Search(ctx context.Context, fragment string) ([]*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*auth.User
	fragment = strings.ToLower(fragment)
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Username), fragment) ||
			strings.Contains(strings.ToLower(u.Email), fragment) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type memBlocklist struct {
	mu      sync.Mutex
	blocked map[string]time.Time
}

func newMemBlocklist() *memBlocklist {
	return &memBlocklist{blocked: map[string]time.Time{}}
}

func (m *memBlocklist) Block(ctx context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocked[token]; ok {
		return auth.ErrAlreadyExists
	}
	m.blocked[token] = time.Now().Add(ttl)
	return nil
}

func (m *memBlocklist) Contains(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blocked[token]
	return ok, nil
}

type memAttempts struct {
	mu      sync.Mutex
	records []auth.FailedLogin
}

func (m *memAttempts) Record(ctx context.Context, attempt auth.FailedLogin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, attempt)
	return nil
}

func (m *memAttempts) CountSince(ctx context.Context, username, ip string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rec := range m.records {
		if rec.AttemptedAt.Before(since) {
			continue
		}
		if rec.Username == username || (ip != "" && rec.IPAddress == ip) {
			count++
		}
	}
	return count, nil
}

func (m *memAttempts) Clear(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	for _, rec := range m.records {
		if rec.Username != username {
			kept = append(kept, rec)
		}
	}
	m.records = kept
	return nil
}

type orgGrant struct {
	role     auth.OrgRole
	joinedAt time.Time
}

type wsGrant struct {
	orgID    string
	role     auth.WorkspaceRole
	joinedAt time.Time
}

type memGrants struct {
	mu  sync.Mutex
	org map[string]map[string]orgGrant // userID -> orgID -> grant
	ws  map[string]map[string]wsGrant  // userID -> workspaceID -> grant
}

func newMemGrants() *memGrants {
	return &memGrants{
		org: map[string]map[string]orgGrant{},
		ws:  map[string]map[string]wsGrant{},
	}
}

func (m *memGrants) AddOrgMembership(ctx context.Context, userID, orgID string, role auth.OrgRole) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.org[userID] == nil {
		m.org[userID] = map[string]orgGrant{}
	}
	if _, ok := m.org[userID][orgID]; ok {
		return false, nil
	}
	m.org[userID][orgID] = orgGrant{role: role, joinedAt: time.Now().UTC()}
	return true, nil
}

func (m *memGrants) RemoveOrgMembership(ctx context.Context, userID, orgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.org[userID][orgID]; !ok {
		return auth.ErrNotFound
	}
	delete(m.org[userID], orgID)
	for wsID, g := range m.ws[userID] {
		if g.orgID == orgID {
			delete(m.ws[userID], wsID)
		}
	}
	return nil
}

func (m *memGrants) AddWorkspaceMembership(ctx context.Context, userID, orgID, workspaceID string, role auth.WorkspaceRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.org[userID][orgID]; !ok {
		return auth.ErrNotFound
	}
	if m.ws[userID] == nil {
		m.ws[userID] = map[string]wsGrant{}
	}
	if _, ok := m.ws[userID][workspaceID]; ok {
		return auth.ErrAlreadyExists
	}
	m.ws[userID][workspaceID] = wsGrant{orgID: orgID, role: role, joinedAt: time.Now().UTC()}
	return nil
}

func (m *memGrants) RemoveWorkspaceMembership(ctx context.Context, userID, orgID, workspaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.ws[userID][workspaceID]; !ok || g.orgID != orgID {
		return auth.ErrNotFound
	}
	delete(m.ws[userID], workspaceID)
	return nil
}

func (m *memGrants) OrgRole(ctx context.Context, userID, orgID string) (auth.OrgRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.org[userID][orgID]
	if !ok {
		return "", auth.ErrNotFound
	}
	return g.role, nil
}

func (m *memGrants) WorkspaceRole(ctx context.Context, userID, workspaceID string) (auth.WorkspaceRole, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.ws[userID][workspaceID]
	if !ok {
		return "", "", auth.ErrNotFound
	}
	return g.role, g.orgID, nil
}

func (m *memGrants) WorkspaceRoleIn(ctx context.Context, userID, orgID, workspaceID string) (auth.WorkspaceRole, error) {
	role, gotOrg, err := m.WorkspaceRole(ctx, userID, workspaceID)
	if err != nil {
		return "", err
	}
	if gotOrg != orgID {
		return "", auth.ErrNotFound
	}
	return role, nil
}

func (m *memGrants) UpdateOrgRole(ctx context.Context, userID, orgID string, role auth.OrgRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.org[userID][orgID]
	if !ok {
		return auth.ErrNotFound
	}
	g.role = role
	m.org[userID][orgID] = g
	return nil
}

func (m *memGrants) UpdateWorkspaceRole(ctx context.Context, userID, orgID, workspaceID string, role auth.WorkspaceRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.ws[userID][workspaceID]
	if !ok || g.orgID != orgID {
		return auth.ErrNotFound
	}
	g.role = role
	m.ws[userID][workspaceID] = g
	return nil
}

func (m *memGrants) Memberships(ctx context.Context, userID string) ([]auth.OrgMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.OrgMembership
	for orgID, g := range m.org[userID] {
		membership := auth.OrgMembership{OrgID: orgID, Role: g.role, JoinedAt: g.joinedAt}
		for wsID, wg := range m.ws[userID] {
			if wg.orgID == orgID {
				membership.Workspaces = append(membership.Workspaces, auth.WorkspaceMembership{
					WorkspaceID: wsID,
					Role:        wg.role,
					JoinedAt:    wg.joinedAt,
				})
			}
		}
		out = append(out, membership)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrgID < out[j].OrgID })
	return out, nil
}

type memOrgs struct {
	mu   sync.Mutex
	orgs map[string]*project.Organization
}

func newMemOrgs() *memOrgs {
	return &memOrgs{orgs: map[string]*project.Organization{}}
}

func (m *memOrgs) Create(ctx context.Context, org *project.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orgs {
		if existing.Slug == org.Slug {
			return auth.ErrAlreadyExists
		}
	}
	cp := *org
	m.orgs[org.ID] = &cp
	return nil
}

func (m *memOrgs) Get(ctx context.Context, id string) (*project.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (m *memOrgs) GetBySlug(ctx context.Context, slug string) (*project.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.orgs {
		if org.Slug == slug {
			cp := *org
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memOrgs) SearchByTitle(ctx context.Context, fragment string) ([]*project.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*project.Organization
	fragment = strings.ToLower(fragment)
	for _, org := range m.orgs {
		if strings.Contains(strings.ToLower(org.Title), fragment) {
			cp := *org
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrgs) ListByIDs(ctx context.Context, ids []string) ([]*project.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*project.Organization
	for _, id := range ids {
		if org, ok := m.orgs[id]; ok {
			cp := *org
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrgs) Update(ctx context.Context, id string, upd project.OrganizationUpdate, entry project.HistoryEntry) (*project.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
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
	org.History = append(org.History, entry)
	org.UpdatedAt = entry.UpdatedAt
	cp := *org
	return &cp, nil
}

func (m *memOrgs) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.orgs, id)
	return nil
}

func (m *memOrgs) SlugTaken(ctx context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.orgs {
		if org.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

type memWorkspaces struct {
	mu         sync.Mutex
	workspaces map[string]*project.Workspace
}

func newMemWorkspaces() *memWorkspaces {
	return &memWorkspaces{workspaces: map[string]*project.Workspace{}}
}

func (m *memWorkspaces) Create(ctx context.Context, ws *project.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ws
	m.workspaces[ws.ID] = &cp
	return nil
}

func (m *memWorkspaces) Get(ctx context.Context, id string) (*project.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (m *memWorkspaces) GetBySlug(ctx context.Context, slug string) (*project.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ws := range m.workspaces {
		if ws.Slug == slug {
			cp := *ws
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memWorkspaces) ListByOrg(ctx context.Context, orgID string) ([]project.WorkspaceSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []project.WorkspaceSummary
	for _, ws := range m.workspaces {
		if ws.OrgID == orgID {
			out = append(out, project.WorkspaceSummary{Workspace: *ws})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memWorkspaces) CountByOrg(ctx context.Context, orgID string) (int, error) {
	summaries, _ := m.ListByOrg(ctx, orgID)
	return len(summaries), nil
}

func (m *memWorkspaces) Update(ctx context.Context, id string, upd project.WorkspaceUpdate, entry project.HistoryEntry) (*project.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
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
	ws.History = append(ws.History, entry)
	ws.UpdatedAt = entry.UpdatedAt
	cp := *ws
	return &cp, nil
}

func (m *memWorkspaces) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.workspaces, id)
	return nil
}

func (m *memWorkspaces) SlugTaken(ctx context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ws := range m.workspaces {
		if ws.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

type memBoards struct {
	mu     sync.Mutex
	boards map[string]*project.Board
}

func newMemBoards() *memBoards {
	return &memBoards{boards: map[string]*project.Board{}}
}

func (m *memBoards) Create(ctx context.Context, b *project.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.boards[b.ID] = &cp
	return nil
}

func (m *memBoards) Get(ctx context.Context, id string) (*project.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBoards) ListByWorkspace(ctx context.Context, workspaceID string) ([]*project.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*project.Board
	for _, b := range m.boards {
		if b.WorkspaceID == workspaceID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBoards) Update(ctx context.Context, id string, upd project.BoardUpdate, entry project.HistoryEntry) (*project.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
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
	b.History = append(b.History, entry)
	b.UpdatedAt = entry.UpdatedAt
	cp := *b
	return &cp, nil
}

func (m *memBoards) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.boards, id)
	return nil
}
