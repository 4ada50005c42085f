package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// In-memory store fakes shared by the package tests. Each fake has a
// failNext switch to exercise the fail-secure paths.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*User
	fail  error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*User)}
}

func (s *memUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrAlreadyExists
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUserStore) Find(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) Search(_ context.Context, fragment string) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(fragment)) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memGrantStore struct {
	mu     sync.Mutex
	grants map[string][]OrgMembership // userID -> memberships
	fail   error
}

func newMemGrantStore() *memGrantStore {
	return &memGrantStore{grants: make(map[string][]OrgMembership)}
}

func (s *memGrantStore) AddOrgMembership(_ context.Context, userID, orgID string, role OrgRole) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	for _, m := range s.grants[userID] {
		if m.OrgID == orgID {
			return false, nil
		}
	}
	s.grants[userID] = append(s.grants[userID], OrgMembership{OrgID: orgID, Role: role, JoinedAt: time.Now()})
	return true, nil
}

func (s *memGrantStore) RemoveOrgMembership(_ context.Context, userID, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	list := s.grants[userID]
	for i, m := range list {
		if m.OrgID == orgID {
			s.grants[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *memGrantStore) AddWorkspaceMembership(_ context.Context, userID, orgID, workspaceID string, role WorkspaceRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	list := s.grants[userID]
	for i, m := range list {
		if m.OrgID != orgID {
			continue
		}
		for _, ws := range m.Workspaces {
			if ws.WorkspaceID == workspaceID {
				return ErrAlreadyExists
			}
		}
		list[i].Workspaces = append(list[i].Workspaces, WorkspaceMembership{
			WorkspaceID: workspaceID, Role: role, JoinedAt: time.Now(),
		})
		return nil
	}
	return ErrNotFound
}

func (s *memGrantStore) RemoveWorkspaceMembership(_ context.Context, userID, orgID, workspaceID string) error {
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
	return ErrNotFound
}

func (s *memGrantStore) OrgRole(_ context.Context, userID, orgID string) (OrgRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	for _, m := range s.grants[userID] {
		if m.OrgID == orgID {
			return m.Role, nil
		}
	}
	return "", ErrNotFound
}

func (s *memGrantStore) WorkspaceRole(_ context.Context, userID, workspaceID string) (WorkspaceRole, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", "", s.fail
	}
	for _, m := range s.grants[userID] {
		for _, ws := range m.Workspaces {
			if ws.WorkspaceID == workspaceID {
				return ws.Role, m.OrgID, nil
			}
		}
	}
	return "", "", ErrNotFound
}

func (s *memGrantStore) WorkspaceRoleIn(_ context.Context, userID, orgID, workspaceID string) (WorkspaceRole, error) {
	role, owner, err := s.WorkspaceRole(context.Background(), userID, workspaceID)
	if err != nil {
		return "", err
	}
	if owner != orgID {
		return "", ErrNotFound
	}
	return role, nil
}

func (s *memGrantStore) UpdateOrgRole(_ context.Context, userID, orgID string, role OrgRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.grants[userID] {
		if m.OrgID == orgID {
			s.grants[userID][i].Role = role
			return nil
		}
	}
	return ErrNotFound
}

func (s *memGrantStore) UpdateWorkspaceRole(_ context.Context, userID, orgID, workspaceID string, role WorkspaceRole) error {
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
	return ErrNotFound
}

func (s *memGrantStore) Memberships(_ context.Context, userID string) ([]OrgMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OrgMembership(nil), s.grants[userID]...), nil
}

type memBlocklist struct {
	mu      sync.Mutex
	blocked map[string]time.Time
	fail    error
}

func newMemBlocklist() *memBlocklist {
	return &memBlocklist{blocked: make(map[string]time.Time)}
}

func (b *memBlocklist) Block(_ context.Context, token string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	if _, ok := b.blocked[token]; ok {
		return ErrAlreadyExists
	}
	b.blocked[token] = time.Now()
	return nil
}

func (b *memBlocklist) Contains(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return false, b.fail
	}
	_, ok := b.blocked[token]
	return ok, nil
}

type memAttemptStore struct {
	mu       sync.Mutex
	attempts []FailedLogin
	fail     error
}

func (s *memAttemptStore) Record(_ context.Context, attempt FailedLogin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *memAttemptStore) CountSince(_ context.Context, username, ip string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	count := 0
	for _, a := range s.attempts {
		if a.AttemptedAt.Before(since) {
			continue
		}
		if a.Username == username || a.IPAddress == ip {
			count++
		}
	}
	return count, nil
}

func (s *memAttemptStore) Clear(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	kept := s.attempts[:0]
	for _, a := range s.attempts {
		if a.Username != username {
			kept = append(kept, a)
		}
	}
	s.attempts = kept
	return nil
}

var errStoreDown = errors.New("store down")
