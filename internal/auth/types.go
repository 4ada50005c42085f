package auth

import "time"

// User is an account identity. Username and email are unique; identity
// fields are immutable after registration. PasswordHash only ever holds a
// bcrypt digest, never plaintext.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OrgMembership binds a user to an organization with exactly one role and
// carries the nested workspace memberships under that organization.
type OrgMembership struct {
	OrgID      string                `json:"organization_id"`
	Role       OrgRole               `json:"role"`
	JoinedAt   time.Time             `json:"joined_at"`
	Workspaces []WorkspaceMembership `json:"workspaces"`
}

// WorkspaceMembership binds a user to a workspace nested under one of their
// organizations.
type WorkspaceMembership struct {
	WorkspaceID string        `json:"workspace_id"`
	Role        WorkspaceRole `json:"role"`
	JoinedAt    time.Time     `json:"joined_at"`
}

// TokenPair is the result of login, registration, or rotation.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// FailedLogin is one append-only failed-attempt record. Records are only
// ever counted inside a sliding window or deleted, never updated.
type FailedLogin struct {
	Username    string
	IPAddress   string
	AttemptedAt time.Time
}
