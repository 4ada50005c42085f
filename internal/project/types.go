// Package project holds the organization → workspace → board hierarchy and
// the services that manage it. Authorization decisions are delegated to the
// auth package; this package supplies the scope ids to check against.
package project

import (
	"time"

	"tasklane.org/internal/auth"
)

// Image is a pair of CDN links attached to orgs, workspaces, and boards.
type Image struct {
	URL     string `json:"imageUrl,omitempty"`
	FullURL string `json:"imageFullUrl,omitempty"`
}

// HistoryEntry records one update to an entity: who, when, and the changed
// fields. History is append-only.
type HistoryEntry struct {
	UpdatedAt time.Time      `json:"updated_at"`
	UpdatedBy string         `json:"updated_by"`
	Changes   map[string]any `json:"changes"`
}

// Organization is the top-level tenant.
type Organization struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Description string         `json:"description,omitempty"`
	Color       string         `json:"color,omitempty"`
	Image       Image          `json:"image"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	History     []HistoryEntry `json:"history,omitempty"`
}

// OrganizationSummary is the list-view shape: the org plus the caller's role
// and a workspace count.
type OrganizationSummary struct {
	Organization
	WorkspaceCount int          `json:"workspace_count"`
	UserRole       auth.OrgRole `json:"user_role"`
}

// Workspace lives inside exactly one organization; the parent never changes
// after creation.
type Workspace struct {
	ID          string         `json:"id"`
	OrgID       string         `json:"organization_id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Description string         `json:"description,omitempty"`
	Image       Image          `json:"image"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	History     []HistoryEntry `json:"history,omitempty"`
}

// WorkspaceSummary is the list-view shape with a member count.
type WorkspaceSummary struct {
	Workspace
	MemberCount int `json:"member_count"`
}

// BoardType distinguishes sprint boards (which require a date range) from
// free-running ones.
type BoardType string

const (
	BoardTypeSprint BoardType = "sprint"
	BoardTypeKanban BoardType = "kanban"
)

// BoardStatus tracks completion.
type BoardStatus string

const (
	BoardUncompleted BoardStatus = "uncompleted"
	BoardCompleted   BoardStatus = "completed"
)

// Board is a unit of work inside a workspace.
type Board struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspace_id"`
	Title       string         `json:"title"`
	Type        BoardType      `json:"type"`
	Status      BoardStatus    `json:"status"`
	Image       Image          `json:"image"`
	StartDate   *time.Time     `json:"start_date,omitempty"`
	EndDate     *time.Time     `json:"end_date,omitempty"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	History     []HistoryEntry `json:"history,omitempty"`
}

// OrganizationUpdate carries optional field changes; nil means untouched.
type OrganizationUpdate struct {
	Title       *string
	Slug        *string
	Description *string
	Color       *string
	Image       *Image
}

// Changes lists the fields being set, for the history entry.
func (u OrganizationUpdate) Changes() map[string]any {
	out := map[string]any{}
	if u.Title != nil {
		out["title"] = *u.Title
	}
	if u.Slug != nil {
		out["slug"] = *u.Slug
	}
	if u.Description != nil {
		out["description"] = *u.Description
	}
	if u.Color != nil {
		out["color"] = *u.Color
	}
	if u.Image != nil {
		out["image"] = *u.Image
	}
	return out
}

// WorkspaceUpdate carries optional field changes. The parent organization is
// deliberately absent.
type WorkspaceUpdate struct {
	Title       *string
	Description *string
	Image       *Image
}

func (u WorkspaceUpdate) Changes() map[string]any {
	out := map[string]any{}
	if u.Title != nil {
		out["title"] = *u.Title
	}
	if u.Description != nil {
		out["description"] = *u.Description
	}
	if u.Image != nil {
		out["image"] = *u.Image
	}
	return out
}

// BoardUpdate carries optional field changes.
type BoardUpdate struct {
	Title     *string
	Status    *BoardStatus
	Image     *Image
	StartDate *time.Time
	EndDate   *time.Time
}

func (u BoardUpdate) Changes() map[string]any {
	out := map[string]any{}
	if u.Title != nil {
		out["title"] = *u.Title
	}
	if u.Status != nil {
		out["status"] = string(*u.Status)
	}
	if u.Image != nil {
		out["image"] = *u.Image
	}
	if u.StartDate != nil {
		out["start_date"] = u.StartDate.Format("2006-01-02")
	}
	if u.EndDate != nil {
		out["end_date"] = u.EndDate.Format("2006-01-02")
	}
	return out
}
