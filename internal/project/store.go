package project

import "context"

// OrganizationStore persists organizations. Not-found is auth.ErrNotFound,
// slug collisions are auth.ErrAlreadyExists.
type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id string) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	SearchByTitle(ctx context.Context, fragment string) ([]*Organization, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Organization, error)
	Update(ctx context.Context, id string, upd OrganizationUpdate, entry HistoryEntry) (*Organization, error)
	// Delete removes the organization; workspaces, boards, and membership
	// grants underneath it go with it.
	Delete(ctx context.Context, id string) error
	SlugTaken(ctx context.Context, slug string) (bool, error)
}

// WorkspaceStore persists workspaces.
type WorkspaceStore interface {
	Create(ctx context.Context, ws *Workspace) error
	Get(ctx context.Context, id string) (*Workspace, error)
	GetBySlug(ctx context.Context, slug string) (*Workspace, error)
	ListByOrg(ctx context.Context, orgID string) ([]WorkspaceSummary, error)
	CountByOrg(ctx context.Context, orgID string) (int, error)
	Update(ctx context.Context, id string, upd WorkspaceUpdate, entry HistoryEntry) (*Workspace, error)
	// Delete removes the workspace and its boards.
	Delete(ctx context.Context, id string) error
	SlugTaken(ctx context.Context, slug string) (bool, error)
}

// BoardStore persists boards.
type BoardStore interface {
	Create(ctx context.Context, b *Board) error
	Get(ctx context.Context, id string) (*Board, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*Board, error)
	Update(ctx context.Context, id string, upd BoardUpdate, entry HistoryEntry) (*Board, error)
	Delete(ctx context.Context, id string) error
}
