package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tasklane.org/internal/auth"
	"tasklane.org/internal/project"
)

// Workspaces implements project.WorkspaceStore.
type Workspaces struct {
	store *Store
}

var _ project.WorkspaceStore = (*Workspaces)(nil)

func NewWorkspaces(store *Store) *Workspaces { return &Workspaces{store: store} }

const workspaceColumns = `id, org_id, title, slug, description, image, created_by, created_at, updated_at, history`

func scanWorkspace(row interface{ Scan(...any) error }, extra ...any) (*project.Workspace, error) {
	var (
		ws         project.Workspace
		desc       sql.NullString
		rawImage   []byte
		rawHistory []byte
	)
	dest := []any{&ws.ID, &ws.OrgID, &ws.Title, &ws.Slug, &desc, &rawImage,
		&ws.CreatedBy, &ws.CreatedAt, &ws.UpdatedAt, &rawHistory}
	dest = append(dest, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		ws.Description = desc.String
	}
	if len(rawImage) > 0 {
		if err := json.Unmarshal(rawImage, &ws.Image); err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}
	if len(rawHistory) > 0 {
		if err := json.Unmarshal(rawHistory, &ws.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	return &ws, nil
}

func (s *Workspaces) Create(ctx context.Context, ws *project.Workspace) error {
	image, err := json.Marshal(ws.Image)
	if err != nil {
		return fmt.Errorf("marshal image: %w", err)
	}
	_, err = s.store.db.ExecContext(ctx, `
		insert into workspaces (id, org_id, title, slug, description, image, created_by, created_at, updated_at, history)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, '[]'::jsonb)
	`, ws.ID, ws.OrgID, ws.Title, ws.Slug, nullIfEmpty(ws.Description), image,
		ws.CreatedBy, ws.CreatedAt, ws.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *Workspaces) Get(ctx context.Context, id string) (*project.Workspace, error) {
	row := s.store.db.QueryRowContext(ctx,
		`select `+workspaceColumns+` from workspaces where id = $1`, id)
	return scanWorkspace(row)
}

func (s *Workspaces) GetBySlug(ctx context.Context, slug string) (*project.Workspace, error) {
	row := s.store.db.QueryRowContext(ctx,
		`select `+workspaceColumns+` from workspaces where slug = $1`, slug)
	return scanWorkspace(row)
}

// ListByOrg joins in the member count per workspace.
func (s *Workspaces) ListByOrg(ctx context.Context, orgID string) ([]project.WorkspaceSummary, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		select w.id, w.org_id, w.title, w.slug, w.description, w.image,
		       w.created_by, w.created_at, w.updated_at, w.history,
		       count(m.user_id) as member_count
		from workspaces w
		left join workspace_memberships m on m.workspace_id = w.id
		where w.org_id = $1
		group by w.id
		order by w.created_at
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []project.WorkspaceSummary
	for rows.Next() {
		var count int
		ws, err := scanWorkspace(rows, &count)
		if err != nil {
			return nil, err
		}
		result = append(result, project.WorkspaceSummary{Workspace: *ws, MemberCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Workspaces) CountByOrg(ctx context.Context, orgID string) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		`select count(*) from workspaces where org_id = $1`, orgID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Workspaces) Update(ctx context.Context, id string, upd project.WorkspaceUpdate, entry project.HistoryEntry) (*project.Workspace, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", idx))
		args = append(args, *upd.Title)
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Description))
		idx++
	}
	if upd.Image != nil {
		image, err := json.Marshal(*upd.Image)
		if err != nil {
			return nil, fmt.Errorf("marshal image: %w", err)
		}
		sets = append(sets, fmt.Sprintf("image = $%d", idx))
		args = append(args, image)
		idx++
	}
	if len(sets) == 0 {
		return s.Get(ctx, id)
	}
	historyJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal history entry: %w", err)
	}
	sets = append(sets,
		fmt.Sprintf("history = history || $%d::jsonb", idx),
		fmt.Sprintf("updated_at = $%d", idx+1))
	args = append(args, historyJSON, entry.UpdatedAt, id)

	query := fmt.Sprintf(`update workspaces set %s where id = $%d`, strings.Join(sets, ", "), idx+2)
	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if aff == 0 {
		return nil, auth.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes the workspace; boards and workspace grants cascade.
func (s *Workspaces) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `delete from workspaces where id = $1`, id)
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

func (s *Workspaces) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.store.db.QueryRowContext(ctx,
		`select exists(select 1 from workspaces where slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
