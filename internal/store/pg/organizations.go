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

// Organizations implements project.OrganizationStore. Image and history are
// jsonb columns; history updates are append-only concatenations.
type Organizations struct {
	store *Store
}

var _ project.OrganizationStore = (*Organizations)(nil)

func NewOrganizations(store *Store) *Organizations { return &Organizations{store: store} }

const orgColumns = `id, title, slug, description, color, image, created_by, created_at, updated_at, history`

func scanOrganization(row interface{ Scan(...any) error }) (*project.Organization, error) {
	var (
		org        project.Organization
		desc       sql.NullString
		color      sql.NullString
		rawImage   []byte
		rawHistory []byte
	)
	err := row.Scan(&org.ID, &org.Title, &org.Slug, &desc, &color, &rawImage,
		&org.CreatedBy, &org.CreatedAt, &org.UpdatedAt, &rawHistory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		org.Description = desc.String
	}
	if color.Valid {
		org.Color = color.String
	}
	if len(rawImage) > 0 {
		if err := json.Unmarshal(rawImage, &org.Image); err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}
	if len(rawHistory) > 0 {
		if err := json.Unmarshal(rawHistory, &org.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	return &org, nil
}

func (s *Organizations) Create(ctx context.Context, org *project.Organization) error {
	image, err := json.Marshal(org.Image)
	if err != nil {
		return fmt.Errorf("marshal image: %w", err)
	}
	_, err = s.store.db.ExecContext(ctx, `
		insert into organizations (id, title, slug, description, color, image, created_by, created_at, updated_at, history)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, '[]'::jsonb)
	`, org.ID, org.Title, org.Slug, nullIfEmpty(org.Description), nullIfEmpty(org.Color),
		image, org.CreatedBy, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *Organizations) Get(ctx context.Context, id string) (*project.Organization, error) {
	row := s.store.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where id = $1`, id)
	return scanOrganization(row)
}

func (s *Organizations) GetBySlug(ctx context.Context, slug string) (*project.Organization, error) {
	row := s.store.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where slug = $1`, slug)
	return scanOrganization(row)
}

func (s *Organizations) SearchByTitle(ctx context.Context, fragment string) ([]*project.Organization, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		select `+orgColumns+` from organizations
		where title ilike '%' || $1 || '%'
		order by title
		limit 50
	`, fragment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrganizations(rows)
}

func (s *Organizations) ListByIDs(ctx context.Context, ids []string) ([]*project.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.store.db.QueryContext(ctx, fmt.Sprintf(
		`select %s from organizations where id in (%s) order by title`,
		orgColumns, strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrganizations(rows)
}

func collectOrganizations(rows *sql.Rows) ([]*project.Organization, error) {
	var result []*project.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Organizations) Update(ctx context.Context, id string, upd project.OrganizationUpdate, entry project.HistoryEntry) (*project.Organization, error) {
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
	if upd.Slug != nil {
		sets = append(sets, fmt.Sprintf("slug = $%d", idx))
		args = append(args, *upd.Slug)
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Description))
		idx++
	}
	if upd.Color != nil {
		sets = append(sets, fmt.Sprintf("color = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Color))
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

	query := fmt.Sprintf(`update organizations set %s where id = $%d`, strings.Join(sets, ", "), idx+2)
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

// Delete removes the organization; workspaces, boards, and grants cascade
// through their foreign keys.
func (s *Organizations) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `delete from organizations where id = $1`, id)
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

func (s *Organizations) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.store.db.QueryRowContext(ctx,
		`select exists(select 1 from organizations where slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
