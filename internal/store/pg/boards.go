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

// Boards implements project.BoardStore.
type Boards struct {
	store *Store
}

var _ project.BoardStore = (*Boards)(nil)

func NewBoards(store *Store) *Boards { return &Boards{store: store} }

const boardColumns = `id, workspace_id, title, board_type, status, image, start_date, end_date, created_by, created_at, updated_at, history`

func scanBoard(row interface{ Scan(...any) error }) (*project.Board, error) {
	var (
		b          project.Board
		rawImage   []byte
		rawHistory []byte
		start      sql.NullTime
		end        sql.NullTime
	)
	err := row.Scan(&b.ID, &b.WorkspaceID, &b.Title, &b.Type, &b.Status, &rawImage,
		&start, &end, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt, &rawHistory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if start.Valid {
		t := start.Time
		b.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		b.EndDate = &t
	}
	if len(rawImage) > 0 {
		if err := json.Unmarshal(rawImage, &b.Image); err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}
	if len(rawHistory) > 0 {
		if err := json.Unmarshal(rawHistory, &b.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	return &b, nil
}

func (s *Boards) Create(ctx context.Context, b *project.Board) error {
	image, err := json.Marshal(b.Image)
	if err != nil {
		return fmt.Errorf("marshal image: %w", err)
	}
	_, err = s.store.db.ExecContext(ctx, `
		insert into boards (id, workspace_id, title, board_type, status, image, start_date, end_date, created_by, created_at, updated_at, history)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '[]'::jsonb)
	`, b.ID, b.WorkspaceID, b.Title, string(b.Type), string(b.Status), image,
		b.StartDate, b.EndDate, b.CreatedBy, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *Boards) Get(ctx context.Context, id string) (*project.Board, error) {
	row := s.store.db.QueryRowContext(ctx,
		`select `+boardColumns+` from boards where id = $1`, id)
	return scanBoard(row)
}

func (s *Boards) ListByWorkspace(ctx context.Context, workspaceID string) ([]*project.Board, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`select `+boardColumns+` from boards where workspace_id = $1 order by created_at`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*project.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Boards) Update(ctx context.Context, id string, upd project.BoardUpdate, entry project.HistoryEntry) (*project.Board, error) {
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
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(*upd.Status))
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
	if upd.StartDate != nil {
		sets = append(sets, fmt.Sprintf("start_date = $%d", idx))
		args = append(args, *upd.StartDate)
		idx++
	}
	if upd.EndDate != nil {
		sets = append(sets, fmt.Sprintf("end_date = $%d", idx))
		args = append(args, *upd.EndDate)
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

	query := fmt.Sprintf(`update boards set %s where id = $%d`, strings.Join(sets, ", "), idx+2)
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

func (s *Boards) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `delete from boards where id = $1`, id)
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
