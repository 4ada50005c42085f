package pg

import (
	"context"
	"database/sql"
	"errors"

	"tasklane.org/internal/auth"
)

// Users implements auth.UserStore.
type Users struct {
	store *Store
}

var _ auth.UserStore = (*Users)(nil)

func NewUsers(store *Store) *Users { return &Users{store: store} }

const userColumns = `id, username, email, password_hash, first_name, last_name, role, avatar, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*auth.User, error) {
	var (
		u      auth.User
		avatar sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Role, &avatar, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		u.Avatar = avatar.String
	}
	return &u, nil
}

func (s *Users) Create(ctx context.Context, u *auth.User) error {
	_, err := s.store.db.ExecContext(ctx, `
		insert into users (id, username, email, password_hash, first_name, last_name, role, avatar, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role,
		nullIfEmpty(u.Avatar), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *Users) Find(ctx context.Context, id string) (*auth.User, error) {
	row := s.store.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

func (s *Users) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := s.store.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where username = $1`, username)
	return scanUser(row)
}

// Search matches a fragment against username or email, case-insensitively.
func (s *Users) Search(ctx context.Context, fragment string) ([]*auth.User, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		select `+userColumns+`
		from users
		where username ilike '%' || $1 || '%' or email ilike '%' || $1 || '%'
		order by username
		limit 50
	`, fragment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
