package pg

import (
	"context"
	"time"

	"tasklane.org/internal/auth"
)

// LoginAttempts implements auth.LoginAttemptStore over the failed_logins
// table.
type LoginAttempts struct {
	store *Store
}

var _ auth.LoginAttemptStore = (*LoginAttempts)(nil)

func NewLoginAttempts(store *Store) *LoginAttempts { return &LoginAttempts{store: store} }

func (s *LoginAttempts) Record(ctx context.Context, attempt auth.FailedLogin) error {
	_, err := s.store.db.ExecContext(ctx, `
		insert into failed_logins (username, ip_address, attempted_at)
		values ($1, $2, $3)
	`, attempt.Username, attempt.IPAddress, attempt.AttemptedAt)
	return err
}

// CountSince counts records matching the username OR the IP inside the
// window, so an attacker rotating usernames from one address still trips the
// lock.
func (s *LoginAttempts) CountSince(ctx context.Context, username, ip string, since time.Time) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, `
		select count(*)
		from failed_logins
		where (username = $1 or ip_address = $2) and attempted_at >= $3
	`, username, ip, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *LoginAttempts) Clear(ctx context.Context, username string) error {
	_, err := s.store.db.ExecContext(ctx,
		`delete from failed_logins where username = $1`, username)
	return err
}
