package shopify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoSession = errors.New("no session for shop")

// Session is a stored per-shop credential. Offline sessions are preferred
// for background API calls; online ones are a fallback.
type Session struct {
	ID          string
	Shop        string
	AccessToken string
	IsOnline    bool
	Scope       string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

type SessionStore struct{ DB *pgxpool.Pool }

// ForShop returns the newest offline session for the shop, falling back to
// the newest online session when no offline one exists.
func (s *SessionStore) ForShop(ctx context.Context, shop string) (*Session, error) {
	sess, err := s.newest(ctx, shop, false)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	sess, err = s.newest(ctx, shop, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, shop)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) newest(ctx context.Context, shop string, online bool) (*Session, error) {
	var out Session
	err := s.DB.QueryRow(ctx, `
		SELECT id, shop, access_token, is_online, scope, expires_at, created_at
		FROM sessions
		WHERE shop=$1 AND is_online=$2
		ORDER BY created_at DESC
		LIMIT 1`, shop, online).
		Scan(&out.ID, &out.Shop, &out.AccessToken, &out.IsOnline, &out.Scope, &out.ExpiresAt, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SessionStore) Put(ctx context.Context, sess Session) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO sessions(id, shop, access_token, is_online, scope, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE
		SET access_token=EXCLUDED.access_token, scope=EXCLUDED.scope, expires_at=EXCLUDED.expires_at`,
		sess.ID, sess.Shop, sess.AccessToken, sess.IsOnline, sess.Scope, sess.ExpiresAt)
	return err
}
