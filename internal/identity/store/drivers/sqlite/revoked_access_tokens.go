package sqlite

import (
	"context"
	"time"
)

type revokedAccessTokensRepo struct {
	db queryer
}

func (r *revokedAccessTokensRepo) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at) VALUES (?, ?)
		ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt.UTC())
	return err
}

func (r *revokedAccessTokensRepo) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM revoked_access_tokens WHERE jti = ? AND expires_at >= ?`,
		jti, time.Now().UTC()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *revokedAccessTokensRepo) DeleteExpiredRevocations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_access_tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
