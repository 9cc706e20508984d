package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nexhire/nexhire/internal/identity/domain"
)

type otpCodesRepo struct {
	db queryer
}

func (r *otpCodesRepo) ReplaceOTPCode(ctx context.Context, c domain.OTPCode) error {
	// At most one active code per (identifier, channel); the delete keeps
	// the invariant even when the unique index would reject the insert.
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE identifier = ? AND channel = ?`,
		c.Identifier, string(c.Channel))
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO otp_codes (id, identifier, channel, code, pending_token_hash,
			attempts, metadata, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Identifier, string(c.Channel), c.Code, c.PendingTokenHash,
		c.Attempts, c.Metadata, c.ExpiresAt, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *otpCodesRepo) GetOTPCode(ctx context.Context, identifier string, ch domain.Channel) (domain.OTPCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, identifier, channel, code, pending_token_hash, attempts, metadata, expires_at, created_at
		FROM otp_codes WHERE identifier = ? AND channel = ?`,
		identifier, string(ch))

	var c domain.OTPCode
	var channel string
	err := row.Scan(&c.ID, &c.Identifier, &channel, &c.Code, &c.PendingTokenHash,
		&c.Attempts, &c.Metadata, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return domain.OTPCode{}, mapNotFound(err)
	}
	c.Channel = domain.Channel(channel)
	return c, nil
}

func (r *otpCodesRepo) IncrementOTPAttempts(ctx context.Context, id string) (int, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}

	var attempts int
	err = r.db.QueryRowContext(ctx,
		`SELECT attempts FROM otp_codes WHERE id = ?`, id).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *otpCodesRepo) DeleteOTPCode(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *otpCodesRepo) DeleteExpiredOTPCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE expires_at < ?`, time.Now().UTC())
	return err
}
