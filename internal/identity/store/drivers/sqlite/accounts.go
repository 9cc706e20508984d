package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nexhire/nexhire/internal/identity/domain"
)

type accountsRepo struct {
	db queryer
}

const accountColumns = `id, display_name, email, phone, password_hash, role, status,
	email_verified, phone_verified, reset_token_hash, reset_token_expires_at,
	last_login_at, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var a domain.Account
	var email, phone, passwordHash, resetTokenHash sql.NullString
	var resetTokenExpiresAt, lastLoginAt sql.NullTime
	var status string

	err := row.Scan(
		&a.ID, &a.DisplayName, &email, &phone, &passwordHash, &a.Role, &status,
		&a.EmailVerified, &a.PhoneVerified, &resetTokenHash, &resetTokenExpiresAt,
		&lastLoginAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	a.Email = mapNullString(email)
	a.Phone = mapNullString(phone)
	a.PasswordHash = mapNullString(passwordHash)
	a.Status = domain.AccountStatus(status)
	a.ResetTokenHash = mapNullString(resetTokenHash)
	a.ResetTokenExpiresAt = mapNullTimePtr(resetTokenExpiresAt)
	a.LastLoginAt = mapNullTimePtr(lastLoginAt)
	return a, nil
}

func (r *accountsRepo) getBy(ctx context.Context, where string, arg any) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return r.getBy(ctx, `id = ?`, id)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.getBy(ctx, `email = ?`, email)
}

func (r *accountsRepo) GetAccountByPhone(ctx context.Context, phone string) (domain.Account, error) {
	return r.getBy(ctx, `phone = ?`, phone)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, display_name, email, phone, password_hash, role, status,
			email_verified, phone_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DisplayName, mapStringNull(a.Email), mapStringNull(a.Phone),
		mapStringNull(a.PasswordHash), a.Role, string(a.Status),
		a.EmailVerified, a.PhoneVerified, now, now,
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		mapStringNull(newHash), time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *accountsRepo) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *accountsRepo) UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), accountID)
	return err
}

func (r *accountsRepo) SetResetToken(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET reset_token_hash = ?, reset_token_expires_at = ?, updated_at = ? WHERE id = ?`,
		tokenHash, expiresAt.UTC(), time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *accountsRepo) ClearResetToken(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), accountID)
	return err
}

func (r *accountsRepo) GetAccountByResetTokenHash(ctx context.Context, hash string) (domain.Account, error) {
	return r.getBy(ctx, `reset_token_hash = ?`, hash)
}
