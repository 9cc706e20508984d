package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nexhire/nexhire/internal/identity/domain"
	"github.com/nexhire/nexhire/internal/identity/store"
)

type leadsRepo struct {
	db queryer
}

const leadColumns = `id, display_name, email, phone, role, method,
	utm_source, utm_medium, utm_campaign,
	email_verified, phone_verified, verified, created_at, updated_at`

func scanLead(row interface{ Scan(...any) error }) (domain.Lead, error) {
	var l domain.Lead
	var email, phone, utmSource, utmMedium, utmCampaign sql.NullString
	var method string

	err := row.Scan(
		&l.ID, &l.DisplayName, &email, &phone, &l.Role, &method,
		&utmSource, &utmMedium, &utmCampaign,
		&l.EmailVerified, &l.PhoneVerified, &l.Verified, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}

	l.Email = mapNullString(email)
	l.Phone = mapNullString(phone)
	l.Method = domain.Channel(method)
	l.UTM = domain.UTM{
		Source:   mapNullString(utmSource),
		Medium:   mapNullString(utmMedium),
		Campaign: mapNullString(utmCampaign),
	}
	return l, nil
}

func (r *leadsRepo) UpsertLead(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	now := time.Now().UTC()

	existing, err := r.GetLeadByIdentifier(ctx, l.Identifier())
	if err == nil {
		// Overwrite the pending lead in place, preserving id and created_at.
		_, err = r.db.ExecContext(ctx, `
			UPDATE leads SET
				display_name = ?, role = ?, method = ?,
				utm_source = ?, utm_medium = ?, utm_campaign = ?,
				email_verified = ?, phone_verified = ?, verified = ?,
				updated_at = ?
			WHERE id = ?`,
			l.DisplayName, l.Role, string(l.Method),
			mapStringNull(l.UTM.Source), mapStringNull(l.UTM.Medium), mapStringNull(l.UTM.Campaign),
			l.EmailVerified, l.PhoneVerified, l.Verified,
			now, existing.ID,
		)
		if err != nil {
			return domain.Lead{}, err
		}
		return r.GetLeadByID(ctx, existing.ID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Lead{}, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO leads (id, display_name, email, phone, role, method,
			utm_source, utm_medium, utm_campaign,
			email_verified, phone_verified, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.DisplayName, mapStringNull(l.Email), mapStringNull(l.Phone), l.Role, string(l.Method),
		mapStringNull(l.UTM.Source), mapStringNull(l.UTM.Medium), mapStringNull(l.UTM.Campaign),
		l.EmailVerified, l.PhoneVerified, l.Verified, now, now,
	)
	if err != nil {
		return domain.Lead{}, mapConstraint(err)
	}
	return r.GetLeadByID(ctx, l.ID)
}

func (r *leadsRepo) GetLeadByID(ctx context.Context, id string) (domain.Lead, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if err != nil {
		return domain.Lead{}, mapNotFound(err)
	}
	return l, nil
}

func (r *leadsRepo) GetLeadByIdentifier(ctx context.Context, identifier string) (domain.Lead, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE email = ? OR phone = ?`,
		identifier, identifier)
	l, err := scanLead(row)
	if err != nil {
		return domain.Lead{}, mapNotFound(err)
	}
	return l, nil
}

func (r *leadsRepo) MarkLeadVerified(ctx context.Context, id string, ch domain.Channel) error {
	column := "email_verified"
	if ch == domain.ChannelSMS {
		column = "phone_verified"
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE leads SET verified = 1, `+column+` = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
