package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-favorpay/app/session"
)

// TokenRepository persists the auth tokens of one client profile. It is the
// durable session.TokenStore.
type TokenRepository struct {
	db      DBTX
	profile string
	now     func() time.Time
}

func NewTokenRepository(db DBTX, profile string) *TokenRepository {
	if profile == "" {
		profile = "default"
	}
	return &TokenRepository{db: db, profile: profile, now: time.Now}
}

func (r *TokenRepository) LoadTokens(ctx context.Context) (session.Tokens, error) {
	query := `
		SELECT access_token, refresh_token
		FROM auth_tokens
		WHERE profile = ?
		LIMIT 1
	`

	var (
		access  string
		refresh sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, r.profile).Scan(&access, &refresh)
	if err == sql.ErrNoRows {
		return session.Tokens{}, nil
	}
	if err != nil {
		return session.Tokens{}, err
	}

	tokens := session.Tokens{AccessToken: access}
	if refresh.Valid {
		tokens.RefreshToken = refresh.String
	}
	return tokens, nil
}

func (r *TokenRepository) SaveTokens(ctx context.Context, tokens session.Tokens) error {
	query := `
		INSERT INTO auth_tokens (profile, access_token, refresh_token, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			access_token = VALUES(access_token),
			refresh_token = VALUES(refresh_token),
			updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query,
		r.profile,
		tokens.AccessToken,
		nullableString(tokens.RefreshToken),
		r.now().UTC(),
	)
	return err
}

func (r *TokenRepository) ClearTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE profile = ?`, r.profile)
	return err
}
