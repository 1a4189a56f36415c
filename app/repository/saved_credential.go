package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
)

var ErrInvalidCredentialEmail = errors.New("saved credential email is required")

// SavedCredentialRepository keeps the e-mails offered for login auto-fill.
// Only the most recently used entity.MaxSavedCredentials rows survive.
type SavedCredentialRepository struct {
	db      DBTX
	profile string
}

func NewSavedCredentialRepository(db DBTX, profile string) *SavedCredentialRepository {
	if profile == "" {
		profile = "default"
	}
	return &SavedCredentialRepository{db: db, profile: profile}
}

func (r *SavedCredentialRepository) Remember(ctx context.Context, email string, usedAt time.Time) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidCredentialEmail
	}
	usedAt = utc(usedAt)

	query := `
		INSERT INTO saved_credentials (profile, email, last_used_at, created_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE last_used_at = VALUES(last_used_at)
	`
	if _, err := r.db.ExecContext(ctx, query, r.profile, email, usedAt, usedAt); err != nil {
		return err
	}

	return r.prune(ctx)
}

func (r *SavedCredentialRepository) prune(ctx context.Context) error {
	// MySQL rejects LIMIT inside IN subqueries; the derived table works around it.
	query := `
		DELETE FROM saved_credentials
		WHERE profile = ? AND id NOT IN (
			SELECT id FROM (
				SELECT id FROM saved_credentials
				WHERE profile = ?
				ORDER BY last_used_at DESC, id DESC
				LIMIT ?
			) AS recent
		)
	`
	_, err := r.db.ExecContext(ctx, query, r.profile, r.profile, entity.MaxSavedCredentials)
	return err
}

func (r *SavedCredentialRepository) List(ctx context.Context) ([]*entity.SavedCredential, error) {
	query := `
		SELECT id, email, last_used_at, created_at
		FROM saved_credentials
		WHERE profile = ?
		ORDER BY last_used_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, r.profile, entity.MaxSavedCredentials)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.SavedCredential, 0, entity.MaxSavedCredentials)
	for rows.Next() {
		item := &entity.SavedCredential{}
		if err := rows.Scan(&item.ID, &item.Email, &item.LastUsedAt, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *SavedCredentialRepository) Forget(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidCredentialEmail
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM saved_credentials WHERE profile = ? AND email = ?`, r.profile, email)
	return err
}
