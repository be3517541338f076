package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"appointment-scheduler/internal/model"
)

// GetCredential returns nil, nil when the user has not connected provider.
func (s *Store) GetCredential(ctx context.Context, userID, provider string) (*model.OAuthCredential, error) {
	q := `SELECT user_id, provider, access_token, COALESCE(refresh_token,''), expires_at, created_at, updated_at
	      FROM oauth_credentials WHERE user_id=$1 AND provider=$2`
	var c model.OAuthCredential
	var expires *time.Time
	err := s.DB.QueryRow(ctx, q, userID, provider).Scan(
		&c.UserID, &c.Provider, &c.AccessToken, &c.RefreshToken, &expires, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expires != nil {
		c.ExpiresAt = *expires
	}
	return &c, nil
}

// UpsertCredential stores pair for (userID, provider), keeping the existing
// refresh token when pair carries none.
func (s *Store) UpsertCredential(ctx context.Context, userID, provider string, pair model.TokenPair) (*model.OAuthCredential, error) {
	now := s.now()
	var expires *time.Time
	if !pair.ExpiresAt.IsZero() {
		e := pair.ExpiresAt.UTC()
		expires = &e
	}
	q := `INSERT INTO oauth_credentials (user_id, provider, access_token, refresh_token, expires_at, created_at, updated_at)
	      VALUES ($1,$2,$3,NULLIF($4::text,''),$5,$6,$6)
	      ON CONFLICT (user_id, provider) DO UPDATE SET
	        access_token=EXCLUDED.access_token,
	        refresh_token=COALESCE(EXCLUDED.refresh_token, oauth_credentials.refresh_token),
	        expires_at=EXCLUDED.expires_at,
	        updated_at=EXCLUDED.updated_at
	      RETURNING created_at, updated_at, COALESCE(refresh_token,'')`
	c := &model.OAuthCredential{
		UserID:      userID,
		Provider:    provider,
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.ExpiresAt,
	}
	err := s.DB.QueryRow(ctx, q, userID, provider, pair.AccessToken, pair.RefreshToken, expires, now).
		Scan(&c.CreatedAt, &c.UpdatedAt, &c.RefreshToken)
	if err != nil {
		return nil, err
	}
	return c, nil
}
