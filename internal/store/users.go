package store

import (
	"context"
	"fmt"
)

// Email looks up the address calendar invitations for userID are sent to.
func (s *Store) Email(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.DB.QueryRow(ctx, `SELECT email FROM users WHERE id=$1`, userID).Scan(&email)
	if err != nil {
		return "", fmt.Errorf("user %s: %w", userID, notFound(err))
	}
	return email, nil
}
