package store

import (
	"context"

	"github.com/google/uuid"

	"appointment-scheduler/internal/model"
)

func (s *Store) InsertNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = s.now()
	q := `INSERT INTO notifications (id, user_id, kind, title, message, reference_id, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.DB.Exec(ctx, q, n.ID, n.UserID, string(n.Kind), n.Title, n.Message, n.ReferenceID, n.CreatedAt)
	return err
}

// ListNotifications returns the newest notifications for userID first.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	q := `SELECT id, user_id, kind, title, message, reference_id, created_at
	      FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.DB.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Message, &n.ReferenceID, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = model.NotificationKind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}
