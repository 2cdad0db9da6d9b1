// Package notification stores per-user notifications and pushes new ones to
// connected clients.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"backend-travelbuddy/internal/db"
	"backend-travelbuddy/internal/model"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

// Pusher delivers a payload to a user's live connections.
type Pusher interface {
	Broadcast(userID string, payload []byte)
}

type Service struct {
	db     db.Querier
	pusher Pusher
	logger *slog.Logger
}

func NewService(db db.Querier, pusher Pusher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, pusher: pusher, logger: logger}
}

// Notify stores an unread notification for userID and pushes it.
func (s *Service) Notify(ctx context.Context, userID, message string) error {
	n := model.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Message: message,
		Status:  model.NotificationUnread,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, message, status)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, n.ID, n.UserID, n.Message, n.Status)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return err
	}

	if s.pusher != nil {
		payload, err := json.Marshal(n)
		if err != nil {
			return err
		}
		s.pusher.Broadcast(userID, payload)
	}
	s.logger.Debug("notification sent", "user_id", userID, "id", n.ID)
	return nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, message, status, created_at
		FROM notifications WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET status=$3
		WHERE id=$1 AND user_id=$2
	`, id, userID, model.NotificationRead)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user and returns how
// many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET status=$2
		WHERE user_id=$1 AND status=$3
	`, userID, model.NotificationRead, model.NotificationUnread)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
