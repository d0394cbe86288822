package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	// ListUnreadByUser returns one page of unread notifications, newest
	// first, plus the total unread count for the user.
	ListUnreadByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error)
	// MarkStatus flips the read state for a single recipient row. Only the
	// owning user may change it.
	MarkStatus(ctx context.Context, id, userID uuid.UUID, status Status, readAt *time.Time) error
	// DeleteExpired removes rows whose expires_at has passed and returns the
	// number deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
