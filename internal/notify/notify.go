// Package notify delivers appointment notifications to users.
package notify

import (
	"context"
	"fmt"
	"log"

	"appointment-scheduler/internal/model"
)

// Sink receives a notification. The dispatcher fills in the id and creation
// time before live sinks see it.
type Sink interface {
	Deliver(ctx context.Context, n *model.Notification) error
}

// Dispatcher records every notification in the inbox and then pushes it to
// the live sinks. Only inbox failures are returned.
type Dispatcher struct {
	inbox  Sink
	live   []Sink
	logger *log.Logger
}

type Option func(*Dispatcher)

func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithLive adds a best-effort sink, such as a pub/sub channel.
func WithLive(s Sink) Option {
	return func(d *Dispatcher) { d.live = append(d.live, s) }
}

func NewDispatcher(inbox Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{inbox: inbox, logger: log.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, userID string, kind model.NotificationKind, title, message, referenceID string) error {
	n := &model.Notification{
		UserID:      userID,
		Kind:        kind,
		Title:       title,
		Message:     message,
		ReferenceID: referenceID,
	}
	if err := d.inbox.Deliver(ctx, n); err != nil {
		return fmt.Errorf("store notification for %s: %w", userID, err)
	}
	for _, s := range d.live {
		if err := s.Deliver(ctx, n); err != nil {
			d.logger.Printf("notify: live delivery of %s to %s failed: %v", n.ID, userID, err)
		}
	}
	return nil
}

type InboxStore interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
}

// Inbox persists notifications so users can read them later.
type Inbox struct {
	store InboxStore
}

func NewInbox(store InboxStore) *Inbox {
	return &Inbox{store: store}
}

func (i *Inbox) Deliver(ctx context.Context, n *model.Notification) error {
	return i.store.InsertNotification(ctx, n)
}
