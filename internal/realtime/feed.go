// Package realtime delivers table change notifications from the data store to
// the directory, over Postgres LISTEN/NOTIFY or Redis Pub/Sub.
package realtime

import (
	"context"
	"errors"

	"github.com/Prototype-1/UserDirectory/internal/model"
)

var ErrTableNotWatched = errors.New("table is not watched by this feed")

// Event signals that some row of Table changed. Op carries the operation name
// when the transport provides one; consumers must not depend on it.
type Event struct {
	Table model.Table
	Op    string
}

type Handler func(Event)

// Subscription stops delivery when closed. Close is safe to call more than once.
type Subscription interface {
	Close() error
}

type Feed interface {
	Subscribe(ctx context.Context, table model.Table, h Handler) (Subscription, error)
}

type Publisher interface {
	Publish(ctx context.Context, table model.Table, op string) error
}

// ChannelName is the notification channel carrying changes of table.
func ChannelName(table model.Table) string {
	return string(table) + "-changes"
}

// TableFromChannel is the inverse of ChannelName.
func TableFromChannel(channel string) (model.Table, bool) {
	for _, t := range model.WatchedTables {
		if ChannelName(t) == channel {
			return t, true
		}
	}
	return "", false
}
