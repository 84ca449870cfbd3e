package realtime

import (
	"context"
	"errors"

	"github.com/Prototype-1/UserDirectory/internal/model"
	"go.uber.org/zap"
)

// Relay republishes every event src delivers for tables onto dst. The returned
// subscription stops all of them.
func Relay(ctx context.Context, src Feed, dst Publisher, tables []model.Table, logger *zap.Logger) (Subscription, error) {
	group := &subscriptionGroup{}
	for _, t := range tables {
		sub, err := src.Subscribe(ctx, t, func(ev Event) {
			if err := dst.Publish(ctx, ev.Table, ev.Op); err != nil {
				logger.Error("Relay publish failed", zap.Error(err), zap.String("table", string(ev.Table)))
			}
		})
		if err != nil {
			_ = group.Close()
			return nil, err
		}
		group.subs = append(group.subs, sub)
	}
	logger.Info("Relaying change notifications", zap.Int("tables", len(tables)))
	return group, nil
}

type subscriptionGroup struct {
	subs []Subscription
}

func (g *subscriptionGroup) Close() error {
	var errs []error
	for _, s := range g.subs {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	g.subs = nil
	return errors.Join(errs...)
}
