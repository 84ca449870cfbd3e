package realtime

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var errFeedStopped = errors.New("change feed stopped")

// Supervise keeps run alive until ctx is cancelled. Every time run returns
// while ctx is still live, onError receives the failure and run is restarted
// after backoff.
func Supervise(ctx context.Context, run func(context.Context) error, backoff time.Duration, onError func(error), logger *zap.Logger) {
	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errFeedStopped
		}

		logger.Error("Change feed failed, reconnecting", zap.Error(err), zap.Duration("backoff", backoff))
		if onError != nil {
			onError(err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}
