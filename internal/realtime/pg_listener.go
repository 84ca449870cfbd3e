package realtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/Prototype-1/UserDirectory/internal/metrics"
	"github.com/Prototype-1/UserDirectory/internal/model"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// PGListener holds one pooled connection in LISTEN mode for every watched
// table and fans each notification out to the handlers of that table.
type PGListener struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tables []model.Table

	// OnListen, when set, runs each time Run has issued every LISTEN.
	OnListen func()

	mu       sync.RWMutex
	nextID   uint64
	handlers map[model.Table]map[uint64]Handler
}

func NewPGListener(pool *pgxpool.Pool, logger *zap.Logger, tables ...model.Table) *PGListener {
	if len(tables) == 0 {
		tables = model.WatchedTables
	}
	handlers := make(map[model.Table]map[uint64]Handler, len(tables))
	for _, t := range tables {
		handlers[t] = make(map[uint64]Handler)
	}
	return &PGListener{
		pool:     pool,
		logger:   logger,
		tables:   tables,
		handlers: handlers,
	}
}

// Run listens until ctx is cancelled. It returns nil on cancellation and the
// connection error otherwise.
func (l *PGListener) Run(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	for _, t := range l.tables {
		channel := pgx.Identifier{ChannelName(t)}.Sanitize()
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("listen %s: %w", channel, err)
		}
	}
	l.logger.Info("PGListener started", zap.Int("channels", len(l.tables)))
	if l.OnListen != nil {
		l.OnListen()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("PGListener shutting down gracefully")
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.dispatch(n.Channel, n.Payload)
	}
}

func (l *PGListener) Subscribe(_ context.Context, table model.Table, h Handler) (Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hs, ok := l.handlers[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotWatched, table)
	}
	l.nextID++
	id := l.nextID
	hs[id] = h

	return &listenerSubscription{listener: l, table: table, id: id}, nil
}

func (l *PGListener) unsubscribe(table model.Table, id uint64) {
	l.mu.Lock()
	delete(l.handlers[table], id)
	l.mu.Unlock()
}

func (l *PGListener) dispatch(channel, payload string) {
	table, ok := TableFromChannel(channel)
	if !ok {
		l.logger.Warn("Notification on unknown channel", zap.String("channel", channel))
		return
	}
	metrics.NotificationsReceived.WithLabelValues(string(table)).Inc()

	l.mu.RLock()
	hs := make([]Handler, 0, len(l.handlers[table]))
	for _, h := range l.handlers[table] {
		hs = append(hs, h)
	}
	l.mu.RUnlock()

	ev := Event{Table: table, Op: payload}
	for _, h := range hs {
		safeCall(l.logger, h, ev)
	}
}

type listenerSubscription struct {
	listener *PGListener
	table    model.Table
	id       uint64
	once     sync.Once
}

func (s *listenerSubscription) Close() error {
	s.once.Do(func() {
		s.listener.unsubscribe(s.table, s.id)
	})
	return nil
}

// safeCall keeps a panicking handler from taking the delivery loop down.
func safeCall(logger *zap.Logger, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("PANIC in change handler",
				zap.Any("panic", r),
				zap.String("table", string(ev.Table)),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	h(ev)
}
