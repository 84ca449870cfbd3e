package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Prototype-1/UserDirectory/internal/metrics"
	"github.com/Prototype-1/UserDirectory/internal/model"
	"github.com/Prototype-1/UserDirectory/internal/realtime"
	"go.uber.org/zap"
)

var (
	ErrAlreadyStarted = errors.New("directory already started")
	ErrClosed         = errors.New("directory closed")
)

// Store is the remote data store holding the user tables.
type Store interface {
	FetchCustomers(ctx context.Context) ([]model.Customer, error)
	FetchFreelancers(ctx context.Context) ([]model.Freelancer, error)
	UpdateStatus(ctx context.Context, table model.Table, id string, status model.Status) error
	Delete(ctx context.Context, table model.Table, id string) error
}

type Options struct {
	// RefreshDebounce coalesces notifications arriving within the window into
	// one re-fetch per collection. Zero re-fetches on every notification.
	RefreshDebounce time.Duration
}

// Snapshot is a point-in-time view of the directory.
type Snapshot struct {
	Customers   []model.Customer   `json:"customers"`
	Freelancers []model.Freelancer `json:"freelancers"`
	Loading     bool               `json:"loading"`
	Error       string             `json:"error,omitempty"`
}

type collection string

const (
	collectionCustomers   collection = "customers"
	collectionFreelancers collection = "freelancers"
)

func collectionOf(t model.UserType) collection {
	if t == model.UserTypeCustomer {
		return collectionCustomers
	}
	return collectionFreelancers
}

// refreshTargets maps a changed table to the collections that embed it.
// Contact and Avatar rows may belong to either parent and the notification
// does not say which, so both collections are re-fetched.
func refreshTargets(table model.Table) []collection {
	switch table {
	case model.TableCustomer:
		return []collection{collectionCustomers}
	case model.TableFreelancer, model.TableSkillSet, model.TableWorkExperience:
		return []collection{collectionFreelancers}
	case model.TableContact, model.TableAvatar:
		return []collection{collectionCustomers, collectionFreelancers}
	}
	return nil
}

// DirectoryService keeps an in-memory projection of the customer and
// freelancer tables in line with the store. Every relevant change
// notification and every successful mutation replaces the affected collection
// wholesale; the last response to land wins.
type DirectoryService struct {
	Store   Store
	Feed    realtime.Feed
	Logger  *zap.Logger
	Options Options

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	customers   []model.Customer
	freelancers []model.Freelancer
	loading     bool
	errMsg      string
	started     bool
	closed      bool
	subs        []realtime.Subscription
	timers      map[collection]*time.Timer
	watchers    map[uint64]chan struct{}
	nextWatcher uint64

	closeOnce sync.Once
}

func NewDirectoryService(store Store, feed realtime.Feed, logger *zap.Logger, opts Options) *DirectoryService {
	ctx, cancel := context.WithCancel(context.Background())
	return &DirectoryService{
		Store:       store,
		Feed:        feed,
		Logger:      logger,
		Options:     opts,
		ctx:         ctx,
		cancel:      cancel,
		customers:   []model.Customer{},
		freelancers: []model.Freelancer{},
		loading:     true,
		timers:      make(map[collection]*time.Timer),
		watchers:    make(map[uint64]chan struct{}),
	}
}

// Start subscribes to the six watched tables and performs the initial load.
// It returns once both initial fetches have settled. Fetch failures are
// reported through the snapshot error, not the return value.
func (d *DirectoryService) Start(ctx context.Context) error {
	d.mu.Lock()
	switch {
	case d.closed:
		d.mu.Unlock()
		return ErrClosed
	case d.started:
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	d.started = true
	d.loading = true
	d.errMsg = ""
	d.mu.Unlock()
	d.notify()

	d.Logger.Info("DirectoryService started", zap.Duration("refresh_debounce", d.Options.RefreshDebounce))
	d.subscribe(ctx)
	d.load()
	return nil
}

// Reload clears the error and re-runs the initial load.
func (d *DirectoryService) Reload() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.loading = true
	d.errMsg = ""
	d.mu.Unlock()
	d.notify()

	return d.load()
}

func (d *DirectoryService) subscribe(ctx context.Context) {
	for _, table := range model.WatchedTables {
		sub, err := d.Feed.Subscribe(ctx, table, d.handlerFor(table))
		if err != nil {
			d.fail(fmt.Sprintf("Error subscribing to %s changes", table), err)
			continue
		}

		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			_ = sub.Close()
			return
		}
		d.subs = append(d.subs, sub)
		d.mu.Unlock()
	}
}

// load fetches both collections concurrently and clears the loading flag once
// both have settled, whatever their outcome.
func (d *DirectoryService) load() error {
	var wg sync.WaitGroup
	var customersErr, freelancersErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		customersErr = d.fetchCustomers(d.ctx)
	}()
	go func() {
		defer wg.Done()
		freelancersErr = d.fetchFreelancers(d.ctx)
	}()
	wg.Wait()

	d.mu.Lock()
	if !d.closed {
		d.loading = false
	}
	d.mu.Unlock()
	d.notify()

	return errors.Join(customersErr, freelancersErr)
}

func (d *DirectoryService) handlerFor(table model.Table) realtime.Handler {
	targets := refreshTargets(table)
	return func(ev realtime.Event) {
		d.Logger.Debug("Change notification", zap.String("table", string(ev.Table)), zap.String("op", ev.Op))
		for _, c := range targets {
			d.scheduleRefresh(c)
		}
	}
}

func (d *DirectoryService) scheduleRefresh(c collection) {
	if d.Options.RefreshDebounce <= 0 {
		_ = d.refresh(d.ctx, c)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if _, pending := d.timers[c]; pending {
		return
	}
	d.timers[c] = time.AfterFunc(d.Options.RefreshDebounce, func() {
		d.mu.Lock()
		delete(d.timers, c)
		d.mu.Unlock()
		_ = d.refresh(d.ctx, c)
	})
}

func (d *DirectoryService) refresh(ctx context.Context, c collection) error {
	if c == collectionCustomers {
		return d.fetchCustomers(ctx)
	}
	return d.fetchFreelancers(ctx)
}

func (d *DirectoryService) fetchCustomers(ctx context.Context) error {
	start := time.Now()
	rows, err := d.Store.FetchCustomers(ctx)
	metrics.ObserveFetch(string(collectionCustomers), start, err)
	if err != nil {
		d.fail("Error fetching customers", err)
		return err
	}

	if rows == nil {
		rows = []model.Customer{}
	}
	for i := range rows {
		rows[i].Normalize()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.customers = rows
	d.mu.Unlock()

	metrics.CollectionSize.WithLabelValues(string(collectionCustomers)).Set(float64(len(rows)))
	d.Logger.Info("Fetched customers", zap.Int("count", len(rows)))
	d.notify()
	return nil
}

func (d *DirectoryService) fetchFreelancers(ctx context.Context) error {
	start := time.Now()
	rows, err := d.Store.FetchFreelancers(ctx)
	metrics.ObserveFetch(string(collectionFreelancers), start, err)
	if err != nil {
		d.fail("Error fetching freelancers", err)
		return err
	}

	if rows == nil {
		rows = []model.Freelancer{}
	}
	for i := range rows {
		rows[i].Normalize()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.freelancers = rows
	d.mu.Unlock()

	metrics.CollectionSize.WithLabelValues(string(collectionFreelancers)).Set(float64(len(rows)))
	d.Logger.Info("Fetched freelancers", zap.Int("count", len(rows)))
	d.notify()
	return nil
}

// fail records err as the shared error. After Close it is dropped silently.
func (d *DirectoryService) fail(msg string, err error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.errMsg = err.Error()
	d.mu.Unlock()

	d.Logger.Error(msg, zap.Error(err))
	d.notify()
}

// FeedFailed records a lost change feed as the shared error. Until the feed
// is back and Reload has run, the collections may be stale.
func (d *DirectoryService) FeedFailed(err error) {
	d.fail("Change feed failed", err)
}

// Verify marks the user active.
func (d *DirectoryService) Verify(ctx context.Context, id string, userType model.UserType) error {
	return d.mutate(ctx, "verify", id, userType, func(ctx context.Context, table model.Table) error {
		return d.Store.UpdateStatus(ctx, table, id, model.StatusActive)
	})
}

// Suspend marks the user suspended. It never toggles: suspending a suspended
// user writes the same status again.
func (d *DirectoryService) Suspend(ctx context.Context, id string, userType model.UserType) error {
	return d.mutate(ctx, "suspend", id, userType, func(ctx context.Context, table model.Table) error {
		return d.Store.UpdateStatus(ctx, table, id, model.StatusSuspended)
	})
}

// Delete removes the user permanently.
func (d *DirectoryService) Delete(ctx context.Context, id string, userType model.UserType) error {
	return d.mutate(ctx, "delete", id, userType, func(ctx context.Context, table model.Table) error {
		return d.Store.Delete(ctx, table, id)
	})
}

// mutate runs write against the user's table and, on success, re-fetches the
// owning collection before returning. Failures are both recorded as the shared
// error and returned.
func (d *DirectoryService) mutate(ctx context.Context, op, id string, userType model.UserType, write func(context.Context, model.Table) error) (err error) {
	typeLabel := string(userType)
	defer func() {
		metrics.MutationsTotal.WithLabelValues(op, typeLabel, metrics.Result(err)).Inc()
	}()

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrClosed
	}

	table, err := userType.Table()
	if err != nil {
		typeLabel = "unknown"
		d.fail(fmt.Sprintf("%s user failed", op), err)
		return err
	}

	if err = write(ctx, table); err != nil {
		d.fail(fmt.Sprintf("%s %s failed", op, userType), err)
		return err
	}
	d.Logger.Info("User updated", zap.String("op", op), zap.String("type", string(userType)), zap.String("id", id))

	return d.refresh(ctx, collectionOf(userType))
}

// Snapshot returns the current view. The slices are copies; the records
// themselves are shared and must not be modified.
func (d *DirectoryService) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Customers:   slices.Clone(d.customers),
		Freelancers: slices.Clone(d.freelancers),
		Loading:     d.loading,
		Error:       d.errMsg,
	}
}

// Watch returns a channel signalled after every state change and a func that
// stops the watch. The channel is closed when the directory closes.
func (d *DirectoryService) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		close(ch)
		return ch, func() {}
	}
	d.nextWatcher++
	id := d.nextWatcher
	d.watchers[id] = ch

	return ch, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if w, ok := d.watchers[id]; ok {
			delete(d.watchers, id)
			close(w)
		}
	}
}

func (d *DirectoryService) notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close tears down every subscription and cancels in-flight fetches. Results
// arriving afterwards are discarded.
func (d *DirectoryService) Close() error {
	var errs []error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		subs := d.subs
		d.subs = nil
		for c, t := range d.timers {
			t.Stop()
			delete(d.timers, c)
		}
		watchers := d.watchers
		d.watchers = make(map[uint64]chan struct{})
		d.mu.Unlock()

		d.cancel()
		for _, sub := range subs {
			if err := sub.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		for _, ch := range watchers {
			close(ch)
		}
		d.Logger.Info("DirectoryService shutting down gracefully", zap.Int("subscriptions", len(subs)))
	})
	return errors.Join(errs...)
}
