package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Prototype-1/UserDirectory/internal/model"
	"github.com/Prototype-1/UserDirectory/internal/realtime"
)

type fakeStore struct {
	mu          sync.Mutex
	customers   []model.Customer
	freelancers []model.Freelancer

	customersErr   error
	freelancersErr error
	writeErr       error

	// blockFreelancers, when set, holds FetchFreelancers until it is closed.
	blockFreelancers   chan struct{}
	freelancersEntered chan struct{}

	calls  []string
	writes []string
}

func (s *fakeStore) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeStore) FetchCustomers(context.Context) ([]model.Customer, error) {
	s.record("customers")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customersErr != nil {
		return nil, s.customersErr
	}
	return append([]model.Customer(nil), s.customers...), nil
}

func (s *fakeStore) FetchFreelancers(context.Context) ([]model.Freelancer, error) {
	s.record("freelancers")

	s.mu.Lock()
	block, entered := s.blockFreelancers, s.freelancersEntered
	s.freelancersEntered = nil
	s.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.freelancersErr != nil {
		return nil, s.freelancersErr
	}
	return append([]model.Freelancer(nil), s.freelancers...), nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, table model.Table, id string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, fmt.Sprintf("update %s %s %s", table, id, status))
	return s.writeErr
}

func (s *fakeStore) Delete(_ context.Context, table model.Table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, fmt.Sprintf("delete %s %s", table, id))
	return s.writeErr
}

func (s *fakeStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

func (s *fakeStore) ResetCalls() {
	s.mu.Lock()
	s.calls = nil
	s.writes = nil
	s.mu.Unlock()
}

type fakeSubscription struct {
	mu     sync.Mutex
	closed int
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

func (s *fakeSubscription) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeFeed delivers events synchronously on the emitting goroutine.
type fakeFeed struct {
	mu       sync.Mutex
	handlers map[model.Table]realtime.Handler
	subs     map[model.Table]*fakeSubscription
	failOn   map[model.Table]error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		handlers: make(map[model.Table]realtime.Handler),
		subs:     make(map[model.Table]*fakeSubscription),
		failOn:   make(map[model.Table]error),
	}
}

func (f *fakeFeed) Subscribe(_ context.Context, table model.Table, h realtime.Handler) (realtime.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[table]; err != nil {
		return nil, err
	}
	sub := &fakeSubscription{}
	f.handlers[table] = h
	f.subs[table] = sub
	return sub, nil
}

func (f *fakeFeed) Emit(table model.Table) {
	f.mu.Lock()
	h := f.handlers[table]
	sub := f.subs[table]
	f.mu.Unlock()
	if h == nil || sub.Closed() > 0 {
		return
	}
	h(realtime.Event{Table: table, Op: "UPDATE"})
}

func (f *fakeFeed) Tables() []model.Table {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tables []model.Table
	for _, t := range model.WatchedTables {
		if _, ok := f.handlers[t]; ok {
			tables = append(tables, t)
		}
	}
	return tables
}

func (f *fakeFeed) Subscriptions() []*fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := make([]*fakeSubscription, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	return subs
}
