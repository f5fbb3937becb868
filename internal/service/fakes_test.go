package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"hawker-order-service/internal/models"
)

var errStoreDown = errors.New("store unavailable")

// fakeStallStore is an in-memory StallStore
type fakeStallStore struct {
	mu         sync.Mutex
	stalls     map[string]models.StallOrderCount
	increments int
	sets       int

	getErr   error
	writeErr error
	listErr  error
	watchErr error

	changes chan string
	stopped bool
}

func newFakeStallStore() *fakeStallStore {
	return &fakeStallStore{stalls: make(map[string]models.StallOrderCount)}
}

func (f *fakeStallStore) GetStall(_ context.Context, stallName string) (*models.StallOrderCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.stalls[stallName]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStallStore) IncrementStall(_ context.Context, stallName string, orders, items int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	rec := f.stalls[stallName]
	rec.StallName = stallName
	rec.TotalOrders += orders
	rec.TotalItems += items
	rec.LastUpdated = at
	f.stalls[stallName] = rec
	f.increments++
	f.notify(stallName)
	return nil
}

func (f *fakeStallStore) SetStall(_ context.Context, rec models.StallOrderCount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.stalls[rec.StallName] = rec
	f.sets++
	f.notify(rec.StallName)
	return nil
}

func (f *fakeStallStore) ListStalls(_ context.Context) ([]models.StallOrderCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.StallOrderCount, 0, len(f.stalls))
	for _, rec := range f.stalls {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StallName < out[j].StallName })
	return out, nil
}

func (f *fakeStallStore) WatchStalls(_ context.Context) (<-chan string, func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return nil, nil, f.watchErr
	}
	f.changes = make(chan string, 64)
	f.stopped = false
	return f.changes, func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped = true
		return nil
	}, nil
}

// notify must be called with mu held
func (f *fakeStallStore) notify(stallName string) {
	if f.changes != nil && !f.stopped {
		f.changes <- stallName
	}
}

// breakFeed closes the change channel as if the connection dropped
func (f *fakeStallStore) breakFeed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.changes)
	f.changes = nil
}

func (f *fakeStallStore) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeStallStore) get(stallName string) models.StallOrderCount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stalls[stallName]
}

func (f *fakeStallStore) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

type stallCall struct {
	StallName string
	ItemCount int
}

// recordingCounter records StallCounter calls
type recordingCounter struct {
	mu      sync.Mutex
	added   []stallCall
	removed []stallCall
	addErr  error

	subscribed   int
	unsubscribed int
	push         func([]models.StallOrderCount)
}

func (r *recordingCounter) AddOrderToStall(_ context.Context, stallName string, itemCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	r.added = append(r.added, stallCall{stallName, itemCount})
	return nil
}

func (r *recordingCounter) RemoveOrderFromStall(_ context.Context, stallName string, itemCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, stallCall{stallName, itemCount})
	return nil
}

func (r *recordingCounter) SubscribeToStallOrders(_ context.Context, callback func([]models.StallOrderCount)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribed++
	r.push = callback
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.unsubscribed++
		r.push = nil
	}
}

func (r *recordingCounter) calls() (added, removed []stallCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stallCall(nil), r.added...), append([]stallCall(nil), r.removed...)
}

// memoryOrderRepo is an in-memory OrderRepository
type memoryOrderRepo struct {
	mu      sync.Mutex
	saved   []models.Order
	saves   int
	loadErr error
}

func (m *memoryOrderRepo) SaveOrders(_ context.Context, orders []models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append([]models.Order(nil), orders...)
	m.saves++
	return nil
}

func (m *memoryOrderRepo) LoadOrders(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]models.Order(nil), m.saved...), nil
}

// recordingPublisher records published events
type recordingPublisher struct {
	mu      sync.Mutex
	placed  []*models.OrderPlacedEvent
	changed []*models.OrderStatusChangedEvent
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, event)
	return nil
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, event)
	return nil
}
