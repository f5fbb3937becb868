package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hawker-order-service/internal/models"
	"hawker-order-service/internal/util"

	"go.uber.org/zap"
)

// StallStore is the remote document store holding one record per stall
type StallStore interface {
	GetStall(ctx context.Context, stallName string) (*models.StallOrderCount, error)
	IncrementStall(ctx context.Context, stallName string, orders, items int64, at time.Time) error
	SetStall(ctx context.Context, rec models.StallOrderCount) error
	ListStalls(ctx context.Context) ([]models.StallOrderCount, error)
	WatchStalls(ctx context.Context) (<-chan string, func() error, error)
}

// StallOrderCounter mirrors per-stall outstanding totals in the remote store
type StallOrderCounter struct {
	store      StallStore
	stallNames []string
	logger     *zap.Logger
	now        func() time.Time
	timeout    time.Duration
}

// NewStallOrderCounter creates a counter; stallNames is the fixed set reported by GetAllStallOrderCounts
func NewStallOrderCounter(store StallStore, stallNames []string) *StallOrderCounter {
	names := make([]string, len(stallNames))
	copy(names, stallNames)

	return &StallOrderCounter{
		store:      store,
		stallNames: names,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// SetCallTimeout bounds each remote read or write; zero means no bound
func (sc *StallOrderCounter) SetCallTimeout(d time.Duration) {
	sc.timeout = d
}

func (sc *StallOrderCounter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if sc.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, sc.timeout)
}

// AddOrderToStall records one new order of itemCount items against stallName
func (sc *StallOrderCounter) AddOrderToStall(ctx context.Context, stallName string, itemCount int) error {
	ctx, span := util.StartSpan(ctx, "StallOrderCounter.AddOrderToStall")
	defer span.End()

	ctx, cancel := sc.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		util.StallStoreLatency.WithLabelValues("increment").Observe(time.Since(start).Seconds())
	}()

	existing, err := sc.store.GetStall(ctx, stallName)
	if err != nil {
		return sc.writeFailed("increment", stallName, itemCount, err)
	}

	now := sc.now()
	if existing != nil {
		err = sc.store.IncrementStall(ctx, stallName, 1, int64(itemCount), now)
	} else {
		err = sc.store.SetStall(ctx, models.StallOrderCount{
			StallName:   stallName,
			TotalOrders: 1,
			TotalItems:  int64(itemCount),
			LastUpdated: now,
		})
	}
	if err != nil {
		return sc.writeFailed("increment", stallName, itemCount, err)
	}

	util.StallCountUpdatesTotal.WithLabelValues("increment").Inc()
	sc.logger.Debug("Stall order added",
		zap.String("stall", stallName),
		zap.Int("items", itemCount))
	return nil
}

// RemoveOrderFromStall releases one order of itemCount items from stallName.
// Counts are clamped at zero. This is a plain read-modify-write, so two
// clients decrementing the same stall at once can lose one update.
func (sc *StallOrderCounter) RemoveOrderFromStall(ctx context.Context, stallName string, itemCount int) error {
	ctx, span := util.StartSpan(ctx, "StallOrderCounter.RemoveOrderFromStall")
	defer span.End()

	ctx, cancel := sc.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		util.StallStoreLatency.WithLabelValues("decrement").Observe(time.Since(start).Seconds())
	}()

	existing, err := sc.store.GetStall(ctx, stallName)
	if err != nil {
		return sc.writeFailed("decrement", stallName, itemCount, err)
	}
	if existing == nil {
		return nil
	}

	updated := models.StallOrderCount{
		StallName:   stallName,
		TotalOrders: clampZero(existing.TotalOrders - 1),
		TotalItems:  clampZero(existing.TotalItems - int64(itemCount)),
		LastUpdated: sc.now(),
	}
	if err := sc.store.SetStall(ctx, updated); err != nil {
		return sc.writeFailed("decrement", stallName, itemCount, err)
	}

	util.StallCountUpdatesTotal.WithLabelValues("decrement").Inc()
	sc.logger.Debug("Stall order removed",
		zap.String("stall", stallName),
		zap.Int("items", itemCount))
	return nil
}

func (sc *StallOrderCounter) writeFailed(op, stallName string, itemCount int, err error) error {
	util.StallStoreErrorsTotal.WithLabelValues(op).Inc()
	sc.logger.Error("Failed to update stall order count",
		zap.String("op", op),
		zap.String("stall", stallName),
		zap.Int("items", itemCount),
		zap.Error(err))
	return fmt.Errorf("stall %s %q: %w", op, stallName, err)
}

// SubscribeToStallOrders delivers the full stall list to callback now and
// after every remote change, until the returned function is called or ctx
// ends. If the feed cannot be opened the callback is never invoked.
func (sc *StallOrderCounter) SubscribeToStallOrders(ctx context.Context, callback func([]models.StallOrderCount)) func() {
	changes, stop, err := sc.store.WatchStalls(ctx)
	if err != nil {
		util.StallStoreErrorsTotal.WithLabelValues("subscribe").Inc()
		sc.logger.Error("Failed to subscribe to stall orders", zap.Error(err))
		return func() {}
	}

	done := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			if err := stop(); err != nil {
				sc.logger.Warn("Failed to close stall feed", zap.Error(err))
			}
		})
	}

	go func() {
		sc.deliverSnapshot(ctx, done, callback)

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				unsubscribe()
				return
			case _, ok := <-changes:
				if !ok {
					select {
					case <-done:
						return
					default:
					}
					util.StallStoreErrorsTotal.WithLabelValues("feed").Inc()
					sc.logger.Error("Stall feed closed unexpectedly")
					callback([]models.StallOrderCount{})
					unsubscribe()
					return
				}
				sc.deliverSnapshot(ctx, done, callback)
			}
		}
	}()

	return unsubscribe
}

// deliverSnapshot rebuilds the stall list; a failed rebuild delivers an empty list
func (sc *StallOrderCounter) deliverSnapshot(ctx context.Context, done <-chan struct{}, callback func([]models.StallOrderCount)) {
	stalls, err := sc.store.ListStalls(ctx)
	if err != nil {
		util.StallStoreErrorsTotal.WithLabelValues("feed").Inc()
		sc.logger.Error("Failed to rebuild stall orders snapshot", zap.Error(err))
		stalls = []models.StallOrderCount{}
	}

	select {
	case <-done:
		return
	default:
	}

	util.StallFeedSnapshotsTotal.Inc()
	callback(stalls)
}

// GetStallOrderCount fetches one stall record; nil when absent or unreadable
func (sc *StallOrderCounter) GetStallOrderCount(ctx context.Context, stallName string) *models.StallOrderCount {
	ctx, span := util.StartSpan(ctx, "StallOrderCounter.GetStallOrderCount")
	defer span.End()

	ctx, cancel := sc.withTimeout(ctx)
	defer cancel()

	rec, err := sc.store.GetStall(ctx, stallName)
	if err != nil {
		util.StallStoreErrorsTotal.WithLabelValues("get").Inc()
		sc.logger.Error("Failed to get stall order count",
			zap.String("stall", stallName),
			zap.Error(err))
		return nil
	}
	return rec
}

// GetAllStallOrderCounts returns one record per known stall, in configured order
func (sc *StallOrderCounter) GetAllStallOrderCounts(ctx context.Context) []models.StallOrderCount {
	counts := make([]models.StallOrderCount, 0, len(sc.stallNames))
	for _, name := range sc.stallNames {
		if rec := sc.GetStallOrderCount(ctx, name); rec != nil {
			counts = append(counts, *rec)
			continue
		}
		counts = append(counts, models.StallOrderCount{
			StallName:   name,
			LastUpdated: sc.now(),
		})
	}
	return counts
}

func clampZero(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
