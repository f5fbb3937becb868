package redisclient

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"hawker-order-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	stallKeyPrefix = "stall_orders:"
	stallIndexKey  = "stall_orders:index"

	// StallChangesChannel carries the name of every stall whose record was written
	StallChangesChannel = "stall_orders:changes"
)

const (
	fieldStallName   = "stallName"
	fieldTotalOrders = "totalOrders"
	fieldTotalItems  = "totalItems"
	fieldLastUpdated = "lastUpdated"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func stallKey(stallName string) string {
	return stallKeyPrefix + stallName
}

// GetStall returns the stall record, or nil when none exists
func (c *Client) GetStall(ctx context.Context, stallName string) (*models.StallOrderCount, error) {
	fields, err := c.rdb.HGetAll(ctx, stallKey(stallName)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall stall %q: %w", stallName, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseStall(stallName, fields), nil
}

// IncrementStall applies count deltas with HINCRBY so concurrent writers never lose increments
func (c *Client) IncrementStall(ctx context.Context, stallName string, orders, items int64, at time.Time) error {
	key := stallKey(stallName)

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldTotalOrders, orders)
		pipe.HIncrBy(ctx, key, fieldTotalItems, items)
		pipe.HSet(ctx, key, fieldLastUpdated, at.UTC().Format(time.RFC3339Nano))
		pipe.SAdd(ctx, stallIndexKey, stallName)
		pipe.Publish(ctx, StallChangesChannel, stallName)
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment stall %q: %w", stallName, err)
	}
	return nil
}

// SetStall overwrites the whole stall record
func (c *Client) SetStall(ctx context.Context, rec models.StallOrderCount) error {
	key := stallKey(rec.StallName)

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldStallName, rec.StallName,
			fieldTotalOrders, rec.TotalOrders,
			fieldTotalItems, rec.TotalItems,
			fieldLastUpdated, rec.LastUpdated.UTC().Format(time.RFC3339Nano),
		)
		pipe.SAdd(ctx, stallIndexKey, rec.StallName)
		pipe.Publish(ctx, StallChangesChannel, rec.StallName)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set stall %q: %w", rec.StallName, err)
	}
	return nil
}

// ListStalls returns every stored stall record ordered by name
func (c *Client) ListStalls(ctx context.Context) ([]models.StallOrderCount, error) {
	names, err := c.rdb.SMembers(ctx, stallIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list stall index: %w", err)
	}
	sort.Strings(names)

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.HGetAll(ctx, stallKey(name))
	}
	if len(names) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("read stalls: %w", err)
		}
	}

	stalls := make([]models.StallOrderCount, 0, len(names))
	for i, name := range names {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		stalls = append(stalls, *parseStall(name, fields))
	}
	return stalls, nil
}

// WatchStalls subscribes to stall change notifications.
// The returned channel yields stall names and is closed once stop is called
// or the subscription ends.
func (c *Client) WatchStalls(ctx context.Context) (<-chan string, func() error, error) {
	ps := c.rdb.Subscribe(ctx, StallChangesChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", StallChangesChannel, err)
	}

	changes := make(chan string, 16)
	done := make(chan struct{})
	msgs := ps.Channel()

	go func() {
		defer close(changes)
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case changes <- msg.Payload:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	var closeErr error
	stop := func() error {
		once.Do(func() {
			close(done)
			closeErr = ps.Close()
		})
		return closeErr
	}

	return changes, stop, nil
}

// parseStall decodes a stall hash; missing or malformed counters read as zero
func parseStall(stallName string, fields map[string]string) *models.StallOrderCount {
	rec := &models.StallOrderCount{StallName: stallName}

	if name := fields[fieldStallName]; name != "" {
		rec.StallName = name
	}
	rec.TotalOrders, _ = strconv.ParseInt(fields[fieldTotalOrders], 10, 64)
	rec.TotalItems, _ = strconv.ParseInt(fields[fieldTotalItems], 10, 64)

	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldLastUpdated]); err == nil {
		rec.LastUpdated = ts
	} else {
		rec.LastUpdated = time.Now()
	}
	return rec
}
