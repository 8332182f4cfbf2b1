package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"careaudit-backend/internal/shared/telemetry"
)

const (
	// DefaultStatusKey is the Redis hash holding one field per worker.
	DefaultStatusKey = "careaudit:worker:status"

	defaultStatusTTL = 2 * time.Minute
)

// ErrStatusUnavailable is returned when no status backend is configured.
var ErrStatusUnavailable = errors.New("worker status unavailable")

// RedisStatusPublisher writes worker snapshots into a Redis hash keyed by worker ID.
type RedisStatusPublisher struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
	now func() time.Time
}

// NewRedisStatusPublisher constructs a publisher. ttl bounds how long the hash
// survives once every worker stops publishing.
func NewRedisStatusPublisher(rdb redis.UniversalClient, key string, ttl time.Duration) *RedisStatusPublisher {
	if key == "" {
		key = DefaultStatusKey
	}
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	return &RedisStatusPublisher{rdb: rdb, key: key, ttl: ttl, now: time.Now}
}

// Publish stores s under its worker ID.
func (p *RedisStatusPublisher) Publish(ctx context.Context, s Status) error {
	if p == nil || p.rdb == nil {
		return ErrStatusUnavailable
	}
	at := p.now().UTC()
	s.PublishedAt = &at
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	pipe := p.rdb.TxPipeline()
	pipe.HSet(ctx, p.key, s.WorkerID, raw)
	pipe.Expire(ctx, p.key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

// Remove drops the worker's entry, used on clean shutdown.
func (p *RedisStatusPublisher) Remove(ctx context.Context, workerID string) error {
	if p == nil || p.rdb == nil {
		return ErrStatusUnavailable
	}
	return p.rdb.HDel(ctx, p.key, workerID).Err()
}

// RunPublisher publishes snapshot() every interval until ctx is cancelled,
// then removes the entry.
func (p *RedisStatusPublisher) RunPublisher(ctx context.Context, snapshot func() Status, interval time.Duration) error {
	if interval <= 0 {
		interval = p.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var workerID string
	for {
		s := snapshot()
		workerID = s.WorkerID
		if err := p.Publish(ctx, s); err != nil && ctx.Err() == nil {
			telemetry.Error("worker.status_publish_failed", map[string]any{"worker_id": workerID, "error": err.Error()})
		}
		select {
		case <-ctx.Done():
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := p.Remove(cleanupCtx, workerID); err != nil {
				telemetry.Error("worker.status_remove_failed", map[string]any{"worker_id": workerID, "error": err.Error()})
			}
			return nil
		case <-ticker.C:
		}
	}
}

// RedisStatusReader lists the snapshots workers have published.
type RedisStatusReader struct {
	rdb    redis.UniversalClient
	key    string
	maxAge time.Duration
	now    func() time.Time
}

// NewRedisStatusReader constructs a reader. Entries older than maxAge are
// treated as dead workers and skipped.
func NewRedisStatusReader(rdb redis.UniversalClient, key string, maxAge time.Duration) *RedisStatusReader {
	if key == "" {
		key = DefaultStatusKey
	}
	if maxAge <= 0 {
		maxAge = defaultStatusTTL
	}
	return &RedisStatusReader{rdb: rdb, key: key, maxAge: maxAge, now: time.Now}
}

// List returns live worker snapshots ordered by worker ID.
func (r *RedisStatusReader) List(ctx context.Context) ([]Status, error) {
	if r == nil || r.rdb == nil {
		return nil, ErrStatusUnavailable
	}
	entries, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read worker status: %w", err)
	}
	cutoff := r.now().UTC().Add(-r.maxAge)
	out := make([]Status, 0, len(entries))
	for id, raw := range entries {
		var s Status
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			telemetry.Error("worker.status_decode_failed", map[string]any{"worker_id": id, "error": err.Error()})
			continue
		}
		if s.PublishedAt != nil && s.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerID < out[j].WorkerID })
	return out, nil
}
