package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"
)

const (
	runsKeyPrefix = "verify:runs:"
	scenariosKey  = "verify:scenarios"
)

// RedisLedger stores run records as one capped list per scenario.
type RedisLedger struct {
	client  *redis.Client
	logger  *slog.Logger
	history int
}

// Ensure RedisLedger implements Ledger interface
var _ Ledger = (*RedisLedger)(nil)

// NewRedisLedger connects to redisURL and keeps the last history runs of
// every scenario.
func NewRedisLedger(ctx context.Context, redisURL string, history int, logger *slog.Logger) (*RedisLedger, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if history < 1 {
		history = 1
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis for run ledger", "addr", opt.Addr, "history", history)

	return &RedisLedger{
		client:  rdb,
		logger:  logger,
		history: history,
	}, nil
}

func runsKey(scenario string) string {
	return runsKeyPrefix + scenario
}

func (r *RedisLedger) Record(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	key := runsKey(rec.Scenario)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(r.history-1))
		pipe.SAdd(ctx, scenariosKey, rec.Scenario)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to record run", "run_id", rec.RunID, "scenario", rec.Scenario, "error", err)
		return fmt.Errorf("failed to record run: %w", err)
	}

	r.logger.Debug("Recorded run", "run_id", rec.RunID, "scenario", rec.Scenario, "state", rec.State)
	return nil
}

func (r *RedisLedger) Latest(ctx context.Context, scenario string) (*Record, error) {
	data, err := r.client.LIndex(ctx, runsKey(scenario), 0).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &rec, nil
}

func (r *RedisLedger) History(ctx context.Context, scenario string, n int) ([]Record, error) {
	if n <= 0 {
		return []Record{}, nil
	}
	items, err := r.client.LRange(ctx, runsKey(scenario), 0, int64(n-1)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load run history: %w", err)
	}

	records := make([]Record, 0, len(items))
	for _, data := range items {
		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			r.logger.Warn("Skipping unreadable run record", "scenario", scenario, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *RedisLedger) Scenarios(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, scenariosKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (r *RedisLedger) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}
