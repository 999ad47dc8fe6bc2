// Package workerpool runs per-item work with bounded parallelism.
// ⭐ SSOT: 모든 배치 작업(수집, 시그널 빌더)은 이 풀을 통해 실행
package workerpool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/trendscan/pkg/config"
	"github.com/wonny/trendscan/pkg/logger"
)

// Config bounds concurrency and throughput
type Config struct {
	Workers   int           // concurrent in-flight items
	BatchSize int           // items dispatched per batch
	Delay     time.Duration // pause after each item (throttle)
}

// FromConfig builds a pool Config from the jobs section
func FromConfig(cfg config.JobsConfig) Config {
	return Config{
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
		Delay:     cfg.ItemDelay,
	}
}

// Failure records a single item failure
type Failure struct {
	Key string
	Err error
}

// Summary is the outcome of a Run
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Failures  []Failure
}

// Run applies fn to every item. A failing item is logged with its key and
// counted; it never stops the remaining items. Context cancellation stops
// dispatching new items, and undispatched items are not counted.
func Run[T any](
	ctx context.Context,
	items []T,
	cfg Config,
	key func(T) string,
	fn func(ctx context.Context, item T) error,
	log *logger.Logger,
) Summary {
	if log == nil {
		log = logger.Nop()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = len(items)
	}

	var (
		mu      sync.Mutex
		summary Summary
	)

	record := func(k string, err error) {
		mu.Lock()
		defer mu.Unlock()
		summary.Total++
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Key: k, Err: err})
			return
		}
		summary.Succeeded++
	}

	for start := 0; start < len(items); start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		g := new(errgroup.Group)
		g.SetLimit(workers)

		for _, item := range items[start:end] {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				k := key(item)
				err := fn(ctx, item)
				if err != nil {
					log.WithError(err).WithField("key", k).Warn("item failed")
				}
				record(k, err)

				if cfg.Delay > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(cfg.Delay):
					}
				}
				// per-item errors are collected above, never returned
				return nil
			})
		}
		_ = g.Wait()

		log.WithFields(map[string]interface{}{
			"batch_end": end,
			"total":     len(items),
		}).Debug("batch finished")
	}

	return summary
}
