// Package fanout dispatches a query to multiple sources concurrently and
// collects per-source outcomes behind a join barrier. A failing source never
// aborts the batch; its error is reported alongside the results of the
// sources that succeeded.
package fanout

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/matomesearch/matome/internal/models"
	"github.com/matomesearch/matome/internal/source"
)

const (
	DefaultSourceTimeout = 10 * time.Second
	DefaultMaxConcurrent = 10
	DefaultMaxAttempts   = 3
	DefaultRetryDelay    = 500 * time.Millisecond
)

// Config bounds the fan-out. Zero values fall back to the defaults.
type Config struct {
	// SourceTimeout caps a single fetch attempt, not the whole retry budget.
	SourceTimeout time.Duration
	// MaxConcurrent caps in-flight fetches across all sources of a dispatch.
	MaxConcurrent int
	// MaxAttempts is the total number of tries per source, first call included.
	MaxAttempts int
	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration
}

func (c Config) normalized() Config {
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = DefaultSourceTimeout
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

// Outcome is the terminal state of one source within a dispatch: either its
// results or the error that exhausted its attempts, never both.
type Outcome struct {
	Source  string
	Results []models.Result
	Err     error
}

// Coordinator runs concurrent fetches against a set of source adapters.
type Coordinator struct {
	mu     sync.RWMutex
	cfg    Config
	sem    *semaphore.Weighted
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalized()
	return &Coordinator{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger: logger,
	}
}

// UpdateConfig swaps the per-attempt tunables for subsequent dispatches.
// MaxConcurrent is fixed at construction; the semaphore cannot be resized
// while slots are held, so changes to it are ignored.
func (c *Coordinator) UpdateConfig(cfg Config) {
	cfg = cfg.normalized()
	c.mu.Lock()
	cfg.MaxConcurrent = c.cfg.MaxConcurrent
	c.cfg = cfg
	c.mu.Unlock()
}

// config returns a snapshot so one source sees consistent values for its
// whole retry budget even when a reload lands mid-flight.
func (c *Coordinator) config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Dispatch fans the query out to every adapter and blocks until all of them
// have completed or exhausted their attempts. The returned outcomes keep the
// adapter order, regardless of completion order.
func (c *Coordinator) Dispatch(ctx context.Context, adapters []source.Adapter, query string, languages []string, maxResults int) []Outcome {
	c.logger.Debug("dispatching query to sources",
		zap.String("query", query),
		zap.Int("sources", len(adapters)))

	outcomes := make([]Outcome, len(adapters))
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter source.Adapter) {
			defer wg.Done()
			outcomes[i] = c.fetchOne(ctx, adapter, query, languages, maxResults)
		}(i, adapter)
	}
	wg.Wait()
	return outcomes
}

// fetchOne holds a semaphore slot for the full retry budget of one source.
func (c *Coordinator) fetchOne(ctx context.Context, adapter source.Adapter, query string, languages []string, maxResults int) Outcome {
	out := Outcome{Source: adapter.Name()}
	cfg := c.config()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		out.Err = &source.AdapterError{Source: out.Source, Cause: err}
		return out
	}
	defer c.sem.Release(1)

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		results, err := c.attempt(ctx, adapter, cfg.SourceTimeout, query, languages, maxResults)
		if err == nil {
			out.Results = results
			c.logger.Debug("source completed",
				zap.String("source", out.Source),
				zap.Int("results", len(results)),
				zap.Int("attempt", attempt))
			return out
		}
		lastErr = err
		c.logger.Warn("source attempt failed",
			zap.String("source", out.Source),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Error(err))

		if attempt == cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(cfg.RetryDelay):
		case <-ctx.Done():
			out.Err = &source.AdapterError{Source: out.Source, Cause: ctx.Err()}
			return out
		}
	}
	out.Err = &source.AdapterError{Source: out.Source, Cause: lastErr}
	return out
}

func (c *Coordinator) attempt(ctx context.Context, adapter source.Adapter, timeout time.Duration, query string, languages []string, maxResults int) ([]models.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return adapter.Fetch(attemptCtx, query, languages, maxResults)
}

// Merge concatenates results in dispatch order and collects error messages
// keyed by source name. The map is nil when every source succeeded.
func Merge(outcomes []Outcome) ([]models.Result, map[string]string) {
	var results []models.Result
	var errs map[string]string
	for _, out := range outcomes {
		if out.Err != nil {
			if errs == nil {
				errs = make(map[string]string)
			}
			errs[out.Source] = errorMessage(out.Err)
			continue
		}
		results = append(results, out.Results...)
	}
	return results, errs
}

// errorMessage strips the source prefix when the error is an AdapterError;
// the map key already names the source.
func errorMessage(err error) string {
	var aerr *source.AdapterError
	if errors.As(err, &aerr) && aerr.Cause != nil {
		return aerr.Cause.Error()
	}
	return err.Error()
}

// Classify maps a merged dispatch onto a response status: completed when no
// source failed, partial when failures left some results, failed otherwise.
func Classify(resultCount, errorCount int) string {
	switch {
	case errorCount == 0:
		return models.StatusCompleted
	case resultCount > 0:
		return models.StatusPartial
	default:
		return models.StatusFailed
	}
}
