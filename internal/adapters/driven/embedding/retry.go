// Package embedding provides the retrying client wrapped around a
// concrete embedding adapter (see the ollama and openai subpackages).
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure RetryClient implements the interface.
var _ driven.EmbeddingService = (*RetryClient)(nil)

// Retry policy.
const (
	// MaxAttempts bounds retries by count; callers needing a wall-clock
	// deadline impose one via the context.
	MaxAttempts = 5

	// BaseBackoff is the first retry delay; it doubles per attempt.
	BaseBackoff = 500 * time.Millisecond

	// ProactiveRate throttles embedding calls ahead of the backend's own
	// limits (requests per second).
	ProactiveRate = 10
)

// RetryClient decorates an EmbeddingService with bounded exponential
// backoff for transient failures, proactive throttling, and last-call
// statistics for observability.
type RetryClient struct {
	inner       driven.EmbeddingService
	bucket      *rate.Limiter
	baseBackoff time.Duration

	mu    sync.Mutex
	stats domain.EmbedStats
}

// NewRetryClient wraps an embedding service with the retry policy.
func NewRetryClient(inner driven.EmbeddingService) *RetryClient {
	return &RetryClient{
		inner:       inner,
		bucket:      rate.NewLimiter(rate.Limit(ProactiveRate), 1),
		baseBackoff: BaseBackoff,
	}
}

// Embed generates an embedding, retrying transient failures.
func (c *RetryClient) Embed(ctx context.Context, text string, query bool) ([]float32, error) {
	var out []float32
	err := c.withRetry(ctx, func() error {
		var err error
		out, err = c.inner.Embed(ctx, text, query)
		return err
	})
	return out, err
}

// EmbedBatch generates embeddings in one backend call, retrying transient
// failures. The whole batch is retried as a unit; partial results are
// never surfaced.
func (c *RetryClient) EmbedBatch(ctx context.Context, texts []string, query bool) ([][]float32, error) {
	var out [][]float32
	err := c.withRetry(ctx, func() error {
		var err error
		out, err = c.inner.EmbedBatch(ctx, texts, query)
		return err
	})
	return out, err
}

// withRetry runs call up to MaxAttempts times. Only transient failures are
// retried; anything else fails immediately.
func (c *RetryClient) withRetry(ctx context.Context, call func() error) error {
	start := time.Now()
	backoff := c.baseBackoff

	var lastErr error
	attempts := 0

	for attempts < MaxAttempts {
		if err := c.bucket.Wait(ctx); err != nil {
			c.record(attempts, start, err)
			return err
		}

		attempts++
		lastErr = call()
		if lastErr == nil {
			c.record(attempts, start, nil)
			return nil
		}

		if !IsTransient(lastErr) {
			logger.Warn("Embedding call failed (fatal): %v", lastErr)
			break
		}

		if attempts == MaxAttempts {
			break
		}

		logger.Debug("Embedding call failed (attempt %d/%d), retrying in %s: %v",
			attempts, MaxAttempts, backoff, lastErr)

		select {
		case <-ctx.Done():
			c.record(attempts, start, ctx.Err())
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	c.record(attempts, start, lastErr)
	return fmt.Errorf("embedding failed after %d attempts: %w", attempts, lastErr)
}

// record updates last-call statistics.
func (c *RetryClient) record(attempts int, start time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = domain.EmbedStats{
		Attempts: attempts,
		Duration: time.Since(start),
		LastErr:  err,
	}
}

// Stats returns the statistics of the most recent call.
func (c *RetryClient) Stats() domain.EmbedStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Dimensions returns the embedding vector size.
func (c *RetryClient) Dimensions() int {
	return c.inner.Dimensions()
}

// ModelName returns the embedding model name.
func (c *RetryClient) ModelName() string {
	return c.inner.ModelName()
}

// Ping validates the inner service is reachable. Pings are not retried.
func (c *RetryClient) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

// Close releases resources.
func (c *RetryClient) Close() error {
	return c.inner.Close()
}

// IsTransient reports whether an embedding failure looks temporary:
// timeouts, connection problems, throttling, or a backend mid-restart.
// Anything else (bad request, auth failure) fails immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout",
		"timed out",
		"connection refused",
		"connection reset",
		"backend unavailable",
		"status 429",
		"status 500",
		"status 502",
		"status 503",
		"status 504",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
