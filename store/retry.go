package store

import (
	"context"
	"errors"
	"time"

	"github.com/LingoraLabs/lingocache"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns sensible defaults for a network-backed tier.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   2 * time.Second,
	}
}

// IsRetryable reports whether a failed cache operation is worth repeating.
// Transport and availability failures are transient; bad input,
// cancellation, corruption and quota exhaustion will not heal on their own.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if lingocache.IsCancelled(err) {
		return false
	}
	if lingocache.IsStorageUnavailable(err) {
		return true
	}

	var ioErr *lingocache.IOError
	return errors.As(err, &ioErr)
}

// RetryingStore wraps a PersistentCache with exponential backoff on
// transient failures. Misses are results, not failures, and pass through
// untouched.
type RetryingStore struct {
	next PersistentCache
	cfg  RetryConfig
}

var _ PersistentCache = (*RetryingStore)(nil)

// NewRetryingStore creates a store that retries transient failures of next.
func NewRetryingStore(next PersistentCache, cfg RetryConfig) *RetryingStore {
	return &RetryingStore{next: next, cfg: cfg}
}

// Unwrap returns the wrapped store. Export and import use it to reach
// the concrete backend.
func (s *RetryingStore) Unwrap() PersistentCache {
	return s.next
}

// retry executes fn with exponential backoff until it succeeds, fails
// terminally, or the attempts are exhausted.
func (s *RetryingStore) retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return &lingocache.CancelledError{Op: op, Cause: ctx.Err()}
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt < s.cfg.MaxRetries {
			delay := s.cfg.BaseDelay * time.Duration(1<<attempt)
			if delay > s.cfg.MaxDelay {
				delay = s.cfg.MaxDelay
			}

			select {
			case <-ctx.Done():
				return &lingocache.CancelledError{Op: op, Cause: ctx.Err()}
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}

// GetProject implements PersistentCache with retry logic.
func (s *RetryingStore) GetProject(ctx context.Context, project, lang string) (lingocache.Payload, bool, error) {
	var (
		payload lingocache.Payload
		ok      bool
	)
	err := s.retry(ctx, "get project", func() error {
		var err error
		payload, ok, err = s.next.GetProject(ctx, project, lang)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return payload, ok, nil
}

// GetGroup implements PersistentCache with retry logic.
func (s *RetryingStore) GetGroup(ctx context.Context, project, group, lang string) (lingocache.Group, bool, error) {
	var (
		g  lingocache.Group
		ok bool
	)
	err := s.retry(ctx, "get group", func() error {
		var err error
		g, ok, err = s.next.GetGroup(ctx, project, group, lang)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return g, ok, nil
}

// SaveProject implements PersistentCache with retry logic.
func (s *RetryingStore) SaveProject(ctx context.Context, project, lang string, payload lingocache.Payload) error {
	return s.retry(ctx, "save project", func() error {
		return s.next.SaveProject(ctx, project, lang, payload)
	})
}

// IsCached implements PersistentCache with retry logic.
func (s *RetryingStore) IsCached(ctx context.Context, project, lang string) (bool, error) {
	var cached bool
	err := s.retry(ctx, "check cached", func() error {
		var err error
		cached, err = s.next.IsCached(ctx, project, lang)
		return err
	})
	if err != nil {
		return false, err
	}
	return cached, nil
}

// ClearAll implements PersistentCache with retry logic.
func (s *RetryingStore) ClearAll(ctx context.Context) error {
	return s.retry(ctx, "clear all", func() error {
		return s.next.ClearAll(ctx)
	})
}
