package resilience

import (
	"context"
	"errors"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("resilience")

// Store decorates a KVStore with a breaker, retries and a write bulkhead.
// Writes go through the bulkhead so at most MaxConcurrency writers reach
// the backend at once (1 by default: the single-writer rule).
type Store struct {
	next   port.KVStore
	cb     *gobreaker.CircuitBreaker
	cfg    Config
	writes *Bulkhead
}

var _ port.KVStore = (*Store)(nil)

// NewStore wraps next.
func NewStore(next port.KVStore, cb *gobreaker.CircuitBreaker, cfg Config) *Store {
	return &Store{next: next, cb: cb, cfg: cfg, writes: NewBulkhead(cfg.MaxConcurrency)}
}

// Get reads through the breaker. A missing key is a normal outcome and does
// not count as a failure.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	ctx, span := tracer.Start(ctx, "Store.Get")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	var value string
	var missing bool
	_, err := s.cb.Execute(func() (any, error) {
		return nil, RetryWithBackoff(ctx, s.cfg, func() error {
			v, err := s.next.Get(ctx, key)
			if errors.Is(err, port.ErrKeyNotFound) {
				missing = true
				return nil
			}
			if err != nil {
				return err
			}
			value = v
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	if missing {
		return "", port.ErrKeyNotFound
	}
	return value, nil
}

// Set writes through the bulkhead and breaker.
func (s *Store) Set(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "Store.Set")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key), attribute.Int("kv.bytes", len(value)))

	return s.write(ctx, func() error { return s.next.Set(ctx, key, value) })
}

// Remove deletes through the bulkhead and breaker.
func (s *Store) Remove(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Store.Remove")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	return s.write(ctx, func() error { return s.next.Remove(ctx, key) })
}

func (s *Store) write(ctx context.Context, fn func() error) error {
	if err := s.writes.Acquire(ctx); err != nil {
		return err
	}
	defer s.writes.Release()

	_, err := s.cb.Execute(func() (any, error) {
		return nil, RetryWithBackoff(ctx, s.cfg, fn)
	})
	return err
}
