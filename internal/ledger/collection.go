// Package ledger holds the load/save plumbing shared by the registration and attendance ledgers.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/eventease/backend/internal/metrics"
	"github.com/eventease/backend/pkg/kvstore"
)

// Collection is a JSON array of records stored as one blob under a fixed key.
type Collection[T any] struct {
	store   kvstore.Store
	key     string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCollection binds a collection to key in store. logger and m may be nil.
func NewCollection[T any](store kvstore.Store, key string, logger *zap.Logger, m *metrics.Metrics) *Collection[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{store: store, key: key, logger: logger, metrics: m}
}

// Key returns the storage key of the collection.
func (c *Collection[T]) Key() string { return c.key }

// LoadAll returns every stored record in insertion order.
// A missing key or undecodable blob yields an empty slice; only store I/O errors are returned.
func (c *Collection[T]) LoadAll(ctx context.Context) ([]T, error) {
	raw, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	if !found || len(raw) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("stored collection is malformed, treating as empty",
			zap.String("key", c.key), zap.Int("bytes", len(raw)), zap.Error(err))
		c.metrics.IncDecodeFailure(c.key)
		return []T{}, nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// SaveAll serializes records and overwrites the stored blob.
func (c *Collection[T]) SaveAll(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.key, err)
	}
	if err := c.store.Set(ctx, c.key, raw); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	return nil
}
