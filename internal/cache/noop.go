package cache

import (
	"context"
	"time"

	"ChipSentinel/internal/model"
)

// Noop never stores anything; every call runs the producer. Used when caching is disabled.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) GetOrCompute(ctx context.Context, _ Key, _ time.Duration, produce Producer) (*model.Series, error) {
	return produce(ctx)
}

func (n *Noop) Name() string { return "none" }
func (n *Noop) Close() error { return nil }
