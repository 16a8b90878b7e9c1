// Package cache memoizes fetched price series for a fixed time window.
//
// Entries are keyed by symbol and lookback window. There is no invalidation
// on write: an expired entry is simply a miss and triggers a fresh fetch.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ChipSentinel/internal/model"
)

// Key identifies a cached series.
type Key struct {
	Symbol       string
	LookbackDays int
}

// String returns the storage key, e.g. "2330:90".
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", strings.ToUpper(strings.TrimSpace(k.Symbol)), k.LookbackDays)
}

// Producer builds the series on a miss.
type Producer func(ctx context.Context) (*model.Series, error)

// Cache returns a stored series for key, or calls produce and stores its result for ttl.
// Producer errors are returned as-is and never stored.
// Returned series are shared between callers and must not be mutated.
type Cache interface {
	GetOrCompute(ctx context.Context, key Key, ttl time.Duration, produce Producer) (*model.Series, error)
	Name() string
	Close() error
}

func encodeSeries(s *model.Series) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode series: %w", err)
	}
	return data, nil
}

func decodeSeries(data []byte) (*model.Series, error) {
	var s model.Series
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	return &s, nil
}
