// Package quotecache is a short-TTL cache for option quotes. Within one poll
// tick it lets several positions on the same contract share a single broker
// fetch, and the streaming feed pre-populates it between ticks.
package quotecache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/quantary/optionsentry/pkg/types"
	"go.uber.org/zap"
)

// Cache is a ristretto-backed TTL cache keyed by contract symbol.
type Cache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// Config holds cache configuration.
type Config struct {
	MaxEntries int64 // maximum number of cached quotes
	TTL        time.Duration
	Logger     *zap.Logger
}

// New creates a quote cache.
func New(cfg *Config) (*Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10, // 10x max items, per ristretto guidance
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		cache:  cache,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
	}, nil
}

// Get returns the cached quote for a contract symbol, if fresh.
func (c *Cache) Get(symbol string) (*types.Quote, bool) {
	value, found := c.cache.Get(symbol)
	if !found {
		MissesTotal.Inc()
		return nil, false
	}

	quote, ok := value.(*types.Quote)
	if !ok {
		MissesTotal.Inc()
		return nil, false
	}

	HitsTotal.Inc()
	c.logger.Debug("quote-cache-hit", zap.String("symbol", symbol))

	return quote, true
}

// Set stores a quote under its contract symbol with the configured TTL.
func (c *Cache) Set(symbol string, quote *types.Quote) bool {
	ok := c.cache.SetWithTTL(symbol, quote, 1, c.ttl)
	if ok {
		SetsTotal.Inc()
	}

	return ok
}

// Wait blocks until buffered writes are applied. Ristretto buffers Set calls;
// callers that need read-after-write (tests, the stream handshake) wait.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close releases cache resources.
func (c *Cache) Close() {
	c.cache.Close()
}
