package quotestream

import (
	"testing"
	"time"

	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/pkg/quotecache"
	"github.com/quantary/optionsentry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFeed(t *testing.T) (*Feed, *quotecache.Cache, *position.Book) {
	t.Helper()

	logger := zap.NewNop()
	book := position.NewBook(logger)

	cache, err := quotecache.New(&quotecache.Config{
		MaxEntries: 64,
		TTL:        time.Minute,
		Logger:     logger,
	})
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	f := New(Config{
		URL:    "wss://example.invalid/stream",
		Logger: logger,
	}, book, cache)

	return f, cache, book
}

func TestHandleMessageWritesQuotesToCache(t *testing.T) {
	f, cache, _ := newTestFeed(t)

	raw := []byte(`[{"T":"q","S":"SPY261016C00500000","bp":1.20,"ap":1.30}]`)

	f.handleMessage(raw)
	cache.Wait()

	quote, found := cache.Get("SPY261016C00500000")
	require.True(t, found, "quote should be cached after handling")

	assert.Equal(t, 1.20, quote.Bid)
	assert.Equal(t, 1.30, quote.Ask)
	assert.InDelta(t, 1.25, quote.Mark, 0.0001)
}

func TestHandleMessageIgnoresNonQuoteEvents(t *testing.T) {
	f, cache, _ := newTestFeed(t)

	f.handleMessage([]byte(`[{"T":"success","msg":"authenticated"}]`))
	f.handleMessage([]byte(`not json at all`))
	cache.Wait()

	_, found := cache.Get("")
	assert.False(t, found)
}

func TestDefaultsApplied(t *testing.T) {
	f, _, _ := newTestFeed(t)

	assert.Equal(t, 10*time.Second, f.cfg.DialTimeout)
	assert.Equal(t, 15*time.Second, f.cfg.SyncInterval)
}

func TestSyncSubscriptionsRequiresConnection(t *testing.T) {
	f, _, book := newTestFeed(t)

	pos, err := position.New(types.OptionContract{
		Ticker:     "SPY",
		Type:       types.Call,
		Strike:     500,
		Expiration: "2026-10-16",
	}, 1, 1.00, time.Now())
	require.NoError(t, err)
	require.NoError(t, book.Add(pos))

	err = f.syncSubscriptions()
	assert.Error(t, err, "sync without a connection must fail, not panic")
}

func TestReconnectBackoffProgression(t *testing.T) {
	r := newReconnector(ReconnectConfig{
		InitialDelay:      time.Second,
		MaxDelay:          4 * time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}, zap.NewNop())

	assert.Equal(t, time.Second, r.nextBackoff())

	r.incrementBackoff()
	assert.Equal(t, 2*time.Second, r.nextBackoff())

	r.incrementBackoff()
	assert.Equal(t, 4*time.Second, r.nextBackoff())

	// Capped at MaxDelay.
	r.incrementBackoff()
	assert.Equal(t, 4*time.Second, r.nextBackoff())

	r.reset()
	assert.Equal(t, time.Second, r.nextBackoff())
}
