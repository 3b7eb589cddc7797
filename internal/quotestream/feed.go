// Package quotestream maintains an optional websocket market-data feed that
// keeps the quote cache warm between poll ticks. The polling loop remains the
// source of truth; the feed only reduces broker round-trips.
package quotestream

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/pkg/quotecache"
	"github.com/quantary/optionsentry/pkg/types"
	"go.uber.org/zap"
)

// Feed subscribes to option quote updates for every open position and writes
// them into the quote cache. Subscriptions are diff-synced against the
// position book on an interval, so positions opened and closed mid-session
// are picked up without explicit wiring.
type Feed struct {
	cfg    Config
	book   *position.Book
	cache  *quotecache.Cache
	logger *zap.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	subscribed map[string]bool

	reconnect *reconnector
	wg        sync.WaitGroup
}

// Config holds feed configuration.
type Config struct {
	URL          string
	APIKey       string
	APISecret    string
	DialTimeout  time.Duration
	SyncInterval time.Duration
	Reconnect    ReconnectConfig
	Logger       *zap.Logger
}

// New creates a quote feed over the given book and cache.
func New(cfg Config, book *position.Book, cache *quotecache.Cache) *Feed {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 15 * time.Second
	}

	return &Feed{
		cfg:        cfg,
		book:       book,
		cache:      cache,
		logger:     cfg.Logger,
		subscribed: make(map[string]bool),
		reconnect:  newReconnector(cfg.Reconnect, cfg.Logger),
	}
}

// Start connects and launches the read and subscription-sync loops.
func (f *Feed) Start(ctx context.Context) error {
	err := f.connect(ctx)
	if err != nil {
		return fmt.Errorf("initial stream connect: %w", err)
	}

	f.wg.Add(2)
	go f.readLoop(ctx)
	go f.syncLoop(ctx)

	return nil
}

// Close tears down the connection and waits for loops to exit.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.conn != nil {
		_ = f.conn.Close()
	}
	f.mu.Unlock()

	f.wg.Wait()

	f.logger.Info("quote-stream-closed")

	return nil
}

// authMessage and subscribeMessage follow the Alpaca stream protocol.
type authMessage struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type subscribeMessage struct {
	Action string   `json:"action"`
	Quotes []string `json:"quotes"`
}

// streamQuote is one inbound quote tick.
type streamQuote struct {
	Type     string  `json:"T"`
	Symbol   string  `json:"S"`
	BidPrice float64 `json:"bp"`
	AskPrice float64 `json:"ap"`
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.cfg.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.cfg.URL, err)
	}

	err = conn.WriteJSON(authMessage{Action: "auth", Key: f.cfg.APIKey, Secret: f.cfg.APISecret})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("send auth: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.subscribed = make(map[string]bool)
	f.mu.Unlock()

	f.logger.Info("quote-stream-connected", zap.String("url", f.cfg.URL))

	return f.syncSubscriptions()
}

// readLoop consumes quote ticks and writes them through to the cache.
func (f *Feed) readLoop(ctx context.Context) {
	defer f.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			f.logger.Warn("stream-read-error", zap.Error(err))

			err = f.reconnect.run(ctx, f.connect)
			if err != nil {
				return
			}

			continue
		}

		f.handleMessage(raw)
	}
}

func (f *Feed) handleMessage(raw []byte) {
	// Messages arrive as arrays of typed events.
	var events []streamQuote
	err := json.Unmarshal(raw, &events)
	if err != nil {
		f.logger.Debug("stream-message-skipped", zap.Error(err))
		return
	}

	for _, ev := range events {
		if ev.Type != "q" || ev.Symbol == "" {
			continue
		}

		f.cache.Set(ev.Symbol, &types.Quote{
			Symbol:    ev.Symbol,
			Bid:       ev.BidPrice,
			Ask:       ev.AskPrice,
			Mark:      (ev.BidPrice + ev.AskPrice) / 2,
			FetchedAt: time.Now(),
		})
		MessagesTotal.Inc()
	}
}

// syncLoop diff-syncs subscriptions against the position book.
func (f *Feed) syncLoop(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := f.syncSubscriptions()
			if err != nil {
				f.logger.Warn("subscription-sync-failed", zap.Error(err))
			}
		}
	}
}

func (f *Feed) syncSubscriptions() error {
	symbols := f.book.Symbols()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		return fmt.Errorf("stream not connected")
	}

	var missing []string
	for _, s := range symbols {
		if !f.subscribed[s] {
			missing = append(missing, s)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	err := f.conn.WriteJSON(subscribeMessage{Action: "subscribe", Quotes: missing})
	if err != nil {
		return fmt.Errorf("subscribe %d symbols: %w", len(missing), err)
	}

	for _, s := range missing {
		f.subscribed[s] = true
	}

	SubscriptionsGauge.Set(float64(len(f.subscribed)))

	f.logger.Info("quotes-subscribed", zap.Strings("symbols", missing))

	return nil
}
