package quotestream

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReconnectConfig holds the configuration for exponential backoff reconnection.
type ReconnectConfig struct {
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterPercent     float64 // 0.2 = 20%
}

// reconnector handles exponential backoff reconnection with jitter.
type reconnector struct {
	config         ReconnectConfig
	logger         *zap.Logger
	currentBackoff time.Duration
	mu             sync.Mutex
}

func newReconnector(cfg ReconnectConfig, logger *zap.Logger) *reconnector {
	return &reconnector{
		config:         cfg,
		logger:         logger,
		currentBackoff: cfg.InitialDelay,
	}
}

// run attempts to reconnect using the provided connect function, backing off
// exponentially between failures until the context is cancelled.
func (r *reconnector) run(ctx context.Context, connect func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		backoff := r.nextBackoff()

		r.logger.Info("stream-reconnecting", zap.Duration("backoff", backoff))
		ReconnectAttemptsTotal.Inc()

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		err := connect(ctx)
		if err == nil {
			r.reset()
			r.logger.Info("stream-reconnected")
			return nil
		}

		r.logger.Warn("stream-reconnect-failed", zap.Error(err))
		ReconnectFailuresTotal.Inc()

		r.incrementBackoff()
	}
}

func (r *reconnector) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.currentBackoff = r.config.InitialDelay
}

func (r *reconnector) nextBackoff() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	jitter := rand.Float64() * r.config.JitterPercent

	return time.Duration(float64(r.currentBackoff) * (1.0 + jitter))
}

func (r *reconnector) incrementBackoff() {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := time.Duration(float64(r.currentBackoff) * r.config.BackoffMultiplier)
	if next > r.config.MaxDelay {
		next = r.config.MaxDelay
	}

	r.currentBackoff = next
}
