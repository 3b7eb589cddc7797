package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing actions to the console.
// It is the default ledger for paper sessions.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a console-backed ledger.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-ledger-initialized")

	return &ConsoleStorage{logger: logger}
}

// AppendAction pretty-prints one action.
func (c *ConsoleStorage) AppendAction(_ context.Context, rec *ActionRecord) error {
	fmt.Println("────────────────────────────────────────────────────────────")
	fmt.Printf("ACTION    %s\n", rec.Action)
	fmt.Printf("Position  %s\n", rec.PositionID)
	fmt.Printf("Contract  %s %s $%.2f exp %s\n", rec.Ticker, rec.OptionType, rec.Strike, rec.Expiration)
	fmt.Printf("Fill      %d contracts @ $%.2f\n", rec.Contracts, rec.Price)
	if rec.RealizedPnL != 0 {
		fmt.Printf("P&L       $%.2f\n", rec.RealizedPnL)
	}
	if rec.Reason != "" {
		fmt.Printf("Reason    %s\n", rec.Reason)
	}
	fmt.Printf("Time      %s\n", rec.OccurredAt.Format("2006-01-02 15:04:05"))
	fmt.Println("────────────────────────────────────────────────────────────")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-ledger")
	return nil
}
