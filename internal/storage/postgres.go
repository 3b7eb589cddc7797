package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage opens a connection to the ledger database.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-ledger-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// AppendAction inserts one confirmed action into the ledger table.
func (p *PostgresStorage) AppendAction(ctx context.Context, rec *ActionRecord) error {
	query := `
		INSERT INTO position_actions (
			position_id, ticker, option_type, strike, expiration,
			action, contracts, price, realized_pnl, reason, occurred_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.PositionID,
		rec.Ticker,
		string(rec.OptionType),
		rec.Strike,
		rec.Expiration,
		rec.Action,
		rec.Contracts,
		rec.Price,
		rec.RealizedPnL,
		rec.Reason,
		rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}

	p.logger.Debug("action-recorded",
		zap.String("position-id", rec.PositionID),
		zap.String("action", rec.Action),
		zap.Int("contracts", rec.Contracts))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-ledger")
	return p.db.Close()
}
