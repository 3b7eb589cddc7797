package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/quantary/optionsentry/internal/app"
	"github.com/quantary/optionsentry/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the position engine",
	Long: `Starts the engine, which will:
1. Serve the candidate and status API over HTTP
2. Gate incoming trade candidates through the risk governor
3. Size and execute approved entries
4. Poll every open position and execute the exit rule chain

Set ARMED=true and BROKER_MODE=alpaca to submit real orders; in every other
configuration orders go through the paper broker.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
