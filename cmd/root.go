package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "optionsentry",
	Short: "Options position lifecycle and exit engine",
	Long: `Options position lifecycle and exit engine.

The engine accepts graded trade candidates over HTTP, gates them through the
risk governor, sizes and executes entries, and then monitors every open
position on a fixed interval, applying a strict-priority exit rule chain
(hard stop, expiration force-close, trailing stops, profit trims).

All orders are simulated through the paper broker unless ARMED=true and a
live broker is configured.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
