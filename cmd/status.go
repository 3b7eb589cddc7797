package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/quantary/optionsentry/internal/risk"
	"github.com/quantary/optionsentry/pkg/httpserver"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show governor state and open positions of a running engine",
	Long: `Queries a running engine's status API and prints the risk governor
state followed by the open position table.

Examples:
  # Query the default local engine
  optionsentry status

  # Query a remote engine
  optionsentry status --addr http://trading-host:8080

  # Raw JSON output
  optionsentry status --format json`,
	RunE: runStatus,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	statusAddr   string
	statusFormat string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "Engine base URL")
	statusCmd.Flags().StringVar(&statusFormat, "format", "table", "Output format: table, json")
}

func runStatus(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	client := &http.Client{Timeout: 5 * time.Second}

	var governor risk.Status
	err := fetchJSON(client, statusAddr+"/api/governor", &governor)
	if err != nil {
		return fmt.Errorf("fetch governor status: %w", err)
	}

	var positions httpserver.PositionsResponse
	err = fetchJSON(client, statusAddr+"/api/positions", &positions)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	if statusFormat == "json" {
		return printStatusJSON(governor, positions)
	}

	printGovernorTable(governor)
	printPositionsTable(positions)

	return nil
}

func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func printStatusJSON(governor risk.Status, positions httpserver.PositionsResponse) error {
	payload := struct {
		Governor  risk.Status                  `json:"governor"`
		Positions httpserver.PositionsResponse `json:"positions"`
	}{Governor: governor, Positions: positions}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(payload)
}

func printGovernorTable(s risk.Status) {
	fmt.Println("GOVERNOR")

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Session\t%s\n", s.SessionDate)
	fmt.Fprintf(w, "Armed\t%v\n", s.Armed)
	fmt.Fprintf(w, "Kill switch\t%v\n", s.KillSwitchActive)
	if s.LockoutActive {
		fmt.Fprintf(w, "Lockout\tACTIVE (%s)\n", s.LockoutReason)
	} else {
		fmt.Fprintf(w, "Lockout\tinactive\n")
	}
	fmt.Fprintf(w, "Trades today\t%d/%d\n", s.TradesOpenedToday, s.MaxTradesPerDay)
	fmt.Fprintf(w, "Realized P&L today\t$%.2f\n", s.RealizedPnLToday)
	fmt.Fprintf(w, "Daily loss limit\t$%.2f\n", s.DailyLossLimit)
	_ = w.Flush()

	fmt.Println()
}

func printPositionsTable(resp httpserver.PositionsResponse) {
	fmt.Printf("POSITIONS (%d)\n", resp.Count)

	if resp.Count == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tHELD\tENTRY\tCURRENT\tHIGH\tPNL%\tTRIM1\tTRIM2\tREALIZED")

	for _, p := range resp.Positions {
		fmt.Fprintf(w, "%s\t%d/%d\t%.2f\t%.2f\t%.2f\t%+.1f%%\t%v\t%v\t$%.2f\n",
			p.Symbol,
			p.ContractsHeld, p.ContractsAtOpen,
			p.EntryPrice, p.CurrentPrice, p.HighWaterMark,
			p.UnrealizedPnLPct*100,
			p.Trim1Done, p.Trim2Done,
			p.RealizedPnL)
	}

	_ = w.Flush()
}
