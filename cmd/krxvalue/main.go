// krxvalue — S-RIM fair value estimates for KRX listed stocks.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/krxvalue/api"
	"github.com/seenimoa/krxvalue/internal/config"
	"github.com/seenimoa/krxvalue/internal/engine"
	"github.com/seenimoa/krxvalue/internal/logging"
	"github.com/seenimoa/krxvalue/internal/report"
	"github.com/seenimoa/krxvalue/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var (
	cfg        *config.Config
	configFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "krxvalue",
	Short: "krxvalue — S-RIM fair value estimates for KRX stocks",
	Long: `krxvalue fetches the financial statements of a KRX listed company from
WiseReport (falling back to Naver Finance), computes per-share metrics and
estimates a fair price with the simplified residual income model (S-RIM).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		return logging.Setup(cfg.Logging)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(financialsCmd)
	rootCmd.AddCommand(valueCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("krxvalue %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show market status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		src := cfg.Sources
		val := cfg.Valuation

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  krxvalue — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (KST):    %s\n", utils.FormatDateTimeKST(utils.NowKST()))
		fmt.Println()

		fmt.Println("  Sources:")
		wise := "disabled"
		if src.WiseReport.Enabled {
			wise = src.WiseReport.BaseURL
		}
		fmt.Printf("    WiseReport:    %s\n", wise)
		fmt.Printf("    Naver:         %s\n", src.Naver.BaseURL)
		fmt.Printf("    Rate limit:    %.1f/s (burst %d), timeout %s, cache %s\n",
			src.RateLimit, src.RateBurst, src.Timeout, src.CacheTTL)
		fmt.Println()

		fmt.Println("  Valuation:")
		fmt.Printf("    Required return: %g%%\n", val.RequiredReturn)
		fmt.Printf("    Average periods: %d\n", val.AveragePeriods)
		fmt.Printf("    Basis:           %s\n", val.Basis)
		fmt.Println()

		fmt.Printf("  API Server:    %s\n", cfg.API.Addr())
		if configFile != "" {
			fmt.Printf("  Config file:   %s\n", configFile)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Financials Command ---

var financialsCmd = &cobra.Command{
	Use:   "financials [ticker]",
	Short: "Show the resolved financial statements of a stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		series, err := engine.FromConfig(cfg).Financials(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return report.RenderFinancials(cmd.OutOrStdout(), series, format)
	},
}

func init() {
	financialsCmd.Flags().String("format", "text", "output format (text, markdown, json, yaml)")
}

// --- Value Command ---

var valueCmd = &cobra.Command{
	Use:   "value [ticker]",
	Short: "Estimate the S-RIM fair value of a stock",
	Long: `Estimate the fair value of a stock with the simplified residual income model:

  fair value = BPS + BPS × (ROE − K) / K

Two estimates are produced: one from the mean ROE of recent periods and one
from the latest period alone.

Examples:
  krxvalue value 005930
  krxvalue value 삼성전자 --rrr 10 --periods 5
  krxvalue value 000660 --basis quarterly --format html -o report.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := engine.FromConfig(cfg)
		opts, err := valuationFlags(cmd, eng.DefaultOptions())
		if err != nil {
			return err
		}
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		a, err := eng.Analyze(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		ropts := report.DefaultOptions()
		ropts.Charts, _ = cmd.Flags().GetBool("charts")

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			return report.Render(cmd.OutOrStdout(), a, format, ropts)
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		if err := report.Render(f, a, format, ropts); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", out)
		return nil
	},
}

func init() {
	addValuationFlags(valueCmd)
	valueCmd.Flags().String("format", "text", "output format (text, markdown, html, json, yaml)")
	valueCmd.Flags().StringP("output", "o", "", "write the report to a file instead of stdout")
	valueCmd.Flags().Bool("charts", true, "embed SVG charts in HTML reports")
}

// --- Batch Command ---

var batchCmd = &cobra.Command{
	Use:   "batch [tickers...]",
	Short: "Value several stocks and print a summary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := engine.FromConfig(cfg)
		opts, err := valuationFlags(cmd, eng.DefaultOptions())
		if err != nil {
			return err
		}
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		results, err := eng.AnalyzeBatch(cmd.Context(), args, opts)
		if err != nil {
			return err
		}

		entries := make([]report.BatchEntry, len(results))
		failed := 0
		for i, r := range results {
			entries[i] = report.BatchEntry{Ticker: r.Ticker, Analysis: r.Analysis, Error: r.Error}
			if r.Err != nil {
				failed++
			}
		}
		if err := report.RenderBatch(cmd.OutOrStdout(), entries, format); err != nil {
			return err
		}
		if failed == len(results) {
			return fmt.Errorf("all %d tickers failed", failed)
		}
		return nil
	},
}

func init() {
	addValuationFlags(batchCmd)
	batchCmd.Flags().String("format", "text", "output format (text, markdown, json, yaml)")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.API.Port = port
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		srv := api.NewServer(engine.FromConfig(cfg),
			api.WithVersion(version),
			api.WithConfigFile(configFile),
		)
		fmt.Printf("🌐 krxvalue API server on http://%s\n", cfg.API.Addr())
		return srv.ListenAndServe(cmd.Context(), cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
}
