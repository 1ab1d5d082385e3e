package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/tickerlens/api"
	"github.com/seenimoa/tickerlens/internal/analyst"
	"github.com/seenimoa/tickerlens/internal/config"
	"github.com/seenimoa/tickerlens/internal/session"
	"github.com/seenimoa/tickerlens/pkg/utils"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Run a full AI analysis on a stock",
	Long: `Ask the model for a BUY / HOLD / SELL / AVOID call with fundamentals,
technicals, outlooks and sources. Bare tickers are treated as NSE (TCS → TCS.NS).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		sess, _, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		asJSON, _ := cmd.Flags().GetBool("json")
		symbol := analyst.NormalizeSymbol(args[0])
		if !asJSON {
			fmt.Printf("🔍 Analyzing %s\n", symbol)
			fmt.Printf("   Market Status: %s\n\n", utils.MarketStatus())
		}

		result, err := sess.Search(ctx, symbol)
		if err != nil {
			logger.Debug().Err(err).Msg("analysis failed")
			return session.ErrAnalysisFailed
		}
		// One-shot command: no price polling.
		sess.Clear()

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printReport(os.Stdout, result)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "print the raw analysis as JSON")
}

// --- Price Command ---

var priceCmd = &cobra.Command{
	Use:   "price [ticker]",
	Short: "Fetch the latest price once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		svc, err := newAnalyst(ctx)
		if err != nil {
			return err
		}
		symbol := analyst.NormalizeSymbol(args[0])
		p := svc.Price(ctx, symbol)
		if !p.Valid() {
			fmt.Printf("%s  price unavailable\n", symbol)
			return nil
		}
		fmt.Println(formatLivePrice(symbol, p))
		return nil
	},
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch [ticker]",
	Short: "Analyze a stock, then stream price updates until Ctrl-C",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		sess, _, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		events, unsubscribe := sess.Subscribe(16)
		defer unsubscribe()

		symbol := analyst.NormalizeSymbol(args[0])
		fmt.Printf("🔍 Analyzing %s\n\n", symbol)
		result, err := sess.Search(ctx, symbol)
		if err != nil {
			logger.Debug().Err(err).Msg("analysis failed")
			return session.ErrAnalysisFailed
		}
		printReport(os.Stdout, result)
		fmt.Printf("\n📡 Watching %s (market %s). Ctrl-C to stop.\n",
			result.Symbol, utils.MarketStatus())

		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nStopped.")
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				if e.Type == session.EventPriceUpdate && e.Price != nil {
					fmt.Printf("  %s  %s\n", utils.FormatDateTimeIST(e.At), formatLivePrice(e.Symbol, *e.Price))
				}
			}
		}
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		sess, svc, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		fmt.Printf("🌐 Starting TickerLens API server on %s\n", cfg.API.Addr())
		return api.NewServer(cfg, sess, svc, logger).Run(ctx, cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "override api.port")
}

// --- History Command ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or clear recent searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if wipe, _ := cmd.Flags().GetBool("clear"); wipe {
			if err := store.Save(ctx, nil); err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Println("History cleared.")
			return nil
		}

		h, err := store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		printHistory(os.Stdout, h)
		return nil
	},
}

func init() {
	historyCmd.Flags().Bool("clear", false, "delete all saved searches")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  TickerLens — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (IST):    %s\n", utils.FormatDateTimeIST(utils.NowIST()))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    Model:         %s (search grounding: %t)\n", cfg.LLM.Model, cfg.LLM.GoogleSearch)
		fmt.Printf("    Retries:       %d analysis / %d price, base %s\n",
			cfg.Analysis.MaxAttempts, cfg.Analysis.PriceMaxAttempts, cfg.Analysis.BaseDelay())
		fmt.Printf("    Polling:       %s open / %s closed\n",
			cfg.Polling.OpenInterval(), cfg.Polling.ClosedInterval())
		fmt.Printf("    News Context:  %t\n", cfg.Analysis.NewsContext)
		if cfg.History.Enabled {
			fmt.Printf("    History:       %s\n", cfg.History.Path)
		} else {
			fmt.Println("    History:       in-memory")
		}
		fmt.Printf("    API Server:    %s\n", cfg.API.Addr())
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if ping, _ := cmd.Flags().GetBool("ping"); ping {
			fmt.Println()
			svc, err := newAnalyst(cmd.Context())
			if err == nil {
				err = svc.Ping(cmd.Context())
			}
			if err != nil {
				fmt.Printf("  Upstream:      ❌ %v\n", err)
			} else {
				fmt.Println("  Upstream:      ✅ reachable")
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("ping", false, "check that the model endpoint answers")
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveToFile(config.Default(), path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		fmt.Println("Set TICKERLENS_LLM_GEMINI_KEY or GEMINI_API_KEY to supply the API key.")
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
