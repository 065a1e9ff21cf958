package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ATHWatch/internal/config"
	"ATHWatch/internal/model"
	"ATHWatch/internal/notifier"
	"ATHWatch/internal/scheduler"
	"ATHWatch/internal/server"
)

var (
	version = "dev"
	commit  = "none"

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "athwatch",
	Short: "ETH all-time high in today's money",
	Long: `athwatch finds ETH's nominal all-time high against USD and EUR, restates it
in present purchasing power using U.S. CPI-U and euro-area HICP, and reports how
far the live spot price is from that real benchmark.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("[WARN] load .env: %v", err)
		}

		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = "configs/config.yaml"
			if v := os.Getenv("CONFIG_PATH"); v != "" {
				path = v
			}
		}
		var err error
		if cfg, err = config.Load(path); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: configs/config.yaml or $CONFIG_PATH)")

	metricsCmd.Flags().String("as-of", "", "compute as of this day (YYYY-MM-DD), default today")
	metricsCmd.Flags().Bool("json", false, "print the result as JSON")
	historyCmd.Flags().Int("limit", 10, "number of snapshots to show")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(runCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("athwatch %s (commit %s)\n", version, commit)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute the inflation-adjusted ATH once and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		var asOf civil.Date
		if v, _ := cmd.Flags().GetString("as-of"); v != "" {
			d, err := civil.ParseDate(v)
			if err != nil {
				return fmt.Errorf("--as-of: %w", err)
			}
			asOf = d
		}

		agg, err := newAggregator(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m, err := agg.GetMetrics(ctx, asOf)
		if err != nil {
			return err
		}

		rec := newRecorder(cfg)
		defer rec.Close()
		if err := rec.RecordMetrics(m); err != nil {
			log.Printf("[WARN] record metrics: %v", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		}
		fmt.Print(notifier.FormatSummary(m))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently recorded snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		rec := newRecorder(cfg)
		defer rec.Close()

		snaps, err := rec.Recent(limit)
		if err != nil {
			return err
		}
		results := make([]*model.MetricsResult, 0, len(snaps))
		for _, s := range snaps {
			results = append(results, s.Metrics)
		}
		fmt.Println(notifier.FormatHistoryText(results))
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler, Telegram bot and HTTP endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Println("[INFO] athwatch starting...")

		agg, err := newAggregator(cfg)
		if err != nil {
			return err
		}
		rec := newRecorder(cfg)
		defer rec.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var tn *notifier.TelegramNotifier
		var n notifier.Notifier = notifier.NoopNotifier{}
		if err := cfg.ValidateNotifier(); err != nil {
			log.Printf("[WARN] telegram disabled: %v", err)
		} else if tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, ""); err != nil {
			log.Printf("[WARN] telegram disabled: %v", err)
		} else {
			n = tn
		}

		sched := scheduler.NewScheduler(ctx, agg, n, rec)
		if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.ReportCron); err != nil {
			return fmt.Errorf("register cron tasks: %w", err)
		}
		sched.Start()
		defer sched.Stop()

		if tn != nil {
			go tn.StartPolling(ctx, sched.HandleCommand)
			log.Println("[INFO] Telegram polling started")
		}

		if os.Getenv("RUN_ON_START") == "true" {
			log.Println("[INFO] RUN_ON_START enabled, executing refresh now")
			go sched.RunRefreshNow()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.New(agg, rec).Run(gctx, cfg.Server.Addr)
		})

		log.Println("[INFO] athwatch is running. Press Ctrl+C to stop.")
		err = g.Wait()
		log.Println("[INFO] shutdown signal received, stopping...")
		return err
	},
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	start := time.Now()
	if err := rootCmd.Execute(); err != nil {
		log.Printf("[FATAL] %v (after %s)", err, time.Since(start).Round(time.Millisecond))
		os.Exit(1)
	}
}
