// Command oracle runs the tarot knowledge-graph ingestion pipeline.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mysticarcana/dataoracle"
)

var (
	configPath string
	dbPath     string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:           "oracle",
		Short:         "Tarot knowledge-graph ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			switch logLevel {
			case "debug":
				level = slog.LevelDebug
			case "warn":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite database (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(runCmd(), sourcesCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (dataoracle.Config, error) {
	cfg := dataoracle.DefaultConfig()
	if configPath != "" {
		loaded, err := dataoracle.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if v := os.Getenv("DATAORACLE_DB"); v != "" && cfg.DBPath == "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("DATAORACLE_CURATED_DIR"); v != "" && cfg.CuratedDir == "" {
		cfg.CuratedDir = v
	}
	return cfg, nil
}

func runCmd() *cobra.Command {
	var (
		sources      []string
		cards        []string
		maxCards     int
		delay        time.Duration
		timeout      time.Duration
		skipExisting bool
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ingestion pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if delay > 0 {
				cfg.RateLimitDelay = dataoracle.Duration(delay)
			}
			if timeout > 0 {
				cfg.RunDeadline = dataoracle.Duration(timeout)
			}

			engine, err := dataoracle.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := engine.Initialize(ctx); err != nil {
				return err
			}
			defer engine.Close()

			metrics, err := engine.Run(ctx, dataoracle.RunOptions{
				Sources:      sources,
				Cards:        cards,
				MaxCards:     maxCards,
				SkipExisting: skipExisting,
				DryRun:       dryRun,
			})
			if err != nil {
				return err
			}
			if !metrics.Succeeded() {
				return fmt.Errorf("run %s finished in state %s with %d sources processed",
					metrics.RunID, metrics.State, metrics.SourcesProcessed)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sources, "sources", nil, "only ingest the named sources")
	cmd.Flags().StringSliceVar(&cards, "cards", nil, "only ingest the named cards")
	cmd.Flags().IntVar(&maxCards, "max-cards", 0, "cap targets per source (0 = no cap)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "override per-origin request delay")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "run-wide deadline (0 = none)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip cards already stored")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list planned targets without fetching or writing")
	return cmd
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured knowledge sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, spec := range dataoracle.DefaultSources() {
				src := spec.Source
				fmt.Fprintf(cmd.OutOrStdout(),
					"%-30s kind=%-10s authority=%2d reliability=%.1f access=%s targets=%d\n",
					src.Name, src.Kind, src.AuthorityLevel, src.ReliabilityScore,
					src.AccessMethod, len(spec.CardURLs))
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show knowledge-graph table counts and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, err := dataoracle.New(cfg)
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := engine.Initialize(ctx); err != nil {
				return err
			}
			defer engine.Close()

			counts, err := engine.Store().Counts(ctx)
			if err != nil {
				return err
			}
			for _, table := range []string{"sources", "concepts", "interpretations", "relationships", "syntheses", "lineage"} {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %d\n", table, counts[table])
			}

			runs, err := engine.Store().RecentRuns(ctx, 5)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(),
					"run %s state=%s sources=%d concepts=%d errors=%d quality=%.2f duration=%dms\n",
					r.RunID, r.State, r.SourcesProcessed, r.ConceptsCreated,
					r.ErrorCount, r.AverageQuality, r.DurationMS)
			}
			return nil
		},
	}
}
