package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/joshharrison/siteplan/internal/config"
	"github.com/joshharrison/siteplan/internal/ingest"
	"github.com/joshharrison/siteplan/internal/logger"
	"github.com/joshharrison/siteplan/internal/metrics"
	"github.com/joshharrison/siteplan/internal/output"
	"github.com/joshharrison/siteplan/internal/reporter"
	"github.com/joshharrison/siteplan/internal/schedule"
	"github.com/joshharrison/siteplan/internal/server"
	"github.com/joshharrison/siteplan/internal/ui"
)

var (
	flagConfig       string
	flagJSON         bool
	flagOut          string
	flagTemplateDir  string
	flagWBS          string
	flagDPR          string
	flagProjectStart string
	flagToday        string
	flagPort         int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "siteplan",
		Short: "Critical path scheduling with progress forecasting",
		Long: `Siteplan reads a work breakdown structure (WBS) and daily progress reports
(DPR), computes the baseline critical path schedule, and forecasts finish
dates from the work remaining.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (YAML or JSON)")

	rootCmd.AddCommand(templatesCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, component string) logger.Logger {
	return logger.NewWithOptions(component, logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Write sample WBS and DPR CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ingest.WriteTemplates(flagTemplateDir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Green("✓"), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flagTemplateDir, "out", ".", "Output directory for templates")
	return cmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the updated schedule from a WBS and a DPR",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, "schedule")

			tasks, err := ingest.ReadWBS(flagWBS)
			if err != nil {
				return err
			}
			records, err := ingest.ReadDPR(flagDPR)
			if err != nil {
				return err
			}

			today := time.Now()
			if flagToday != "" {
				if today, err = ingest.ParseDate(flagToday); err != nil {
					return fmt.Errorf("--today %q: %w", flagToday, err)
				}
			}
			start := ingest.DefaultProjectStart(records, today)
			if flagProjectStart != "" {
				if start, err = ingest.ParseDate(flagProjectStart); err != nil {
					return fmt.Errorf("--project-start %q: %w", flagProjectStart, err)
				}
			}

			res, err := schedule.NewEngine(log, nil).Run(tasks, records, start)
			if err != nil {
				return fmt.Errorf("compute schedule: %w", err)
			}

			outDir := cfg.Schedule.OutDir
			if flagOut != "" {
				outDir = flagOut
			}
			manifest, err := output.NewWriter(outDir, log).WriteBundle(res, cfg.Schedule.LookaheadDays, today)
			if err != nil {
				return fmt.Errorf("write outputs: %w", err)
			}

			w := cmd.OutOrStdout()
			if flagJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(manifest)
			}

			ui.PrintBanner(w, "run "+res.RunID)
			fmt.Fprintln(w)
			reporter.PrintTable(w, res.Schedule, res.Waves)
			fmt.Fprint(w, reporter.Summary(res.Schedule))
			if n := len(res.Progress.Unmatched); n > 0 {
				fmt.Fprintf(w, "%s %d DPR task ids match no WBS task\n", ui.Yellow("!"), n)
			}
			fmt.Fprintf(w, "Outputs:         %s\n", ui.Dim(outDir))
			return nil
		},
	}
	cmd.Flags().StringVar(&flagWBS, "wbs", "", "WBS file (csv, xlsx, json, yaml)")
	cmd.Flags().StringVar(&flagDPR, "dpr", "", "DPR file (csv, xlsx, json, yaml)")
	cmd.Flags().StringVar(&flagProjectStart, "project-start", "", "Project start date (YYYY-MM-DD); defaults to the earliest DPR date")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output directory (overrides schedule.out_dir)")
	cmd.Flags().StringVar(&flagToday, "today", "", "Look-ahead start date (YYYY-MM-DD); defaults to today")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Print the bundle manifest as JSON")
	cmd.MarkFlagRequired("wbs")
	cmd.MarkFlagRequired("dpr")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scheduling API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, "server")

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			rec, err := metrics.NewRecorder(reg)
			if err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			opts := server.Opts{
				Engine:      schedule.NewEngine(newLogger(cfg, "engine"), rec),
				Port:        cfg.Server.Port,
				MaxUploadMB: cfg.Server.MaxUploadMB,
				Log:         log,
				Out:         cmd.OutOrStdout(),
			}
			if flagPort > 0 {
				opts.Port = flagPort
			}
			if cfg.Metrics.IsEnabled() {
				opts.MetricsPath = cfg.Metrics.Path
				opts.Gatherer = reg
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Start(ctx, opts)
		},
	}
	cmd.Flags().IntVar(&flagPort, "port", 0, "Listen port (overrides server.port)")
	return cmd
}
