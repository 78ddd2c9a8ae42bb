package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/liamcoop/prrules/internal/catalog"
	"github.com/liamcoop/prrules/internal/config"
	"github.com/liamcoop/prrules/internal/logger"
	"github.com/liamcoop/prrules/report"
	"github.com/liamcoop/prrules/rules"
)

// Apply copies the non-empty overrides onto cfg
func (ra *RunArgs) Apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Rules.Path, ra.RulesPath)
	set(&cfg.Records.Path, ra.RecordsPath)
	set(&cfg.Report.Path, ra.ReportPath)
	set(&cfg.Rules.Source, strings.ToLower(ra.RuleSource))
	set(&cfg.Database.URL, ra.DatabaseURL)
	set(&cfg.Log.Level, ra.LogLevel)
	set(&cfg.Log.Format, ra.LogFormat)
}

// Run loads the catalog and records, matches them, writes the report and
// prints the summary to the command's stdout
func Run(cmd *cobra.Command, args *RunArgs) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return err
	}
	args.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	err = logger.Setup(ctx, logger.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OTEL:        cfg.Log.OTEL,
		ServiceName: cfg.Log.ServiceName,
		Output:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	// flushes the exporter after the failure below has been logged
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = logger.Shutdown(shutdownCtx)
	}()

	log := logger.With("run_id", uuid.NewString())
	if err := apply(cfg, log, cmd.OutOrStdout()); err != nil {
		log.Error("Rule application failed", "error", err)
		logger.TotalErrors.Add(1)
		return err
	}
	return nil
}

func apply(cfg *config.Config, log *slog.Logger, out io.Writer) error {
	start := time.Now()

	store, closeStore, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	defer closeStore()

	ruleCatalog, err := store.List()
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	log.Info("Rule catalog loaded", "source", cfg.Rules.Source, "rules", len(ruleCatalog))

	records, err := rules.LoadRecordsFile(cfg.Records.Path)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	log.Info("Records loaded", "path", cfg.Records.Path, "records", len(records))

	engine, err := rules.NewEngine()
	if err != nil {
		return err
	}
	run := engine.MatchAll(records, ruleCatalog)

	if err := report.WriteReport(cfg.Report.Path, run.Results); err != nil {
		return err
	}

	reportPath := cfg.Report.Path
	if abs, err := filepath.Abs(reportPath); err == nil {
		reportPath = abs
	}

	log.Info("Rule application finished",
		"checks", run.Checks,
		"automatable_matches", run.AutomatableMatches,
		"report", reportPath,
		"duration", time.Since(start).String(),
	)

	return report.Summarize(run, reportPath).Print(out)
}
