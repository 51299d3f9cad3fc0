// rollup recomputes daily summaries for a date range. Used to backfill after
// imports or schema changes; the API's scheduler keeps recent days current.
// With --jobs it runs the API's summary jobs once instead, for deployments
// that drive rollups from an external cron.
//
//	rollup --from 2026-03-01 --to 2026-03-31 [--location <uuid>]
//	rollup --jobs
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/waitless/waitless-backend-go/internal/config"
	"github.com/waitless/waitless-backend-go/internal/pkg/cron"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
	"github.com/waitless/waitless-backend-go/internal/repository/postgresql"
	summaryService "github.com/waitless/waitless-backend-go/internal/service/summary"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		fromFlag, toFlag, locationFlag string
		jobs                           bool
	)

	today := time.Now().UTC().Format("2006-01-02")
	flagSet := pflag.NewFlagSet("rollup", pflag.ContinueOnError)
	flagSet.StringVar(&fromFlag, "from", today, "first service date (YYYY-MM-DD)")
	flagSet.StringVar(&toFlag, "to", "", "last service date (YYYY-MM-DD, default: --from)")
	flagSet.StringVar(&locationFlag, "location", "", "limit to one location ID")
	flagSet.BoolVar(&jobs, "jobs", false, "run the scheduled summary jobs once and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if jobs && (flagSet.Changed("from") || flagSet.Changed("to") || flagSet.Changed("location")) {
		return errors.New("--jobs cannot be combined with --from, --to or --location")
	}
	if toFlag == "" {
		toFlag = fromFlag
	}

	from, err := time.Parse("2006-01-02", fromFlag)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := time.Parse("2006-01-02", toFlag)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	var locationID *string
	if locationFlag != "" {
		if !validator.IsValidUUID(locationFlag) {
			return fmt.Errorf("invalid --location %q", locationFlag)
		}
		locationID = &locationFlag
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summaries := summaryService.NewSummaryService(
		postgresql.NewTransactor(db),
		postgresql.NewSummaryRepository(db),
		postgresql.NewLocationRepository(db),
	)

	start := time.Now()
	if jobs {
		scheduler := cron.NewScheduler()
		cron.NewSummaryJobs(summaries, cfg.Summary.Interval).RegisterJobs(scheduler)
		if err := scheduler.RunOnce(ctx); err != nil {
			return err
		}
		slog.Info("Rollup jobs complete", "jobs", scheduler.Jobs(), "duration", time.Since(start))
		return nil
	}

	rows, err := summaries.RecomputeRange(ctx, from, to, locationID)
	if err != nil {
		return err
	}
	slog.Info("Rollup complete", "from", fromFlag, "to", toFlag, "location_id", locationFlag, "rows", rows, "duration", time.Since(start))
	return nil
}
