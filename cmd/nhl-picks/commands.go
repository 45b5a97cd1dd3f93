package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/nhl-picks/internal/backtest"
	"github.com/yourusername/nhl-picks/internal/health"
	"github.com/yourusername/nhl-picks/internal/metrics"
	"github.com/yourusername/nhl-picks/internal/report"
	"github.com/yourusername/nhl-picks/internal/scheduler"
	"github.com/yourusername/nhl-picks/internal/service"
)

var (
	dailyDate string
	dailyOut  string

	backtestStart string
	backtestEnd   string
	backtestOut   string

	scheduleRunNow bool
)

func init() {
	runDailyCmd.Flags().StringVar(&dailyDate, "date", "", "Slate date (YYYY-MM-DD); defaults to today, or tomorrow after the rollover hour")
	runDailyCmd.Flags().StringVar(&dailyOut, "out", "", "Output directory for picks.json and index.html")

	backtestCmd.Flags().StringVar(&backtestStart, "start", "", "Override start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestEnd, "end", "", "Override end date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestOut, "out", "", "Output directory for backtest reports")

	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "Run the daily job once before waiting for the schedule")
}

func siteOptions() report.Options {
	return report.Options{
		Title:   cfg.Report.SiteTitle,
		TopN:    cfg.Report.TopN,
		SOGLine: cfg.Report.SOGLine,
	}
}

func slateDateAt(now time.Time) time.Time {
	return service.ChooseSlateDate(now, cfg.Location(), cfg.Schedule.RolloverHour)
}

var runDailyCmd = &cobra.Command{
	Use:   "run-daily",
	Short: "Project one slate and publish the picks site",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, ok, err := parseDate("date", dailyDate)
		if err != nil {
			return err
		}
		if !ok {
			date = slateDateAt(time.Now())
		}
		out := dailyOut
		if out == "" {
			out = cfg.Report.OutputDir
		}

		svc, err := newDailyService()
		if err != nil {
			return err
		}
		res, err := svc.RunDaily(cmd.Context(), date)
		if err != nil {
			return fmt.Errorf("daily run failed: %w", err)
		}

		paths, err := report.WriteSite(out, res, siteOptions())
		if err != nil {
			return err
		}
		appLog.WithFields(logrus.Fields{
			"slate_date": res.SlateDate.Format(time.DateOnly),
			"degraded":   res.Degraded,
			"files":      paths,
		}).Info("Site published")
		fmt.Println(res.Notice)
		fmt.Println(res.Stats.String())
		return nil
	},
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay history and evaluate projection calibration",
	RunE: func(cmd *cobra.Command, args []string) error {
		btCfg, err := backtest.FromConfig(&cfg.Backtest, &cfg.Features)
		if err != nil {
			return fmt.Errorf("invalid backtest config: %w", err)
		}
		if d, ok, err := parseDate("start", backtestStart); err != nil {
			return err
		} else if ok {
			btCfg.StartDate = d
		}
		if d, ok, err := parseDate("end", backtestEnd); err != nil {
			return err
		} else if ok {
			btCfg.EndDate = d
		}
		if backtestOut != "" {
			btCfg.OutputPath = backtestOut
		}

		source, err := newSource()
		if err != nil {
			return fmt.Errorf("failed to create data source: %w", err)
		}
		projector, err := newProjector()
		if err != nil {
			return fmt.Errorf("failed to create projector: %w", err)
		}
		engine, err := backtest.NewEngine(btCfg, projector, appLog)
		if err != nil {
			return fmt.Errorf("failed to create engine: %w", err)
		}
		svc, err := service.NewBacktestService(source, engine, service.OddsConfig(cfg), appLog)
		if err != nil {
			return err
		}

		result, err := svc.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("backtest failed: %w", err)
		}
		paths, err := backtest.WriteReports(result, btCfg.OutputPath)
		if err != nil {
			return err
		}
		appLog.WithField("files", paths).Info("Backtest reports written")
		fmt.Println(backtest.GenerateConsoleReport(result))
		return nil
	},
}

// outputDirCheck reports not ready when the site directory is missing
type outputDirCheck struct {
	dir string
}

func (c outputDirCheck) Name() string { return "output_dir" }

func (c outputDirCheck) Check(context.Context) error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.dir)
	}
	return nil
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily job on its cron schedule with health and metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newDailyService()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hcfg := health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
			Checkers:    []health.Checker{outputDirCheck{dir: cfg.Report.OutputDir}},
			Logger:      appLog,
		}
		if cfg.Metrics.Enabled {
			hcfg.Metrics = metrics.Handler()
		}
		hs := health.NewServer(hcfg)
		if err := hs.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}

		job := func(ctx context.Context, date time.Time) error {
			res, err := svc.RunDaily(ctx, date)
			if err != nil {
				return err
			}
			if _, err := report.WriteSite(cfg.Report.OutputDir, res, siteOptions()); err != nil {
				return err
			}
			if !res.Degraded {
				hs.MarkRun(res.GeneratedAt)
			}
			appLog.WithField("stats", res.Stats.String()).Info(res.Notice)
			return nil
		}

		sched := scheduler.NewScheduler(cfg.Location(), slateDateAt, appLog)
		if _, err := sched.ScheduleDaily(cfg.Schedule.DailyCron, "daily_run", job); err != nil {
			return err
		}
		if scheduleRunNow {
			if err := sched.RunNow("daily_run", job); err != nil {
				appLog.WithError(err).Error("Initial daily run failed")
			}
		}
		if err := sched.Start(); err != nil {
			return err
		}
		appLog.WithFields(logrus.Fields{
			"cron":     cfg.Schedule.DailyCron,
			"timezone": cfg.Schedule.Timezone,
			"next_run": sched.GetNextRun().Format(time.RFC3339),
		}).Info("Scheduler running")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		appLog.WithField("signal", sig).Info("Shutdown signal received")

		cancel()
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Error during scheduler shutdown")
		}
		appLog.Info("nhl-picks scheduler shut down")
		return nil
	},
}
