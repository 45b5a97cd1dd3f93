// Package main provides the nhl-picks command line: daily projections,
// backtests and the scheduled daily runner.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/nhl-picks/internal/config"
	"github.com/yourusername/nhl-picks/internal/datasource"
	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/metrics"
	"github.com/yourusername/nhl-picks/internal/odds"
	"github.com/yourusername/nhl-picks/internal/projection"
	"github.com/yourusername/nhl-picks/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	rootCmd.AddCommand(runDailyCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:           "nhl-picks",
	Short:         "NHL player projections and backtests",
	Long:          `Projects player shots, points and first goalscorer probabilities for a slate, prices them against the books and evaluates the model on history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		metrics.InitRegistry()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nhl-picks %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.ReloadFromEnv(loaded); err != nil {
		return err
	}
	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded
	appLog = logger.NewLoggerForEnvironment(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"config":      configFile,
		"environment": cfg.App.Environment,
		"source":      cfg.DataSource.Type,
	}).Debug("Configuration loaded")
	return nil
}

func newSource() (datasource.DataSource, error) {
	return datasource.NewFactory(cfg, appLog).New()
}

func newProjector() (*projection.Projector, error) {
	projCfg, err := service.ProjectionConfig(cfg.Projection)
	if err != nil {
		return nil, err
	}
	return projection.NewProjector(projCfg, appLog)
}

func newDailyService() (*service.DailyService, error) {
	source, err := newSource()
	if err != nil {
		return nil, fmt.Errorf("failed to create data source: %w", err)
	}
	projector, err := newProjector()
	if err != nil {
		return nil, fmt.Errorf("failed to create projector: %w", err)
	}
	normalizer := odds.NewNormalizer(service.OddsConfig(cfg), appLog)
	return service.NewDailyService(source, service.DailyConfigFrom(cfg), projector, normalizer, appLog)
}

// parseDate reads an optional YYYY-MM-DD flag value
func parseDate(flag, value string) (time.Time, bool, error) {
	if value == "" {
		return time.Time{}, false, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", flag, value)
	}
	return d, true, nil
}
