package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "NHL_PICKS"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// ReloadFromEnv replaces cfg with the file named by NHL_PICKS_CONFIG_PATH, if set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "nhl-picks")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("data_source.type", "mock")
	v.SetDefault("data_source.mock.seed", 42)
	v.SetDefault("data_source.mock.players_per_team", 6)
	v.SetDefault("data_source.mock.season_start", "2024-10-08")
	v.SetDefault("data_source.mock.books", []string{"book_a", "book_b"})
	v.SetDefault("data_source.mock.margin", 0.05)
	v.SetDefault("data_source.nhl_web.base_url", "https://api-web.nhle.com/v1")
	v.SetDefault("data_source.nhl_web.espn_url", "https://site.api.espn.com/apis/site/v2/sports/hockey/nhl")
	v.SetDefault("data_source.nhl_web.rate_limit", 5)
	v.SetDefault("data_source.nhl_web.timeout_seconds", 15)
	v.SetDefault("data_source.nhl_web.max_retries", 3)
	v.SetDefault("data_source.nhl_web.cache_ttl_seconds", 600)

	v.SetDefault("features.decay_half_life_days", 14)
	v.SetDefault("features.lookback_days", 120)
	v.SetDefault("features.workers", 4)

	v.SetDefault("projection.count_model", "poisson")
	v.SetDefault("projection.dispersion", 12)
	v.SetDefault("projection.rate_floor", 1e-6)
	v.SetDefault("projection.adjustment_floor", 0.85)
	v.SetDefault("projection.adjustment_ceiling", 1.15)
	v.SetDefault("projection.home_edge", 0.02)
	v.SetDefault("projection.league_team_goals", 3.0)

	v.SetDefault("odds.staleness_minutes", 90)
	v.SetDefault("odds.workers", 4)

	v.SetDefault("backtest.start_date", "2024-11-01")
	v.SetDefault("backtest.end_date", "2024-12-31")
	v.SetDefault("backtest.stats", []string{"shots", "points", "first_goal"})
	v.SetDefault("backtest.bins", 10)
	v.SetDefault("backtest.min_records", 20)
	v.SetDefault("backtest.shots_line", 2.5)
	v.SetDefault("backtest.points_line", 0.5)
	v.SetDefault("backtest.min_edge", 0.03)
	v.SetDefault("backtest.stake", 10)
	v.SetDefault("backtest.initial_bankroll", 1000)
	v.SetDefault("backtest.bootstrap_iterations", 500)
	v.SetDefault("backtest.confidence_level", 0.95)
	v.SetDefault("backtest.rolling_window_days", 14)
	v.SetDefault("backtest.rolling_step_days", 7)
	v.SetDefault("backtest.output_path", "output/backtest")

	v.SetDefault("report.output_dir", "site")
	v.SetDefault("report.top_n", 10)
	v.SetDefault("report.sog_line", 2.5)
	v.SetDefault("report.site_title", "NHL Player Picks")

	v.SetDefault("schedule.daily_cron", "0 10 * * *")
	v.SetDefault("schedule.timezone", "America/Chicago")
	v.SetDefault("schedule.rollover_hour", 23)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
