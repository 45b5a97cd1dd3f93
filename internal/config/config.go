// Package config provides configuration management for the NHL picks application.
package config

import (
	"time"
	_ "time/tzdata" // schedule zones resolve on images without a zoneinfo database
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	DataSource DataSourceConfig `mapstructure:"data_source" validate:"required"`
	Features   FeaturesConfig   `mapstructure:"features" validate:"required"`
	Projection ProjectionConfig `mapstructure:"projection" validate:"required"`
	Odds       OddsConfig       `mapstructure:"odds" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	Report     ReportConfig     `mapstructure:"report" validate:"required"`
	Schedule   ScheduleConfig   `mapstructure:"schedule" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DataSourceConfig selects and configures where slates, logs and odds come from
type DataSourceConfig struct {
	Type   string       `mapstructure:"type" validate:"required,sourcetype"`
	CSVDir string       `mapstructure:"csv_dir"`
	Mock   MockConfig   `mapstructure:"mock"`
	NHLWeb NHLWebConfig `mapstructure:"nhl_web"`
}

// MockConfig shapes the synthetic league
type MockConfig struct {
	Seed           int64    `mapstructure:"seed"`
	Teams          []string `mapstructure:"teams" validate:"omitempty,min=2,dive,required"`
	PlayersPerTeam int      `mapstructure:"players_per_team" validate:"gte=0"`
	SeasonStart    string   `mapstructure:"season_start" validate:"omitempty,datetime=2006-01-02"`
	Books          []string `mapstructure:"books" validate:"omitempty,dive,required"`
	Margin         float64  `mapstructure:"margin" validate:"gte=0,lt=0.5"`
}

// NHLWebConfig configures the public ESPN and NHL web endpoints
type NHLWebConfig struct {
	BaseURL         string  `mapstructure:"base_url" validate:"omitempty,url"`
	ESPNURL         string  `mapstructure:"espn_url" validate:"omitempty,url"`
	RateLimit       float64 `mapstructure:"rate_limit" validate:"gte=0"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	MaxRetries      int     `mapstructure:"max_retries" validate:"gte=0"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// FeaturesConfig represents feature transform settings
type FeaturesConfig struct {
	DecayHalfLifeDays float64 `mapstructure:"decay_half_life_days" validate:"required,gt=0"`
	LookbackDays      int     `mapstructure:"lookback_days" validate:"gte=0"`
	Workers           int     `mapstructure:"workers" validate:"gte=0"`
}

// ProjectionConfig represents rate projector settings
type ProjectionConfig struct {
	CountModel        string             `mapstructure:"count_model" validate:"required,countmodel"`
	Dispersion        float64            `mapstructure:"dispersion" validate:"gte=0"`
	RateFloor         float64            `mapstructure:"rate_floor" validate:"gte=0"`
	AdjustmentFloor   float64            `mapstructure:"adjustment_floor" validate:"required,gt=0"`
	AdjustmentCeiling float64            `mapstructure:"adjustment_ceiling" validate:"required,gt=0"`
	HomeEdge          float64            `mapstructure:"home_edge" validate:"gte=0,lt=1"`
	LeagueTeamGoals   float64            `mapstructure:"league_team_goals" validate:"required,gt=0"`
	ShrinkageTau      float64            `mapstructure:"shrinkage_tau" validate:"gte=0"`
	Priors            map[string]float64 `mapstructure:"priors"`
}

// OddsConfig represents odds normalizer settings
type OddsConfig struct {
	StalenessMinutes int `mapstructure:"staleness_minutes" validate:"required,gt=0"`
	Workers          int `mapstructure:"workers" validate:"gte=0"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	StartDate           string   `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate             string   `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	Stats               []string `mapstructure:"stats" validate:"required,min=1,dive,statkind"`
	Bins                int      `mapstructure:"bins" validate:"required,gt=0"`
	MinRecords          int      `mapstructure:"min_records" validate:"gte=0"`
	ShotsLine           float64  `mapstructure:"shots_line" validate:"gte=0"`
	PointsLine          float64  `mapstructure:"points_line" validate:"gte=0"`
	MinEdge             float64  `mapstructure:"min_edge" validate:"gte=0,lt=1"`
	Stake               float64  `mapstructure:"stake" validate:"required,gt=0"`
	InitialBankroll     float64  `mapstructure:"initial_bankroll" validate:"required,gt=0"`
	BootstrapIterations int      `mapstructure:"bootstrap_iterations" validate:"gte=0"`
	ConfidenceLevel     float64  `mapstructure:"confidence_level" validate:"gte=0,lt=1"`
	Seed                int64    `mapstructure:"seed"`
	RollingWindowDays   int      `mapstructure:"rolling_window_days" validate:"gte=0"`
	RollingStepDays     int      `mapstructure:"rolling_step_days" validate:"gte=0"`
	OutputPath          string   `mapstructure:"output_path" validate:"required"`
}

// ReportConfig represents the published site settings
type ReportConfig struct {
	OutputDir string  `mapstructure:"output_dir" validate:"required"`
	TopN      int     `mapstructure:"top_n" validate:"required,gt=0"`
	SOGLine   float64 `mapstructure:"sog_line" validate:"gte=0"`
	SiteTitle string  `mapstructure:"site_title" validate:"required"`
}

// ScheduleConfig represents daily run scheduling
type ScheduleConfig struct {
	DailyCron    string `mapstructure:"daily_cron" validate:"required"`
	Timezone     string `mapstructure:"timezone" validate:"required"`
	RolloverHour int    `mapstructure:"rollover_hour" validate:"gte=0,lte=24"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Location resolves the schedule timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Staleness returns the odds staleness window as a duration
func (c *Config) Staleness() time.Duration {
	return time.Duration(c.Odds.StalenessMinutes) * time.Minute
}
