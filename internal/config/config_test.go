package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

const (
	validConfigPath              = "testdata/valid_config.yaml"
	expansionConfigPath          = "testdata/expansion_config.yaml"
	expansionConfigMissingPath   = "testdata/expansion_config_missing.yaml"
	malformedConfigPath          = "testdata/malformed_config.yaml"
	nonexistentConfigPath        = "testdata/nonexistent_config.yaml"
	expectedNoErrorLoadingConfig = "expected no error loading config, got %v"
	expectedNoErrorMsg           = "expected no error, got %v"
	expectedNonNilConfig         = "expected non-nil config"
	nhlPicksName                 = "nhl-picks"
	developmentEnv               = "development"
	invalidEnv                   = "invalid"
	testAppName                  = "test-app"
	testCSVDir                   = "TEST_CSV_DIR"
	testMissingVar               = "TEST_MISSING_VAR"
	expandedCSVDir               = "/data/nhl"
)

func loadValid(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}
	return cfg
}

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg == nil {
		t.Fatal(expectedNonNilConfig)
	}

	if cfg.App.Name != nhlPicksName {
		t.Errorf("expected app name '%s', got '%s'", nhlPicksName, cfg.App.Name)
	}

	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}

	if cfg.DataSource.Mock.Seed != 7 {
		t.Errorf("expected mock seed 7, got %d", cfg.DataSource.Mock.Seed)
	}

	if len(cfg.DataSource.Mock.Teams) != 4 {
		t.Errorf("expected 4 mock teams, got %d", len(cfg.DataSource.Mock.Teams))
	}

	if cfg.Features.DecayHalfLifeDays != 14 {
		t.Errorf("expected half-life 14, got %v", cfg.Features.DecayHalfLifeDays)
	}

	if cfg.Projection.Priors["shots"] != 7.5 {
		t.Errorf("expected shots prior 7.5, got %v", cfg.Projection.Priors["shots"])
	}

	if len(cfg.Backtest.Stats) != 3 || cfg.Backtest.Stats[2] != "first_goal" {
		t.Errorf("unexpected backtest stats %v", cfg.Backtest.Stats)
	}

	if cfg.Staleness() != 90*time.Minute {
		t.Errorf("expected staleness 90m, got %v", cfg.Staleness())
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load(nonexistentConfigPath)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	_, err := Load(malformedConfigPath)
	if err == nil {
		t.Fatal("expected error for malformed config file")
	}
	if !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("NHL_PICKS_APP_NAME", testAppName)
	t.Setenv("NHL_PICKS_REPORT_TOP_N", "25")

	cfg := loadValid(t)

	if cfg.App.Name != testAppName {
		t.Errorf("expected app name '%s' from environment, got '%s'", testAppName, cfg.App.Name)
	}
	if cfg.Report.TopN != 25 {
		t.Errorf("expected top_n 25 from environment, got %d", cfg.Report.TopN)
	}
}

// TestLoadWithDefaultsNoFile falls back to defaults when the file is missing
func TestLoadWithDefaultsNoFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.DataSource.Type != "mock" {
		t.Errorf("expected default data source 'mock', got '%s'", cfg.DataSource.Type)
	}
	if cfg.Projection.CountModel != "poisson" {
		t.Errorf("expected default count model 'poisson', got '%s'", cfg.Projection.CountModel)
	}
	if cfg.Schedule.RolloverHour != 23 {
		t.Errorf("expected default rollover hour 23, got %d", cfg.Schedule.RolloverHour)
	}
	if len(cfg.Backtest.Stats) != 3 {
		t.Errorf("expected default backtest stats, got %v", cfg.Backtest.Stats)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

// TestLoadWithDefaultsFileOverrides keeps file values over defaults
func TestLoadWithDefaultsFileOverrides(t *testing.T) {
	cfg, err := LoadWithDefaults(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if cfg.DataSource.Mock.PlayersPerTeam != 4 {
		t.Errorf("expected players_per_team 4 from file, got %d", cfg.DataSource.Mock.PlayersPerTeam)
	}
	if cfg.Backtest.Seed != 11 {
		t.Errorf("expected seed 11 from file, got %d", cfg.Backtest.Seed)
	}
}

// TestValidateSuccess tests validation of a valid configuration
func TestValidateSuccess(t *testing.T) {
	cfg := loadValid(t)

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

func TestValidateFieldRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "invalid environment",
			mutate:  func(c *Config) { c.App.Environment = invalidEnv },
			wantMsg: "development, staging, production",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.App.LogLevel = "verbose" },
			wantMsg: "debug, info, warn, error",
		},
		{
			name:    "invalid count model",
			mutate:  func(c *Config) { c.Projection.CountModel = "gamma" },
			wantMsg: "poisson, negative_binomial",
		},
		{
			name:    "invalid source type",
			mutate:  func(c *Config) { c.DataSource.Type = "ftp" },
			wantMsg: "mock, csv, nhl_web",
		},
		{
			name:    "unknown stat kind",
			mutate:  func(c *Config) { c.Backtest.Stats = []string{"shots", "hits"} },
			wantMsg: "unknown stat kind",
		},
		{
			name:    "bad date format",
			mutate:  func(c *Config) { c.Backtest.StartDate = "11/01/2024" },
			wantMsg: "YYYY-MM-DD",
		},
		{
			name:    "non-positive half-life",
			mutate:  func(c *Config) { c.Features.DecayHalfLifeDays = -1 },
			wantMsg: "DecayHalfLifeDays",
		},
		{
			name:    "missing site title",
			mutate:  func(c *Config) { c.Report.SiteTitle = "" },
			wantMsg: "SiteTitle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadValid(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateCrossField(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name: "start after end",
			mutate: func(c *Config) {
				c.Backtest.StartDate = "2025-01-10"
				c.Backtest.EndDate = "2025-01-01"
			},
			wantMsg: "start_date must not be after end_date",
		},
		{
			name: "adjustment bounds inverted",
			mutate: func(c *Config) {
				c.Projection.AdjustmentFloor = 1.0
				c.Projection.AdjustmentCeiling = 1.0
			},
			wantMsg: "adjustment_floor must be below adjustment_ceiling",
		},
		{
			name:    "adjustment bounds exclude one",
			mutate:  func(c *Config) { c.Projection.AdjustmentFloor = 1.05 },
			wantMsg: "bracket 1.0",
		},
		{
			name: "negative binomial without dispersion",
			mutate: func(c *Config) {
				c.Projection.CountModel = "negative_binomial"
				c.Projection.Dispersion = 0
			},
			wantMsg: "positive dispersion",
		},
		{
			name:    "csv without directory",
			mutate:  func(c *Config) { c.DataSource.Type = "csv" },
			wantMsg: "csv_dir is required",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" },
			wantMsg: "invalid schedule timezone",
		},
		{
			name:    "bad cron spec",
			mutate:  func(c *Config) { c.Schedule.DailyCron = "every morning" },
			wantMsg: "invalid schedule daily_cron",
		},
		{
			name:    "unknown prior",
			mutate:  func(c *Config) { c.Projection.Priors["hits"] = 2 },
			wantMsg: "projection priors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadValid(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateEnvironmentRules(t *testing.T) {
	cfg := loadValid(t)
	if err := ValidateEnvironment(cfg); err != nil {
		t.Fatalf("expected development config to pass, got %v", err)
	}

	cfg.App.Environment = "production"
	if err := ValidateEnvironment(cfg); err == nil {
		t.Fatal("expected production with mock source to fail")
	}

	cfg.DataSource.Type = "nhl_web"
	if err := ValidateEnvironment(cfg); err != nil {
		t.Fatalf("expected production with nhl_web to pass, got %v", err)
	}
}

// TestIsDevelopment tests environment check function
func TestIsDevelopment(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: developmentEnv},
	}

	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return true")
	}

	if cfg.IsProduction() {
		t.Error("expected IsProduction() to return false")
	}
}

// TestIsProduction tests production environment check
func TestIsProduction(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "production"},
	}

	if !cfg.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}

	if cfg.IsStaging() {
		t.Error("expected IsStaging() to return false")
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Schedule: ScheduleConfig{Timezone: "America/Chicago"}}
	if cfg.Location().String() != "America/Chicago" {
		t.Errorf("expected America/Chicago, got %s", cfg.Location())
	}

	cfg.Schedule.Timezone = "Nowhere/Special"
	if cfg.Location() != time.UTC {
		t.Errorf("expected UTC fallback, got %s", cfg.Location())
	}
}

// TestLoadConfigEnvironmentVariableExpansion tests environment variable expansion in config file
func TestLoadConfigEnvironmentVariableExpansion(t *testing.T) {
	t.Setenv(testCSVDir, expandedCSVDir)

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config with expansion, got %v", err)
	}

	if cfg.DataSource.CSVDir != expandedCSVDir {
		t.Errorf("expected csv_dir '%s' from environment expansion, got '%s'", expandedCSVDir, cfg.DataSource.CSVDir)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected expanded config to validate, got %v", err)
	}
}

// TestLoadConfigMissingEnvironmentVariable tests handling of missing environment variables
func TestLoadConfigMissingEnvironmentVariable(t *testing.T) {
	os.Unsetenv(testMissingVar)

	cfg, err := Load(expansionConfigMissingPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	// os.ExpandEnv replaces unset variables with the empty string
	if cfg.DataSource.CSVDir != "" {
		t.Errorf("expected empty csv_dir, got %q", cfg.DataSource.CSVDir)
	}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected csv source without directory to fail validation")
	}
}

func TestReloadFromEnv(t *testing.T) {
	cfg := &Config{}
	t.Setenv("NHL_PICKS_CONFIG_PATH", validConfigPath)

	if err := ReloadFromEnv(cfg); err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if cfg.App.Name != nhlPicksName {
		t.Errorf("expected reloaded app name '%s', got '%s'", nhlPicksName, cfg.App.Name)
	}
}
