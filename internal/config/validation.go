package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/nhl-picks/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("countmodel", validateCountModel)
	_ = v.RegisterValidation("sourcetype", validateSourceType)
	_ = v.RegisterValidation("statkind", validateStatKind)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCountModel accepts the distribution families used for count stats
func validateCountModel(fl validator.FieldLevel) bool {
	switch models.DistributionModel(fl.Field().String()) {
	case models.ModelPoisson, models.ModelNegativeBinomial:
		return true
	default:
		return false
	}
}

// validateSourceType accepts the data source implementations
func validateSourceType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "mock", "csv", "nhl_web":
		return true
	default:
		return false
	}
}

func validateStatKind(fl validator.FieldLevel) bool {
	_, err := models.ParseStatKind(fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	startDate, err := time.Parse(time.DateOnly, cfg.Backtest.StartDate)
	if err != nil {
		return fmt.Errorf("invalid backtest start_date format: %w", err)
	}
	endDate, err := time.Parse(time.DateOnly, cfg.Backtest.EndDate)
	if err != nil {
		return fmt.Errorf("invalid backtest end_date format: %w", err)
	}
	if startDate.After(endDate) {
		return fmt.Errorf("backtest start_date must not be after end_date")
	}

	if cfg.Projection.AdjustmentFloor > 1 || cfg.Projection.AdjustmentCeiling < 1 {
		return fmt.Errorf("projection adjustment bounds must bracket 1.0")
	}
	if cfg.Projection.AdjustmentFloor >= cfg.Projection.AdjustmentCeiling {
		return fmt.Errorf("projection adjustment_floor must be below adjustment_ceiling")
	}
	if cfg.Projection.CountModel == string(models.ModelNegativeBinomial) && cfg.Projection.Dispersion <= 0 {
		return fmt.Errorf("negative_binomial count model requires a positive dispersion")
	}
	for stat := range cfg.Projection.Priors {
		if _, err := models.ParseStatKind(stat); err != nil {
			return fmt.Errorf("projection priors: %w", err)
		}
	}

	if cfg.DataSource.Type == "csv" && strings.TrimSpace(cfg.DataSource.CSVDir) == "" {
		return fmt.Errorf("data_source.csv_dir is required for the csv source")
	}

	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid schedule timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	if _, err := cron.ParseStandard(cfg.Schedule.DailyCron); err != nil {
		return fmt.Errorf("invalid schedule daily_cron %q: %w", cfg.Schedule.DailyCron, err)
	}

	if cfg.Backtest.RollingStepDays > 0 && cfg.Backtest.RollingWindowDays == 0 {
		return fmt.Errorf("backtest rolling_step_days requires rolling_window_days")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "datetime":
			errMsg += fmt.Sprintf("- Field '%s' must be a YYYY-MM-DD date, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "countmodel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: poisson, negative_binomial\n", field)
		case "sourcetype":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: mock, csv, nhl_web\n", field)
		case "statkind":
			errMsg += fmt.Sprintf("- Field '%s' has unknown stat kind '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.DataSource.Type == "mock" {
			return fmt.Errorf("production environment must not publish picks from the mock data source")
		}
		if cfg.App.LogLevel == "debug" {
			return fmt.Errorf("production environment should not log at debug level")
		}
	}
	return nil
}
