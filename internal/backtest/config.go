package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/nhl-picks/internal/config"
	"github.com/yourusername/nhl-picks/internal/models"
)

const firstGoalLine = 0.5

// BacktestConfig extends core config with backtest-specific settings
type BacktestConfig struct {
	StartDate           time.Time
	EndDate             time.Time
	HalfLifeDays        float64
	LookbackDays        int
	Workers             int
	Bins                int
	MinRecords          int
	Stats               []models.StatKind
	Lines               map[models.StatKind]float64
	MinEdge             float64
	Stake               float64
	InitialBankroll     float64
	BootstrapIterations int
	ConfidenceLevel     float64
	Seed                int64
	RollingWindowDays   int
	RollingStepDays     int
	OutputPath          string
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig, feat *config.FeaturesConfig) (BacktestConfig, error) {
	if cfg == nil || feat == nil {
		return BacktestConfig{}, fmt.Errorf("backtest and features config are required")
	}
	start, err := time.Parse(time.DateOnly, cfg.StartDate)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, cfg.EndDate)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid end date: %w", err)
	}

	stats := make([]models.StatKind, 0, len(cfg.Stats))
	for _, s := range cfg.Stats {
		kind, err := models.ParseStatKind(s)
		if err != nil {
			return BacktestConfig{}, err
		}
		stats = append(stats, kind)
	}

	bt := BacktestConfig{
		StartDate:    start,
		EndDate:      end,
		HalfLifeDays: feat.DecayHalfLifeDays,
		LookbackDays: feat.LookbackDays,
		Workers:      feat.Workers,
		Bins:         cfg.Bins,
		MinRecords:   cfg.MinRecords,
		Stats:        stats,
		Lines: map[models.StatKind]float64{
			models.StatShots:     cfg.ShotsLine,
			models.StatPoints:    cfg.PointsLine,
			models.StatFirstGoal: firstGoalLine,
		},
		MinEdge:             cfg.MinEdge,
		Stake:               cfg.Stake,
		InitialBankroll:     cfg.InitialBankroll,
		BootstrapIterations: cfg.BootstrapIterations,
		ConfidenceLevel:     cfg.ConfidenceLevel,
		Seed:                cfg.Seed,
		RollingWindowDays:   cfg.RollingWindowDays,
		RollingStepDays:     cfg.RollingStepDays,
		OutputPath:          cfg.OutputPath,
	}

	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	if b.StartDate.After(b.EndDate) {
		return fmt.Errorf("start date must be before end date")
	}
	if b.HalfLifeDays <= 0 {
		return fmt.Errorf("decay half-life must be positive")
	}
	if b.Bins < 1 {
		return fmt.Errorf("calibration bins must be at least 1")
	}
	if len(b.Stats) == 0 {
		return fmt.Errorf("at least one stat kind is required")
	}
	if b.Stake <= 0 || b.InitialBankroll <= 0 {
		return fmt.Errorf("stake and initial bankroll must be positive")
	}
	if b.ConfidenceLevel < 0 || b.ConfidenceLevel >= 1 {
		return fmt.Errorf("confidence level must be in [0, 1)")
	}
	if b.RollingWindowDays < 0 || b.RollingStepDays < 0 {
		return fmt.Errorf("rolling window settings cannot be negative")
	}
	return nil
}

// Line returns the configured line for stat
func (b BacktestConfig) Line(stat models.StatKind) float64 {
	if l, ok := b.Lines[stat]; ok {
		return l
	}
	return firstGoalLine
}
