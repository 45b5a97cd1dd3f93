package service

import (
	"fmt"

	"github.com/yourusername/nhl-picks/internal/config"
	"github.com/yourusername/nhl-picks/internal/models"
	"github.com/yourusername/nhl-picks/internal/odds"
	"github.com/yourusername/nhl-picks/internal/projection"
)

// ProjectionConfig converts app config to projector config. Prior keys
// accept the same stat aliases as the rest of the config.
func ProjectionConfig(cfg config.ProjectionConfig) (projection.Config, error) {
	out := projection.Config{
		CountModel:        models.DistributionModel(cfg.CountModel),
		Dispersion:        cfg.Dispersion,
		RateFloor:         cfg.RateFloor,
		AdjustmentFloor:   cfg.AdjustmentFloor,
		AdjustmentCeiling: cfg.AdjustmentCeiling,
		HomeEdge:          cfg.HomeEdge,
		LeagueTeamGoals:   cfg.LeagueTeamGoals,
		Shrinkage:         projection.Shrinkage{Tau: cfg.ShrinkageTau},
	}
	if out.RateFloor == 0 {
		out.RateFloor = projection.DefaultConfig().RateFloor
	}
	if len(cfg.Priors) > 0 {
		out.Shrinkage.Priors = make(map[models.StatKind]float64, len(cfg.Priors))
		for key, v := range cfg.Priors {
			stat, err := models.ParseStatKind(key)
			if err != nil {
				return projection.Config{}, fmt.Errorf("invalid projection prior: %w", err)
			}
			out.Shrinkage.Priors[stat] = v
		}
	}
	if err := out.Validate(); err != nil {
		return projection.Config{}, err
	}
	return out, nil
}

// OddsConfig converts app config to normalizer config
func OddsConfig(cfg *config.Config) odds.Config {
	return odds.Config{
		Staleness: cfg.Staleness(),
		Workers:   cfg.Odds.Workers,
	}
}

// DailyConfigFrom builds the daily run settings from app config
func DailyConfigFrom(cfg *config.Config) DailyConfig {
	return DailyConfig{
		HalfLifeDays: cfg.Features.DecayHalfLifeDays,
		LookbackDays: cfg.Features.LookbackDays,
		Workers:      cfg.Features.Workers,
		ShotsLine:    cfg.Report.SOGLine,
		PointsLine:   cfg.Backtest.PointsLine,
	}
}
