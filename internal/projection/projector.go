// Package projection turns rate features into full outcome distributions.
package projection

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/models"
)

// Config holds projector settings
type Config struct {
	CountModel        models.DistributionModel
	Dispersion        float64
	RateFloor         float64
	AdjustmentFloor   float64
	AdjustmentCeiling float64
	HomeEdge          float64
	LeagueTeamGoals   float64
	Shrinkage         Shrinkage
}

// Shrinkage pulls small-sample rates toward a prior with weight n/(n+Tau).
// Tau of zero disables it.
type Shrinkage struct {
	Tau    float64
	Priors map[models.StatKind]float64
}

// DefaultConfig returns the projector defaults
func DefaultConfig() Config {
	return Config{
		CountModel:        models.ModelPoisson,
		Dispersion:        12.0,
		RateFloor:         1e-6,
		AdjustmentFloor:   0.85,
		AdjustmentCeiling: 1.15,
		HomeEdge:          0.02,
		LeagueTeamGoals:   3.0,
	}
}

// Validate checks the configuration for structural problems
func (c Config) Validate() error {
	switch c.CountModel {
	case models.ModelPoisson:
	case models.ModelNegativeBinomial:
		if c.Dispersion <= 0 {
			return fmt.Errorf("%w: negative binomial dispersion must be positive", models.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unsupported count model %q", models.ErrInvalidInput, c.CountModel)
	}
	if c.RateFloor <= 0 {
		return fmt.Errorf("%w: rate floor must be positive", models.ErrInvalidInput)
	}
	if c.AdjustmentFloor <= 0 || c.AdjustmentFloor > 1 || c.AdjustmentCeiling < 1 {
		return fmt.Errorf("%w: adjustment bounds must satisfy 0 < floor <= 1 <= ceiling", models.ErrInvalidInput)
	}
	if c.HomeEdge < 0 || c.HomeEdge >= 1 {
		return fmt.Errorf("%w: home edge must be in [0, 1)", models.ErrInvalidInput)
	}
	if c.Shrinkage.Tau < 0 {
		return fmt.Errorf("%w: shrinkage tau must not be negative", models.ErrInvalidInput)
	}
	return nil
}

// GameContext describes the matchup a projection is made for. Zero values
// are neutral.
type GameContext struct {
	GameID          string
	Home            *bool
	Opponent        string
	OpponentFactor  float64
	ExpectedMinutes float64
}

// Projector produces ProjectedDistributions from FeatureVectors
type Projector struct {
	cfg    Config
	logger *logrus.Logger
}

// NewProjector creates a projector after validating cfg
func NewProjector(cfg Config, log *logrus.Logger) (*Projector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Projector{cfg: cfg, logger: logger.OrDiscard(log)}, nil
}

// Config returns the projector configuration
func (p *Projector) Config() Config {
	return p.cfg
}

// Multiplier returns the clamped matchup adjustment for gc
func (p *Projector) Multiplier(gc GameContext) float64 {
	m := 1.0
	if gc.Home != nil {
		if *gc.Home {
			m *= 1 + p.cfg.HomeEdge
		} else {
			m *= 1 - p.cfg.HomeEdge
		}
	}
	if gc.OpponentFactor > 0 {
		m *= gc.OpponentFactor
	}
	return clamp(m, p.cfg.AdjustmentFloor, p.cfg.AdjustmentCeiling)
}

// Project builds the count distribution for one player and stat. It reports
// false when there is no usable rate, which callers treat as "no projection".
func (p *Projector) Project(f *models.FeatureVector, stat models.StatKind, line *float64, gc GameContext) (models.ProjectedDistribution, bool) {
	if f == nil || !stat.IsCount() {
		return models.ProjectedDistribution{}, false
	}

	rate := p.shrink(stat, f.Rate(stat), f.SampleSize)
	lambda := rate
	if stat == models.StatShots {
		minutes := gc.ExpectedMinutes
		if minutes <= 0 {
			minutes = f.MinutesPerGame
		}
		if f.MinutesPerGame > 0 {
			lambda = rate * minutes / 60
		} else {
			// History without ice time projects from the per-game mean.
			lambda = f.ShotsPerGame
		}
	}

	multiplier := p.Multiplier(gc)
	lambda *= multiplier
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return models.ProjectedDistribution{}, false
	}
	lambda = math.Max(lambda, p.cfg.RateFloor)

	d := models.ProjectedDistribution{
		PlayerID:   f.PlayerID,
		PlayerName: f.PlayerName,
		Team:       f.Team,
		StatKind:   stat,
		AsOf:       f.AsOf,
		Model:      p.cfg.CountModel,
		Params:     map[string]float64{models.ParamLambda: lambda},
		Mean:       lambda,
		Multiplier: multiplier,
	}
	if p.cfg.CountModel == models.ModelNegativeBinomial {
		d.Params[models.ParamDispersion] = p.cfg.Dispersion
	}
	if line != nil {
		l := *line
		prob := ProbOver(d, l)
		d.Line = &l
		d.ProbOver = &prob
	}
	return d, true
}

func (p *Projector) shrink(stat models.StatKind, rate float64, n int) float64 {
	tau := p.cfg.Shrinkage.Tau
	if tau <= 0 {
		return rate
	}
	prior, ok := p.cfg.Shrinkage.Priors[stat]
	if !ok {
		return rate
	}
	w := float64(n) / (float64(n) + tau)
	return w*rate + (1-w)*prior
}
