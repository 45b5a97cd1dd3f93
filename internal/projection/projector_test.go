package projection

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/nhl-picks/internal/models"
)

var asOf = time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

func newTestProjector(t *testing.T, mutate func(*Config)) *Projector {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewProjector(cfg, nil)
	require.NoError(t, err)
	return p
}

func lineOf(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

// shotsFeature returns a feature whose per-game shot mean equals perGame
func shotsFeature(perGame float64) *models.FeatureVector {
	return &models.FeatureVector{
		PlayerID:       "p1",
		AsOf:           asOf,
		ShotsRate:      perGame / 18 * 60,
		PointsRate:     0.8,
		GoalsRate:      0.3,
		MinutesPerGame: 18,
		SampleSize:     10,
	}
}

func TestProjectShotsOverLine(t *testing.T) {
	p := newTestProjector(t, nil)

	d, ok := p.Project(shotsFeature(3.1948), models.StatShots, lineOf(2.5), GameContext{})
	require.True(t, ok)
	assert.Equal(t, models.ModelPoisson, d.Model)
	assert.InDelta(t, 3.1948, d.Mean, 1e-9)
	require.NotNil(t, d.ProbOver)
	assert.InDelta(t, 0.619, *d.ProbOver, 0.005)
	assert.Greater(t, *d.ProbOver, 0.6)
	assert.Less(t, *d.ProbOver, 0.65)
}

func TestProbOverMonotonicAndBounded(t *testing.T) {
	for _, model := range []models.DistributionModel{models.ModelPoisson, models.ModelNegativeBinomial} {
		t.Run(string(model), func(t *testing.T) {
			p := newTestProjector(t, func(c *Config) { c.CountModel = model })
			d, ok := p.Project(shotsFeature(3.2), models.StatShots, nil, GameContext{})
			require.True(t, ok)

			prev := 1.0
			for line := -0.5; line <= 15.5; line += 0.5 {
				prob := ProbOver(d, line)
				assert.GreaterOrEqual(t, prob, 0.0)
				assert.LessOrEqual(t, prob, 1.0)
				assert.LessOrEqual(t, prob, prev+1e-15, "line %v", line)
				prev = prob
			}
		})
	}
}

func TestProbOverIntegerLineIsStrict(t *testing.T) {
	p := newTestProjector(t, nil)
	d, ok := p.Project(shotsFeature(3.0), models.StatShots, nil, GameContext{})
	require.True(t, ok)

	assert.Equal(t, ProbOver(d, 3.5), ProbOver(d, 3))
	assert.Equal(t, ProbAtLeast(d, 4), ProbOver(d, 3))
	assert.Equal(t, 1.0, ProbOver(d, -1))
}

func TestProjectNegativeBinomialHasHeavierTail(t *testing.T) {
	poisson := newTestProjector(t, nil)
	negbin := newTestProjector(t, func(c *Config) {
		c.CountModel = models.ModelNegativeBinomial
		c.Dispersion = 12
	})

	pd, ok := poisson.Project(shotsFeature(3), models.StatShots, lineOf(7.5), GameContext{})
	require.True(t, ok)
	nd, ok := negbin.Project(shotsFeature(3), models.StatShots, lineOf(7.5), GameContext{})
	require.True(t, ok)

	assert.InDelta(t, 0.011905, *pd.ProbOver, 1e-5)
	assert.InDelta(t, 0.023278, *nd.ProbOver, 1e-5)
	assert.InDelta(t, 3.75, Variance(nd), 1e-9)
	assert.InDelta(t, 0.931281, ProbOver(nd, 0.5), 1e-5)
}

func TestProjectPoints(t *testing.T) {
	p := newTestProjector(t, nil)
	d, ok := p.Project(shotsFeature(3), models.StatPoints, lineOf(0.5), GameContext{})
	require.True(t, ok)

	assert.InDelta(t, 0.8, d.Mean, 1e-12)
	assert.InDelta(t, 1-math.Exp(-0.8), *d.ProbOver, 1e-9)
	assert.InDelta(t, 1-math.Exp(-0.8)*1.8, ProbAtLeast(d, 2), 1e-9)
}

func TestProjectNoProjection(t *testing.T) {
	p := newTestProjector(t, nil)

	tests := []struct {
		name    string
		feature *models.FeatureVector
		stat    models.StatKind
	}{
		{"nil feature", nil, models.StatShots},
		{"zero rate", &models.FeatureVector{PlayerID: "p1", MinutesPerGame: 18}, models.StatShots},
		{"zero minutes and no shots", &models.FeatureVector{PlayerID: "p1", ShotsRate: 10}, models.StatShots},
		{"negative rate", &models.FeatureVector{PlayerID: "p1", PointsRate: -1}, models.StatPoints},
		{"first goal via count path", shotsFeature(3), models.StatFirstGoal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := p.Project(tt.feature, tt.stat, lineOf(0.5), GameContext{})
			assert.False(t, ok)
		})
	}
}

func TestProjectTinyRateIsFloored(t *testing.T) {
	p := newTestProjector(t, nil)
	f := &models.FeatureVector{PlayerID: "p1", PointsRate: 1e-12, SampleSize: 1}

	d, ok := p.Project(f, models.StatPoints, lineOf(0.5), GameContext{})
	require.True(t, ok)
	assert.Equal(t, 1e-6, d.Mean)
	assert.InDelta(t, 1e-6, *d.ProbOver, 1e-9)
}

func TestMultiplierClamped(t *testing.T) {
	p := newTestProjector(t, nil)

	tests := []struct {
		name     string
		gc       GameContext
		expected float64
	}{
		{"neutral", GameContext{}, 1.0},
		{"home", GameContext{Home: boolPtr(true)}, 1.02},
		{"away", GameContext{Home: boolPtr(false)}, 0.98},
		{"weak defence", GameContext{OpponentFactor: 1.1}, 1.1},
		{"extreme weak defence", GameContext{Home: boolPtr(true), OpponentFactor: 2.0}, 1.15},
		{"extreme strong defence", GameContext{OpponentFactor: 0.2}, 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, p.Multiplier(tt.gc), 1e-12)
		})
	}
}

func TestProjectAppliesMultiplierAndExpectedMinutes(t *testing.T) {
	p := newTestProjector(t, nil)

	d, ok := p.Project(shotsFeature(3), models.StatShots, nil, GameContext{OpponentFactor: 1.1, ExpectedMinutes: 20})
	require.True(t, ok)
	assert.InDelta(t, 3.0/18*20*1.1, d.Mean, 1e-9)
	assert.InDelta(t, 1.1, d.Multiplier, 1e-12)
	assert.Nil(t, d.ProbOver)
}

func TestProjectShrinkage(t *testing.T) {
	p := newTestProjector(t, func(c *Config) {
		c.Shrinkage = Shrinkage{Tau: 10, Priors: map[models.StatKind]float64{models.StatPoints: 0.4}}
	})

	d, ok := p.Project(shotsFeature(3), models.StatPoints, nil, GameContext{})
	require.True(t, ok)
	assert.InDelta(t, 0.6, d.Mean, 1e-12, "ten games against tau ten lands halfway to the prior")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown model", func(c *Config) { c.CountModel = "binomial" }},
		{"zero dispersion", func(c *Config) { c.CountModel = models.ModelNegativeBinomial; c.Dispersion = 0 }},
		{"zero floor", func(c *Config) { c.RateFloor = 0 }},
		{"inverted bounds", func(c *Config) { c.AdjustmentFloor = 1.2 }},
		{"ceiling below one", func(c *Config) { c.AdjustmentCeiling = 0.9 }},
		{"negative tau", func(c *Config) { c.Shrinkage.Tau = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewProjector(cfg, nil)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestFairOdds(t *testing.T) {
	assert.InDelta(t, 2.0, FairOdds(0.5), 1e-12)
	assert.True(t, math.IsInf(FairOdds(0), 1))
}
