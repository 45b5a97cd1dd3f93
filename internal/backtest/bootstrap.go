package backtest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/nhl-picks/internal/models"
)

// BootstrapConfig configures resampling of a record set
type BootstrapConfig struct {
	Iterations      int
	ConfidenceLevel float64
	Seed            int64
}

// BootstrapResult holds the sampling distribution of the scoring rules
type BootstrapResult struct {
	Iterations          int                `json:"iterations"`
	BrierMean           float64            `json:"brier_mean"`
	BrierStd            float64            `json:"brier_std"`
	BrierLow            float64            `json:"brier_low"`
	BrierHigh           float64            `json:"brier_high"`
	LogLossLow          float64            `json:"log_loss_low"`
	LogLossHigh         float64            `json:"log_loss_high"`
	ConfidenceIntervals map[string]float64 `json:"confidence_intervals"`
	Distribution        []float64          `json:"-"`
}

// RunBootstrap resamples records with replacement and rescores each sample.
// A zero seed draws one from the clock.
func (e *Evaluator) RunBootstrap(ctx context.Context, records []models.BacktestRecord, cfg BootstrapConfig) (BootstrapResult, error) {
	if len(records) < e.minRecords {
		return BootstrapResult{}, &models.InsufficientDataError{Have: len(records), Need: e.minRecords}
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = 1000
	}
	if cfg.ConfidenceLevel <= 0 || cfg.ConfidenceLevel >= 1 {
		cfg.ConfidenceLevel = 0.95
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(seed))
	brier := make([]float64, cfg.Iterations)
	logLoss := make([]float64, cfg.Iterations)
	sample := make([]models.BacktestRecord, len(records))

	for i := 0; i < cfg.Iterations; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return BootstrapResult{}, fmt.Errorf("bootstrap interrupted: %w", err)
			}
		}
		for j := range sample {
			sample[j] = records[rng.Intn(len(records))]
		}
		s := e.score(sample)
		brier[i] = s.BrierScore
		logLoss[i] = s.LogLoss
	}

	tail := (1 - cfg.ConfidenceLevel) / 2
	mean, std := stat.PopMeanStdDev(brier, nil)
	return BootstrapResult{
		Iterations:          cfg.Iterations,
		BrierMean:           mean,
		BrierStd:            std,
		BrierLow:            percentile(brier, tail),
		BrierHigh:           percentile(brier, 1-tail),
		LogLossLow:          percentile(logLoss, tail),
		LogLossHigh:         percentile(logLoss, 1-tail),
		ConfidenceIntervals: CalculateConfidenceIntervals(brier, []float64{0.9, 0.95, 0.99}),
		Distribution:        brier,
	}, nil
}

// CalculateConfidenceIntervals returns the width of each central interval
func CalculateConfidenceIntervals(distribution []float64, levels []float64) map[string]float64 {
	results := make(map[string]float64)
	for _, level := range levels {
		p := (1.0 - level) / 2.0
		low := percentile(distribution, p)
		high := percentile(distribution, 1.0-p)
		results[formatPercent(level)] = high - low
	}
	return results
}

func formatPercent(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}
