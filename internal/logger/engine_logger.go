// Package logger provides engine-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/nhl-picks/internal/models"
)

// EngineLogger provides dedicated logging for projection and backtest runs.
type EngineLogger struct {
	*logrus.Entry
}

// NewEngineLogger creates a new engine logger.
func NewEngineLogger(baseLogger *logrus.Logger) *EngineLogger {
	return &EngineLogger{
		Entry: OrDiscard(baseLogger).WithField("component", "engine"),
	}
}

// LogSkipped logs a unit of work dropped from a batch.
func (el *EngineLogger) LogSkipped(item models.SkippedItem) {
	el.WithFields(logrus.Fields{
		"skip_kind": item.Kind,
		"skip_key":  item.Key,
		"reason":    item.Reason,
	}).Debug("Item skipped")
}

// LogMarketIncomplete logs a market that could not be de-vigged.
func (el *EngineLogger) LogMarketIncomplete(marketID string, missing []string, reason string) {
	el.WithFields(logrus.Fields{
		"market_id": marketID,
		"missing":   missing,
		"reason":    reason,
	}).Warn("Market incomplete, skipping")
}

// LogProjectionRun logs the outcome of a daily projection run.
func (el *EngineLogger) LogProjectionRun(runID, slateDate string, games, projections, skipped int, durationMs float64) {
	el.WithFields(logrus.Fields{
		"run_id":      runID,
		"slate_date":  slateDate,
		"games":       games,
		"projections": projections,
		"skipped":     skipped,
		"duration_ms": durationMs,
	}).Info("Projection run completed")
}

// LogBacktestSummary logs the score summary of one stat in a backtest.
func (el *EngineLogger) LogBacktestSummary(runID string, stat models.StatKind, summary models.ScoreSummary) {
	el.WithFields(logrus.Fields{
		"run_id":         runID,
		"stat_kind":      string(stat),
		"sample_count":   summary.SampleCount,
		"brier_score":    summary.BrierScore,
		"log_loss":       summary.LogLoss,
		"mean_predicted": summary.MeanPredicted,
		"mean_realized":  summary.MeanRealized,
	}).Info("Backtest stat evaluated")
}

// LogInsufficientData logs a stat that was left out of a backtest summary.
func (el *EngineLogger) LogInsufficientData(runID string, stat models.StatKind, have, need int) {
	el.WithFields(logrus.Fields{
		"run_id":    runID,
		"stat_kind": string(stat),
		"have":      have,
		"need":      need,
	}).Warn("Insufficient records for evaluation")
}
