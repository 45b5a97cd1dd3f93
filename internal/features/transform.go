// Package features turns raw game logs into recency-weighted rate features.
package features

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/nhl-picks/internal/logger"
	"github.com/yourusername/nhl-picks/internal/models"
)

const hoursPerDay = 24.0

// Builder computes FeatureVectors for many players using a bounded pool
type Builder struct {
	halfLifeDays float64
	workers      int
	logger       *logrus.Logger
}

// NewBuilder creates a feature builder. workers <= 0 means one worker.
func NewBuilder(halfLifeDays float64, workers int, log *logrus.Logger) (*Builder, error) {
	if halfLifeDays <= 0 || math.IsNaN(halfLifeDays) || math.IsInf(halfLifeDays, 0) {
		return nil, fmt.Errorf("%w: decay half-life must be positive, got %v", models.ErrInvalidInput, halfLifeDays)
	}
	if workers <= 0 {
		workers = 1
	}
	return &Builder{
		halfLifeDays: halfLifeDays,
		workers:      workers,
		logger:       logger.OrDiscard(log),
	}, nil
}

// HalfLifeDays returns the configured decay half-life
func (b *Builder) HalfLifeDays() float64 {
	return b.halfLifeDays
}

// BuildFeatures is the sequential form of Builder.Build
func BuildFeatures(logs []models.GameLogRow, asOf time.Time, halfLifeDays float64) map[string]models.FeatureVector {
	byPlayer, ids := groupByPlayer(logs)
	out := make(map[string]models.FeatureVector, len(ids))
	for _, id := range ids {
		if fv, ok := aggregatePlayer(id, byPlayer[id], asOf, halfLifeDays); ok {
			out[id] = fv
		}
	}
	return out
}

// Build computes one FeatureVector per player with at least one game strictly
// before asOf. Players are spread across the worker pool; each player's
// aggregation runs on a single goroutine.
func (b *Builder) Build(ctx context.Context, logs []models.GameLogRow, asOf time.Time) (map[string]models.FeatureVector, error) {
	byPlayer, ids := groupByPlayer(logs)
	results := make([]*models.FeatureVector, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if fv, ok := aggregatePlayer(id, byPlayer[id], asOf, b.halfLifeDays); ok {
				results[i] = &fv
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build features: %w", err)
	}

	out := make(map[string]models.FeatureVector, len(ids))
	for _, fv := range results {
		if fv != nil {
			out[fv.PlayerID] = *fv
		}
	}

	b.logger.WithFields(logrus.Fields{
		"as_of":    asOf.Format(time.DateOnly),
		"players":  len(ids),
		"features": len(out),
	}).Debug("Features built")

	return out, nil
}

// groupByPlayer buckets rows by player and returns the sorted player ids.
// Each bucket keeps the caller's row order.
func groupByPlayer(logs []models.GameLogRow) (map[string][]models.GameLogRow, []string) {
	byPlayer := make(map[string][]models.GameLogRow)
	for _, row := range logs {
		byPlayer[row.PlayerID] = append(byPlayer[row.PlayerID], row)
	}
	ids := make([]string, 0, len(byPlayer))
	for id := range byPlayer {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return byPlayer, ids
}

// DecayWeight returns 0.5^(ageDays/halfLifeDays)
func DecayWeight(gameDate, asOf time.Time, halfLifeDays float64) float64 {
	age := models.DateOnly(asOf).Sub(models.DateOnly(gameDate)).Hours() / hoursPerDay
	return math.Pow(0.5, age/halfLifeDays)
}

func aggregatePlayer(playerID string, rows []models.GameLogRow, asOf time.Time, halfLifeDays float64) (models.FeatureVector, bool) {
	cutoff := models.DateOnly(asOf)

	sorted := make([]models.GameLogRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var (
		weights, shots, points, goals, minutes []float64
		last                                   models.GameLogRow
	)
	for _, row := range sorted {
		if !models.DateOnly(row.Date).Before(cutoff) {
			continue
		}
		weights = append(weights, DecayWeight(row.Date, cutoff, halfLifeDays))
		shots = append(shots, float64(row.Shots))
		points = append(points, float64(row.Points))
		goals = append(goals, float64(row.Goals))
		minutes = append(minutes, row.Minutes)
		last = row
	}
	if len(weights) == 0 {
		return models.FeatureVector{}, false
	}

	fv := models.FeatureVector{
		PlayerID:       playerID,
		PlayerName:     last.PlayerName,
		Team:           last.Team,
		AsOf:           cutoff,
		ShotsPerGame:   stat.Mean(shots, weights),
		PointsRate:     stat.Mean(points, weights),
		GoalsRate:      stat.Mean(goals, weights),
		MinutesPerGame: stat.Mean(minutes, weights),
		SampleSize:     len(weights),
		LastGameDate:   models.DateOnly(last.Date),
	}
	// Without ice time only the per-game shots rate is meaningful.
	if fv.MinutesPerGame > 0 {
		fv.ShotsRate = fv.ShotsPerGame / fv.MinutesPerGame * 60
	}
	return fv, true
}
