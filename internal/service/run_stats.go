package service

import (
	"fmt"
	"sync"
	"time"
)

// RunStats tracks counts for one daily projection run
type RunStats struct {
	mu               sync.RWMutex
	StartTime        time.Time     `json:"start_time"`
	Duration         time.Duration `json:"duration_ns"`
	Games            int           `json:"games"`
	Players          int           `json:"players"`
	Projections      int           `json:"projections"`
	FirstGoalMarkets int           `json:"first_goal_markets"`
	MarketsPriced    int           `json:"markets_priced"`
	PricedPicks      int           `json:"priced_picks"`
	RejectedRows     int           `json:"rejected_rows"`
	Skipped          int           `json:"skipped"`
}

// NewRunStats creates a new stats tracker
func NewRunStats(start time.Time) *RunStats {
	return &RunStats{StartTime: start}
}

// RecordProjection increments the projection count
func (s *RunStats) RecordProjection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Projections++
}

// RecordSkipped increments the skipped count
func (s *RunStats) RecordSkipped(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped += n
}

// RecordRejected adds rows dropped by ingestion validation
func (s *RunStats) RecordRejected(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RejectedRows += n
}

// Finish stamps the run duration
func (s *RunStats) Finish(end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Duration = end.Sub(s.StartTime)
}

// String returns a formatted string representation of the stats
func (s *RunStats) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	priceRate := float64(0)
	if s.Projections > 0 {
		priceRate = float64(s.PricedPicks) / float64(s.Projections) * 100
	}

	return fmt.Sprintf(
		"RunStats{Games=%d, Players=%d, Projections=%d, FirstGoalMarkets=%d, Priced=%d (%.1f%%), Rejected=%d, Skipped=%d, Duration=%v}",
		s.Games,
		s.Players,
		s.Projections,
		s.FirstGoalMarkets,
		s.PricedPicks,
		priceRate,
		s.RejectedRows,
		s.Skipped,
		s.Duration,
	)
}
