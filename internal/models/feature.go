package models

import "time"

// FeatureVector holds recency-weighted rates for one player as of a date.
// A player with no qualifying games never gets a FeatureVector.
type FeatureVector struct {
	PlayerID       string    `json:"player_id"`
	PlayerName     string    `json:"player_name,omitempty"`
	Team           string    `json:"team,omitempty"`
	AsOf           time.Time `json:"as_of_date"`
	ShotsRate      float64   `json:"shots_rate"`  // per 60 minutes, 0 without ice time
	ShotsPerGame   float64   `json:"shots_per_game"`
	PointsRate     float64   `json:"points_rate"` // per game
	GoalsRate      float64   `json:"goals_rate"`  // per game
	MinutesPerGame float64   `json:"minutes_per_game"`
	SampleSize     int       `json:"sample_size"`
	LastGameDate   time.Time `json:"last_game_date"`
}

// Rate returns the feature rate backing a stat kind
func (f *FeatureVector) Rate(stat StatKind) float64 {
	switch stat {
	case StatShots:
		return f.ShotsRate
	case StatPoints:
		return f.PointsRate
	case StatFirstGoal:
		return f.GoalsRate
	default:
		return 0
	}
}

// OpponentFactors are per-team multipliers describing how much of each stat
// a team allows relative to the league average. 1.0 is neutral.
type OpponentFactors map[string]map[StatKind]float64

// Factor returns the multiplier for team and stat, or 1.0 when unknown
func (o OpponentFactors) Factor(team string, stat StatKind) float64 {
	if o == nil {
		return 1.0
	}
	byStat, ok := o[team]
	if !ok {
		return 1.0
	}
	f, ok := byStat[stat]
	if !ok || f <= 0 {
		return 1.0
	}
	return f
}
