package models

import "time"

// DistributionModel names the family a ProjectedDistribution was drawn from
type DistributionModel string

const (
	ModelPoisson          DistributionModel = "poisson"
	ModelNegativeBinomial DistributionModel = "negative_binomial"
	ModelBernoulli        DistributionModel = "bernoulli"
)

// Distribution parameter keys
const (
	ParamLambda      = "lambda"
	ParamDispersion  = "dispersion"
	ParamProbability = "p"
)

// ProjectedDistribution is the full outcome distribution for one player and
// stat on one date. ProbOver is populated when a line was requested.
type ProjectedDistribution struct {
	PlayerID   string             `json:"player_id"`
	PlayerName string             `json:"player_name,omitempty"`
	Team       string             `json:"team,omitempty"`
	StatKind   StatKind           `json:"stat_kind"`
	AsOf       time.Time          `json:"as_of_date"`
	Model      DistributionModel  `json:"model"`
	Params     map[string]float64 `json:"params"`
	Mean       float64            `json:"mean"`
	Multiplier float64            `json:"multiplier"`
	Line       *float64           `json:"line,omitempty"`
	ProbOver   *float64           `json:"prob_over,omitempty"`
}

// FirstGoalMarket is the closed outcome set for "first goal of the game"
// from one team's side: each listed player plus a residual Other outcome.
type FirstGoalMarket struct {
	GameID           string                  `json:"game_id"`
	Team             string                  `json:"team"`
	TeamFirstProb    float64                 `json:"team_first_probability"`
	Outcomes         []ProjectedDistribution `json:"outcomes"`
	OtherProbability float64                 `json:"other_probability"`
}

// Total returns the sum of all outcome probabilities including Other
func (m *FirstGoalMarket) Total() float64 {
	total := m.OtherProbability
	for _, o := range m.Outcomes {
		total += o.Params[ParamProbability]
	}
	return total
}
