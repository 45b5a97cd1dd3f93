package projection

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/nhl-picks/internal/models"
)

// firstGoalLine is the implied yes/no line for a first-goal outcome
const firstGoalLine = 0.5

// FirstGoalInput is one team's side of a game for the first-goal market
type FirstGoalInput struct {
	GameID                string
	Team                  string
	AsOf                  time.Time
	Roster                []models.FeatureVector
	TeamExpectedGoals     float64
	OpponentExpectedGoals float64
}

// ProjectFirstGoal allocates the team's chance of scoring first across its
// roster in proportion to goal rates. The Other outcome absorbs everything
// else so the market sums to one.
func (p *Projector) ProjectFirstGoal(in FirstGoalInput) (models.FirstGoalMarket, bool) {
	roster := make([]models.FeatureVector, 0, len(in.Roster))
	var rosterGoals float64
	for _, f := range in.Roster {
		if f.GoalsRate > 0 && !math.IsInf(f.GoalsRate, 0) {
			roster = append(roster, f)
			rosterGoals += f.GoalsRate
		}
	}
	if len(roster) == 0 {
		return models.FirstGoalMarket{}, false
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].PlayerID < roster[j].PlayerID })

	teamGoals := in.TeamExpectedGoals
	if teamGoals <= 0 {
		teamGoals = rosterGoals
	}
	oppGoals := in.OpponentExpectedGoals
	if oppGoals <= 0 {
		oppGoals = p.cfg.LeagueTeamGoals
	}
	total := teamGoals + oppGoals
	teamFirst := teamGoals / total * (1 - math.Exp(-total))

	// Shares never exceed one even when the roster outscores the team total.
	proxy := math.Max(teamGoals, rosterGoals)

	market := models.FirstGoalMarket{
		GameID:        in.GameID,
		Team:          in.Team,
		TeamFirstProb: teamFirst,
		Outcomes:      make([]models.ProjectedDistribution, 0, len(roster)),
	}
	var allocated float64
	for _, f := range roster {
		prob := teamFirst * f.GoalsRate / proxy
		line := firstGoalLine
		over := prob
		market.Outcomes = append(market.Outcomes, models.ProjectedDistribution{
			PlayerID:   f.PlayerID,
			PlayerName: f.PlayerName,
			Team:       in.Team,
			StatKind:   models.StatFirstGoal,
			AsOf:       in.AsOf,
			Model:      models.ModelBernoulli,
			Params:     map[string]float64{models.ParamProbability: prob},
			Mean:       prob,
			Multiplier: 1,
			Line:       &line,
			ProbOver:   &over,
		})
		allocated += prob
	}
	market.OtherProbability = 1 - allocated

	p.logger.WithFields(logrus.Fields{
		"game_id":    in.GameID,
		"team":       in.Team,
		"players":    len(roster),
		"team_first": teamFirst,
		"other":      market.OtherProbability,
	}).Debug("First goal market projected")

	return market, true
}
