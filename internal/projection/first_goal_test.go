package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/nhl-picks/internal/models"
)

func roster() []models.FeatureVector {
	return []models.FeatureVector{
		{PlayerID: "c", GoalsRate: 0.1},
		{PlayerID: "a", GoalsRate: 0.3},
		{PlayerID: "b", GoalsRate: 0.2},
		{PlayerID: "d", GoalsRate: 0},
	}
}

func TestProjectFirstGoalSumsToOne(t *testing.T) {
	p := newTestProjector(t, nil)

	market, ok := p.ProjectFirstGoal(FirstGoalInput{GameID: "g1", Team: "TOR", AsOf: asOf, Roster: roster()})
	require.True(t, ok)
	require.Len(t, market.Outcomes, 3, "players without a goal rate fall into other")

	assert.InDelta(t, 1.0, market.Total(), 1e-9)
	assert.InDelta(t, 0.16211271, market.TeamFirstProb, 1e-7)

	ids := []string{}
	for _, o := range market.Outcomes {
		prob := o.Params[models.ParamProbability]
		assert.Greater(t, prob, 0.0)
		assert.Less(t, prob, 1.0)
		assert.Equal(t, models.StatFirstGoal, o.StatKind)
		assert.Equal(t, prob, ProbOver(o, 0.5))
		ids = append(ids, o.PlayerID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	a := market.Outcomes[0].Params[models.ParamProbability]
	c := market.Outcomes[2].Params[models.ParamProbability]
	assert.InDelta(t, 3.0, a/c, 1e-9)
	assert.Greater(t, market.OtherProbability, 0.0)
}

func TestProjectFirstGoalRosterAboveTeamTotal(t *testing.T) {
	p := newTestProjector(t, nil)

	market, ok := p.ProjectFirstGoal(FirstGoalInput{
		GameID:                "g1",
		Team:                  "TOR",
		Roster:                roster(),
		TeamExpectedGoals:     0.4,
		OpponentExpectedGoals: 2.6,
	})
	require.True(t, ok)

	expectedTeamFirst := 0.4 / 3.0 * (1 - math.Exp(-3.0))
	var players float64
	for _, o := range market.Outcomes {
		players += o.Params[models.ParamProbability]
	}
	assert.InDelta(t, expectedTeamFirst, players, 1e-12, "shares are normalised by the larger of team and roster totals")
	assert.InDelta(t, 1.0, market.Total(), 1e-9)
}

func TestProjectFirstGoalEmptyRoster(t *testing.T) {
	p := newTestProjector(t, nil)

	_, ok := p.ProjectFirstGoal(FirstGoalInput{GameID: "g1", Team: "TOR", Roster: []models.FeatureVector{{PlayerID: "x"}}})
	assert.False(t, ok)
}
