package features

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/nhl-picks/internal/models"
)

// teamGame accumulates what one side produced against a defending team
type teamGame struct {
	defender string
	date     time.Time
	shots    float64
	points   float64
	goals    float64
}

// BuildOpponentFactors measures, for every team that appears as an opponent
// before asOf, the decayed per-game shots, points and goals it allowed
// relative to the league-wide decayed average.
func BuildOpponentFactors(logs []models.GameLogRow, asOf time.Time, halfLifeDays float64) models.OpponentFactors {
	cutoff := models.DateOnly(asOf)
	games := make(map[string]*teamGame)
	for _, row := range logs {
		if row.Opponent == "" || !models.DateOnly(row.Date).Before(cutoff) {
			continue
		}
		key := row.Opponent + "|" + models.DateOnly(row.Date).Format(time.DateOnly)
		tg, ok := games[key]
		if !ok {
			tg = &teamGame{defender: row.Opponent, date: models.DateOnly(row.Date)}
			games[key] = tg
		}
		tg.shots += float64(row.Shots)
		tg.points += float64(row.Points)
		tg.goals += float64(row.Goals)
	}
	if len(games) == 0 {
		return models.OpponentFactors{}
	}

	keys := make([]string, 0, len(games))
	for k := range games {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type series struct{ weights, shots, points, goals []float64 }
	league := &series{}
	byTeam := make(map[string]*series)
	for _, k := range keys {
		tg := games[k]
		w := DecayWeight(tg.date, cutoff, halfLifeDays)
		s, ok := byTeam[tg.defender]
		if !ok {
			s = &series{}
			byTeam[tg.defender] = s
		}
		for _, dst := range []*series{s, league} {
			dst.weights = append(dst.weights, w)
			dst.shots = append(dst.shots, tg.shots)
			dst.points = append(dst.points, tg.points)
			dst.goals = append(dst.goals, tg.goals)
		}
	}

	leagueShots := stat.Mean(league.shots, league.weights)
	leaguePoints := stat.Mean(league.points, league.weights)
	leagueGoals := stat.Mean(league.goals, league.weights)

	out := make(models.OpponentFactors, len(byTeam))
	for team, s := range byTeam {
		out[team] = map[models.StatKind]float64{
			models.StatShots:     ratio(stat.Mean(s.shots, s.weights), leagueShots),
			models.StatPoints:    ratio(stat.Mean(s.points, s.weights), leaguePoints),
			models.StatFirstGoal: ratio(stat.Mean(s.goals, s.weights), leagueGoals),
		}
	}
	return out
}

func ratio(v, base float64) float64 {
	if base <= 0 {
		return 1.0
	}
	return v / base
}
