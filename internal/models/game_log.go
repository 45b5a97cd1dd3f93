package models

import "time"

// GameLogRow is one player's box-score line for one game
type GameLogRow struct {
	PlayerID   string    `json:"player_id" csv:"player_id" validate:"required"`
	PlayerName string    `json:"player_name,omitempty" csv:"player_name"`
	GameID     string    `json:"game_id,omitempty" csv:"game_id"`
	Team       string    `json:"team,omitempty" csv:"team"`
	Date       time.Time `json:"date" csv:"date" validate:"required"`
	Shots      int       `json:"shots" csv:"shots" validate:"gte=0"`
	Points     int       `json:"points" csv:"points" validate:"gte=0,gtefield=Goals"`
	Goals      int       `json:"goals" csv:"goals" validate:"gte=0"`
	Assists    int       `json:"assists" csv:"assists" validate:"gte=0"`
	Opponent   string    `json:"opponent" csv:"opponent"`
	Home       bool      `json:"home" csv:"home"`
	Minutes    float64   `json:"minutes" csv:"minutes" validate:"gte=0,lte=80"`
	FirstGoal  bool      `json:"first_goal,omitempty" csv:"first_goal"`
}

// Game is a scheduled matchup on a slate
type Game struct {
	GameID   string    `json:"game_id" validate:"required"`
	Date     time.Time `json:"date" validate:"required"`
	HomeTeam string    `json:"home_team" validate:"required"`
	AwayTeam string    `json:"away_team" validate:"required,nefield=HomeTeam"`
}

// Teams returns the two teams in home, away order
func (g Game) Teams() []string {
	return []string{g.HomeTeam, g.AwayTeam}
}

// Opponent returns the other side of the matchup for team
func (g Game) Opponent(team string) (string, bool) {
	switch team {
	case g.HomeTeam:
		return g.AwayTeam, true
	case g.AwayTeam:
		return g.HomeTeam, true
	default:
		return "", false
	}
}

// DateOnly truncates t to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
