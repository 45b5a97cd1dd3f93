package models

import "fmt"

// StatKind identifies the player outcome being projected
type StatKind string

const (
	StatShots     StatKind = "shots"
	StatPoints    StatKind = "points"
	StatFirstGoal StatKind = "first_goal"
)

// AllStatKinds lists every supported stat kind in report order
var AllStatKinds = []StatKind{StatShots, StatPoints, StatFirstGoal}

// ParseStatKind converts a config or CSV value into a StatKind
func ParseStatKind(s string) (StatKind, error) {
	switch StatKind(s) {
	case StatShots, StatPoints, StatFirstGoal:
		return StatKind(s), nil
	case "sog":
		return StatShots, nil
	case "pts":
		return StatPoints, nil
	case "fgs":
		return StatFirstGoal, nil
	default:
		return "", fmt.Errorf("%w: unknown stat kind %q", ErrInvalidInput, s)
	}
}

// IsCount reports whether the stat is modelled as a count distribution
func (s StatKind) IsCount() bool {
	return s == StatShots || s == StatPoints
}
