package service

import (
	"time"

	"github.com/yourusername/nhl-picks/internal/models"
)

// ChooseSlateDate returns the slate to project at now: today in loc, or
// tomorrow once the local hour reaches rolloverHour. The result is a
// calendar date at midnight UTC.
func ChooseSlateDate(now time.Time, loc *time.Location, rolloverHour int) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	if local.Hour() >= rolloverHour {
		local = local.AddDate(0, 0, 1)
	}
	return models.DateOnly(local)
}
