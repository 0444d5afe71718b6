package window

import (
	"time"

	"github.com/cockroachdb/errors"
)

// DailyResetHour is the local hour at which the daily window rolls over.
const DailyResetHour = 3

var ErrUnknownMode = errors.New("unknown window mode")

type Mode string

const (
	ModeDaily  Mode = "daily"
	ModeWeekly Mode = "weekly"
	ModeSeason Mode = "season"
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type Calculator struct {
	loc         *time.Location
	seasonStart time.Time
}

func NewCalculator(loc *time.Location, seasonStart time.Time) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{loc: loc, seasonStart: seasonStart.In(loc)}
}

func (c *Calculator) Location() *time.Location { return c.loc }

func (c *Calculator) SeasonStart() time.Time { return c.seasonStart }

func (c *Calculator) Daily(ref time.Time) Window {
	ref = ref.In(c.loc)
	y, m, d := ref.Date()
	today := time.Date(y, m, d, DailyResetHour, 0, 0, 0, c.loc)
	if !ref.Before(today) {
		return Window{Start: today, End: time.Date(y, m, d+1, DailyResetHour, 0, 0, 0, c.loc)}
	}
	return Window{Start: time.Date(y, m, d-1, DailyResetHour, 0, 0, 0, c.loc), End: today}
}

func (c *Calculator) Weekly(ref time.Time) Window {
	end := c.Daily(ref).End
	return Window{Start: end.AddDate(0, 0, -7), End: end}
}

func (c *Calculator) Season(ref time.Time) Window {
	return Window{Start: c.seasonStart, End: c.Daily(ref).End}
}

func (c *Calculator) For(mode Mode, ref time.Time) (Window, error) {
	switch mode {
	case ModeDaily:
		return c.Daily(ref), nil
	case ModeWeekly:
		return c.Weekly(ref), nil
	case ModeSeason:
		return c.Season(ref), nil
	default:
		return Window{}, errors.Wrapf(ErrUnknownMode, "%q", string(mode))
	}
}
