package leaderboard

import (
	"errors"
	"fmt"
)

// Period is the aggregation granularity of the leaderboard
type Period string

const (
	PeriodAll   Period = "all"
	PeriodYear  Period = "year"
	PeriodMonth Period = "month"
	PeriodWeek  Period = "week"
)

// Periods lists every period in prefetch order
var Periods = []Period{PeriodAll, PeriodYear, PeriodMonth, PeriodWeek}

// Direction moves the offset one period older or newer
type Direction string

const (
	Older Direction = "older"
	Newer Direction = "newer"
)

var (
	ErrInvalidPeriod      = errors.New("invalid leaderboard period")
	ErrInvalidDirection   = errors.New("invalid navigation direction")
	ErrNavigationDisabled = errors.New("navigation disabled at this offset")
	ErrOffsetOutOfRange   = errors.New("offset out of range")
)

// ParsePeriod validates a period name
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

// ParseDirection validates a direction name
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Older, Newer:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Valid reports whether p is one of the four known periods
func (p Period) Valid() bool {
	switch p {
	case PeriodAll, PeriodYear, PeriodMonth, PeriodWeek:
		return true
	}
	return false
}

func (p Period) String() string {
	return string(p)
}

// cacheKey is the composite key for a (period, offset) pair
func cacheKey(p Period, offset int) string {
	return fmt.Sprintf("%s:%d", p, offset)
}
