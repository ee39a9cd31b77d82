// Package timeutil resolves the date expressions accepted by tools and the
// CLI into absolute instants, and converts instants into the display zone.
//
// Two grammars are accepted:
//
//	<n><unit>                 relative offset before now; unit is one of
//	                          h (hours), d (days), w (weeks), m (30 days), y (365 days)
//	YYYY-MM-DD[ HH:MM:SS]     wall time in the display zone
//
// Matching is case-insensitive and surrounding whitespace is ignored.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
)

// DefaultZone is the display zone used when none is configured.
const DefaultZone = "America/Chicago"

// DefaultLookback applies when a range has no lower bound.
const DefaultLookback = "3d"

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
	displayLayout  = "2006-01-02 15:04:05 MST"
)

var (
	relativePattern = regexp.MustCompile(`^(\d+)([hdwmy])$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})$`)
)

// Service resolves date expressions against a clock and a display zone.
// The zero value uses UTC, the wall clock and a 3d lookback.
type Service struct {
	Location        *time.Location
	Now             func() time.Time
	DefaultLookback string
}

// New returns a Service for the named zone. An empty zone selects DefaultZone.
func New(zone, lookback string) (*Service, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	if lookback == "" {
		lookback = DefaultLookback
	}
	if !IsRelative(lookback) {
		return nil, fmt.Errorf("default lookback %q: %w", lookback, grerrors.ErrInvalidDateExpression)
	}
	return &Service{Location: loc, Now: time.Now, DefaultLookback: lookback}, nil
}

func (s *Service) loc() *time.Location {
	if s == nil || s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *Service) now() time.Time {
	if s == nil || s.Now == nil {
		return time.Now().In(s.loc())
	}
	return s.Now().In(s.loc())
}

// Lookback returns the expression applied when a range has neither bound.
func (s *Service) Lookback() string {
	if s == nil || s.DefaultLookback == "" {
		return DefaultLookback
	}
	return s.DefaultLookback
}

// Range is a closed interval of instants. A zero Start means the range has
// no lower bound.
type Range struct {
	Start time.Time
	End   time.Time
}

// Open reports whether the range has no lower bound.
func (r Range) Open() bool {
	return r.Start.IsZero()
}

// Contains reports whether t lies in the range, inclusive at both ends.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// IsRelative reports whether expr matches the relative grammar.
func IsRelative(expr string) bool {
	return relativePattern.MatchString(normalize(expr))
}

// IsDateOnly reports whether expr is an absolute date with no time component.
func IsDateOnly(expr string) bool {
	return datePattern.MatchString(normalize(expr))
}

// Validate checks expr against both grammars without resolving it. Calendar
// validity (e.g. 2025-02-30) is checked too.
func Validate(expr string) error {
	var s *Service
	_, err := s.ParseInstant(expr)
	return err
}

func normalize(expr string) string {
	return strings.ToLower(strings.TrimSpace(expr))
}

// ParseInstant resolves a single date expression.
func (s *Service) ParseInstant(expr string) (time.Time, error) {
	e := normalize(expr)
	if m := relativePattern.FindStringSubmatch(e); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("%q: %w", expr, grerrors.ErrInvalidDateExpression)
		}
		return s.before(n, m[2]), nil
	}
	if datePattern.MatchString(e) {
		t, err := time.ParseInLocation(dateLayout, e, s.loc())
		if err != nil {
			return time.Time{}, fmt.Errorf("%q: %w", expr, grerrors.ErrInvalidDateExpression)
		}
		return t, nil
	}
	if m := dateTimePattern.FindStringSubmatch(e); m != nil {
		t, err := time.ParseInLocation(dateTimeLayout, m[1]+" "+m[2], s.loc())
		if err != nil {
			return time.Time{}, fmt.Errorf("%q: %w", expr, grerrors.ErrInvalidDateExpression)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%q: expected relative (3d, 24h, 1w) or absolute (YYYY-MM-DD): %w",
		expr, grerrors.ErrInvalidDateExpression)
}

// before subtracts n units from now. Hours are exact durations; day-based
// units move the calendar in the display zone.
func (s *Service) before(n int, unit string) time.Time {
	now := s.now()
	switch unit {
	case "h":
		return now.Add(-time.Duration(n) * time.Hour)
	case "w":
		return now.AddDate(0, 0, -7*n)
	case "m":
		return now.AddDate(0, 0, -30*n)
	case "y":
		return now.AddDate(0, 0, -365*n)
	default:
		return now.AddDate(0, 0, -n)
	}
}

// Range resolves a from/to pair. When both are empty the range is the
// default lookback up to now. An empty from with a to leaves the lower bound
// open, and an empty to means now. A date-only to covers the whole of that
// day. Reversed bounds are swapped.
func (s *Service) Range(from, to string) (Range, error) {
	var (
		start time.Time
		err   error
	)
	switch {
	case strings.TrimSpace(from) != "":
		start, err = s.ParseInstant(from)
	case strings.TrimSpace(to) == "":
		start, err = s.ParseInstant(s.Lookback())
	}
	if err != nil {
		return Range{}, err
	}

	end := s.now()
	if strings.TrimSpace(to) != "" {
		end, err = s.ParseInstant(to)
		if err != nil {
			return Range{}, err
		}
		if IsDateOnly(to) {
			end = s.EndOfDay(end)
		}
	}

	if start.After(end) {
		start, end = end, start
	}
	return Range{Start: start, End: end}, nil
}

// OptionalRange returns nil when both bounds are omitted, otherwise Range(from, to).
func (s *Service) OptionalRange(from, to string) (*Range, error) {
	if strings.TrimSpace(from) == "" && strings.TrimSpace(to) == "" {
		return nil, nil
	}
	r, err := s.Range(from, to)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ToDisplay converts t into the display zone.
func (s *Service) ToDisplay(t time.Time) time.Time {
	return t.In(s.loc())
}

// DayKey returns the calendar day of t in the display zone.
func (s *Service) DayKey(t time.Time) string {
	return t.In(s.loc()).Format(dateLayout)
}

// StartOfDay returns midnight of t's calendar day in the display zone.
func (s *Service) StartOfDay(t time.Time) time.Time {
	d := t.In(s.loc())
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc())
}

// EndOfDay returns the last representable instant of t's day in the display zone.
func (s *Service) EndOfDay(t time.Time) time.Time {
	return s.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// FormatDisplay renders t as "YYYY-MM-DD HH:MM:SS ZONE" in the display zone.
func (s *Service) FormatDisplay(t time.Time) string {
	return t.In(s.loc()).Format(displayLayout)
}

// Zone returns the display zone.
func (s *Service) Zone() *time.Location {
	return s.loc()
}
