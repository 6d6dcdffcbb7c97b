package models

import (
	"fmt"
	"time"
)

// PeriodUnit is the unit of an import lookback window.
type PeriodUnit string

const (
	PeriodDay   PeriodUnit = "day"
	PeriodWeek  PeriodUnit = "week"
	PeriodMonth PeriodUnit = "month"
	PeriodYear  PeriodUnit = "year"
)

// Lookback is a period counted back from now.
type Lookback struct {
	Duration int        `json:"duration"`
	Unit     PeriodUnit `json:"unit"`
}

// LookbackPresets are the periods offered for the offline import.
var LookbackPresets = []Lookback{
	{1, PeriodWeek},
	{15, PeriodDay},
	{1, PeriodMonth},
	{3, PeriodMonth},
	{6, PeriodMonth},
	{1, PeriodYear},
	{2, PeriodYear},
}

func (l Lookback) String() string {
	return fmt.Sprintf("%d %s", l.Duration, l.Unit)
}

// Since returns now minus the lookback window, truncated to the day.
func (l Lookback) Since(now time.Time) (time.Time, error) {
	n := l.Duration
	var t time.Time
	switch l.Unit {
	case PeriodDay:
		t = now.AddDate(0, 0, -n)
	case PeriodWeek:
		t = now.AddDate(0, 0, -7*n)
	case PeriodMonth:
		t = now.AddDate(0, -n, 0)
	case PeriodYear:
		t = now.AddDate(-n, 0, 0)
	default:
		return time.Time{}, fmt.Errorf("unknown period unit %q", l.Unit)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()), nil
}

// OfflineFilter is the persisted configuration of the offline feature.
type OfflineFilter struct {
	ProgramLabel   string     `json:"programLabel,omitempty"`
	VesselID       int64      `json:"vesselId,omitempty"`
	VesselIDs      []int64    `json:"vesselIds,omitempty"`
	StartDate      Date       `json:"startDate,omitempty"`
	EndDate        Date       `json:"endDate,omitempty"`
	PeriodDuration int        `json:"periodDuration,omitempty"`
	PeriodUnit     PeriodUnit `json:"periodUnit,omitempty"`
	IncludedIDs    []int64    `json:"includedIds,omitempty"`
	ExcludedIDs    []int64    `json:"excludedIds,omitempty"`
}

// AllVesselIDs merges VesselID and VesselIDs without duplicates.
func (f OfflineFilter) AllVesselIDs() []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(f.VesselID)
	for _, id := range f.VesselIDs {
		add(id)
	}
	return out
}

// Resolve turns the persisted filter into a query filter. An explicit start
// date wins over the lookback window.
func (f OfflineFilter) Resolve(now time.Time) (CalendarFilter, error) {
	out := CalendarFilter{
		ProgramLabel: f.ProgramLabel,
		VesselIDs:    f.AllVesselIDs(),
		StartDate:    f.StartDate,
		EndDate:      f.EndDate,
		IncludedIDs:  f.IncludedIDs,
		ExcludedIDs:  f.ExcludedIDs,
	}
	if out.StartDate.IsZero() && f.PeriodDuration > 0 {
		since, err := Lookback{Duration: f.PeriodDuration, Unit: f.PeriodUnit}.Since(now)
		if err != nil {
			return CalendarFilter{}, err
		}
		out.StartDate = NewDate(since)
	}
	return out, nil
}

// CalendarFilter selects calendars for a remote query or an import.
type CalendarFilter struct {
	ProgramLabel string  `json:"programLabel,omitempty"`
	VesselIDs    []int64 `json:"vesselIds,omitempty"`
	StartDate    Date    `json:"startDate,omitempty"`
	EndDate      Date    `json:"endDate,omitempty"`
	IncludedIDs  []int64 `json:"includedIds,omitempty"`
	ExcludedIDs  []int64 `json:"excludedIds,omitempty"`
}

// ExtendToYear widens the period so that it covers the whole of year: the
// start date moves back to January 1st and a set end date moves forward to
// December 31st when needed. A calendar can always re-import its own year.
func (f CalendarFilter) ExtendToYear(year int) CalendarFilter {
	if year <= 0 {
		return f
	}
	jan1 := NewDate(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
	if f.StartDate.IsZero() || jan1.Before(f.StartDate) {
		f.StartDate = jan1
	}
	dec31 := NewDate(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
	if !f.EndDate.IsZero() && f.EndDate.Before(dec31) {
		f.EndDate = dec31
	}
	return f
}

// Match reports whether a calendar falls inside the filter.
func (f CalendarFilter) Match(c *Calendar) bool {
	if f.ProgramLabel != "" && c.ProgramLabel() != f.ProgramLabel {
		return false
	}
	if len(f.VesselIDs) > 0 && !containsID(f.VesselIDs, c.VesselID) {
		return false
	}
	if len(f.IncludedIDs) > 0 && !containsID(f.IncludedIDs, c.ID) {
		return false
	}
	if containsID(f.ExcludedIDs, c.ID) {
		return false
	}
	if !f.StartDate.IsZero() && c.Year < f.StartDate.Time().Year() {
		return false
	}
	if !f.EndDate.IsZero() && c.Year > f.EndDate.Time().Year() {
		return false
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
