package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a clock time expressed as minutes from midnight.
type TimeOfDay int

// ParseTimeOfDay parses a 24h "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("schedule: parse time of day %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("schedule: time of day %q out of range", s)
	}
	return TimeOfDay(hh*60 + mm), nil
}

// MustTimeOfDay parses a "HH:MM" string and panics on failure. Test helper.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText renders the time as "HH:MM" for JSON payloads.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses "HH:MM" from JSON payloads.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// BreakInterval is a labelled span subtracted from a day's open hours.
// Overlapping breaks are allowed in input and treated as a union of excluded
// time.
type BreakInterval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
	Label string    `json:"label,omitempty"`
}

// DayHours is the working-hours entry for a single weekday.
type DayHours struct {
	Enabled bool            `json:"enabled"`
	Start   TimeOfDay       `json:"start"`
	End     TimeOfDay       `json:"end"`
	Breaks  []BreakInterval `json:"breaks,omitempty"`
}

// WorkingHoursConfig maps each weekday to its hours. Days absent from the map
// contribute no open intervals.
type WorkingHoursConfig struct {
	Timezone string
	Days     map[time.Weekday]DayHours
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

type workingHoursJSON struct {
	Timezone string              `json:"timezone,omitempty"`
	Days     map[string]DayHours `json:"days"`
}

// MarshalJSON renders days keyed by lowercase weekday name.
func (c WorkingHoursConfig) MarshalJSON() ([]byte, error) {
	out := workingHoursJSON{Timezone: c.Timezone, Days: map[string]DayHours{}}
	for name, wd := range weekdayNames {
		if day, ok := c.Days[wd]; ok {
			out.Days[name] = day
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses days keyed by lowercase weekday name.
func (c *WorkingHoursConfig) UnmarshalJSON(b []byte) error {
	var in workingHoursJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	c.Timezone = in.Timezone
	c.Days = map[time.Weekday]DayHours{}
	for name, day := range in.Days {
		wd, ok := weekdayNames[name]
		if !ok {
			return fmt.Errorf("schedule: unknown weekday %q", name)
		}
		c.Days[wd] = day
	}
	return nil
}

// Location resolves the configured timezone, defaulting to UTC.
func (c WorkingHoursConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule: load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate returns human-readable warnings for entries that will silently
// produce a closed day (enabled day with start >= end, or an inverted break).
// A warned config is still usable; the bad day just contributes no open time.
func (c WorkingHoursConfig) Validate() []string {
	var warnings []string
	for name, wd := range weekdayNames {
		day, ok := c.Days[wd]
		if !ok || !day.Enabled {
			continue
		}
		if day.Start >= day.End {
			warnings = append(warnings, fmt.Sprintf("%s: start %s is not before end %s, day treated as closed", name, day.Start, day.End))
		}
		for _, br := range day.Breaks {
			if br.Start >= br.End {
				warnings = append(warnings, fmt.Sprintf("%s: break %s-%s has no length and is ignored", name, br.Start, br.End))
			}
		}
	}
	return warnings
}

// OpenIntervals computes the sorted, non-overlapping spans during which the
// provider is bookable on the calendar day containing date, before any
// appointment exclusions. A disabled, absent, or misconfigured day yields
// nothing rather than an error, so one bad entry cannot blind a whole week.
func OpenIntervals(cfg WorkingHoursConfig, date time.Time) ([]Interval, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	local := date.In(loc)
	year, month, dayOfMonth := local.Date()
	midnight := time.Date(year, month, dayOfMonth, 0, 0, 0, 0, loc)

	day, ok := cfg.Days[midnight.Weekday()]
	if !ok || !day.Enabled {
		return nil, nil
	}
	if day.Start >= day.End {
		// Lenient policy: an inverted range reads as a closed day.
		return nil, nil
	}

	at := func(t TimeOfDay) time.Time {
		return midnight.Add(time.Duration(t) * time.Minute)
	}
	open := Interval{Start: at(day.Start), End: at(day.End)}

	blocks := make([]Interval, 0, len(day.Breaks))
	for _, br := range day.Breaks {
		blocks = append(blocks, Interval{Start: at(br.Start), End: at(br.End)})
	}
	return Subtract(open, blocks), nil
}
