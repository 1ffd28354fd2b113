// internal/models/period.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for periods on the wire and in cache keys.
const DateLayout = "2006-01-02"

// Period is a half-open [Start, End) calendar range. Both bounds are UTC midnights.
type Period struct {
	Label string
	Start time.Time
	End   time.Time
}

// NewPeriod truncates both bounds to UTC dates.
func NewPeriod(label string, start, end time.Time) Period {
	return Period{
		Label: label,
		Start: Day(start),
		End:   Day(end),
	}
}

// Day returns t at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(p.Start) && d.Before(p.End)
}

// Overlaps reports whether the two ranges share at least one day.
func (p Period) Overlaps(o Period) bool {
	return p.Start.Before(o.End) && o.Start.Before(p.End)
}

// Days is the number of calendar days covered.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours() / 24)
}

// IsZero reports an unset period.
func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// Display returns the label, or the range when no label was assigned.
func (p Period) Display() string {
	if p.Label != "" {
		return p.Label
	}
	last := p.End.AddDate(0, 0, -1)
	if p.Days() == 1 {
		return p.Start.Format(DateLayout)
	}
	return fmt.Sprintf("%s to %s", p.Start.Format(DateLayout), last.Format(DateLayout))
}

// String renders the canonical "start/end" form accepted by ParsePeriod.
func (p Period) String() string {
	return p.Start.Format(DateLayout) + "/" + p.End.Format(DateLayout)
}

// ParsePeriod parses the canonical "start/end" form.
func ParsePeriod(s string) (Period, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("invalid period %q: expected start/end", s)
	}
	start, err := time.Parse(DateLayout, parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period start %q: %w", parts[0], err)
	}
	end, err := time.Parse(DateLayout, parts[1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period end %q: %w", parts[1], err)
	}
	if !start.Before(end) {
		return Period{}, fmt.Errorf("invalid period %q: start must be before end", s)
	}
	return Period{Start: start, End: end}, nil
}

type periodJSON struct {
	Label string `json:"label,omitempty"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(periodJSON{
		Label: p.Label,
		Start: p.Start.Format(DateLayout),
		End:   p.End.Format(DateLayout),
	})
}

func (p *Period) UnmarshalJSON(data []byte) error {
	var raw periodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePeriod(raw.Start + "/" + raw.End)
	if err != nil {
		return err
	}
	parsed.Label = raw.Label
	*p = parsed
	return nil
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Label: start.Format("January 2006"),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}
