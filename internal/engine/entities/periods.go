package entities

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"finquery-workers/internal/models"
)

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

// dateExpr matches a single calendar expression usable as a range bound.
const dateExpr = `\d{4}-\d{2}-\d{2}` +
	`|\d{1,2}/\d{1,2}/\d{4}` +
	`|(?:` + monthNames + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?` +
	`|\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?(?:` + monthNames + `)(?:,?\s+\d{4})?` +
	`|q[1-4](?:\s+\d{4})?` +
	`|(?:` + monthNames + `)(?:\s+\d{4})?` +
	`|\d{4}`

var (
	rangePattern      = regexp.MustCompile(`\b(?:between|from)\s+(` + dateExpr + `)\s+(?:and|to|through|until|-)\s+(` + dateExpr + `)\b`)
	isoPattern        = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usPattern         = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	monthDayPattern   = regexp.MustCompile(`\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	dayMonthPattern   = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthNames + `)(?:,?\s+(\d{4}))?\b`)
	quarterPattern    = regexp.MustCompile(`\bq([1-4])(?:\s+(\d{4}))?\b`)
	monthPattern      = regexp.MustCompile(`\b(` + monthNames + `)\b\.?(?:\s+(\d{4})\b)?`)
	yearPattern       = regexp.MustCompile(`\b(?:in|for|during|of|since|fy)\s*(\d{4})\b`)
	lastNPattern      = regexp.MustCompile(`\b(?:last|past|previous|trailing)\s+(\d{1,3})\s+(day|week|month)s?\b`)
	comparisonCue     = regexp.MustCompile(`\b(?:compare|compared|comparing|comparison|versus|vs)\b`)
	mayPrepositionCue = regexp.MustCompile(`\b(?:in|for|during|of|since|between|from|and|to|vs|versus|until|through)\s+$`)
)

type relativeMarker struct {
	pattern *regexp.Regexp
	resolve func(anchor time.Time) models.Period
}

var relativeMarkers = []relativeMarker{
	{regexp.MustCompile(`\b(?:year[\s-]to[\s-]date|ytd)\b`), func(a time.Time) models.Period {
		return models.NewPeriod(fmt.Sprintf("year to date %d", a.Year()), time.Date(a.Year(), 1, 1, 0, 0, 0, 0, time.UTC), a.AddDate(0, 0, 1))
	}},
	{regexp.MustCompile(`\b(?:month[\s-]to[\s-]date|mtd)\b`), func(a time.Time) models.Period {
		m := models.MonthOf(a)
		return models.NewPeriod("month to date "+m.Label, m.Start, a.AddDate(0, 0, 1))
	}},
	{regexp.MustCompile(`\b(?:last|previous|prior)\s+month\b`), func(a time.Time) models.Period {
		return models.MonthOf(models.MonthOf(a).Start.AddDate(0, -1, 0))
	}},
	{regexp.MustCompile(`\b(?:this|current)\s+month\b`), func(a time.Time) models.Period {
		return models.MonthOf(a)
	}},
	{regexp.MustCompile(`\b(?:last|previous|prior)\s+quarter\b`), func(a time.Time) models.Period {
		q := quarterOf(a)
		return quarterOf(q.Start.AddDate(0, -3, 0))
	}},
	{regexp.MustCompile(`\b(?:this|current)\s+quarter\b`), func(a time.Time) models.Period {
		return quarterOf(a)
	}},
	{regexp.MustCompile(`\b(?:last|previous|prior)\s+year\b`), func(a time.Time) models.Period {
		return yearOf(a.Year() - 1)
	}},
	{regexp.MustCompile(`\b(?:this|current)\s+year\b`), func(a time.Time) models.Period {
		return yearOf(a.Year())
	}},
	{regexp.MustCompile(`\b(?:last|previous|prior)\s+week\b`), func(a time.Time) models.Period {
		w := weekOf(a)
		return models.NewPeriod("last week", w.Start.AddDate(0, 0, -7), w.Start)
	}},
	{regexp.MustCompile(`\b(?:this|current)\s+week\b`), func(a time.Time) models.Period {
		w := weekOf(a)
		w.Label = "this week"
		return w
	}},
	{regexp.MustCompile(`\byesterday\b`), func(a time.Time) models.Period {
		return dayPeriod(a.AddDate(0, 0, -1))
	}},
	{regexp.MustCompile(`\btoday\b`), func(a time.Time) models.Period {
		return dayPeriod(a)
	}},
}

type span struct {
	start, end int
}

type periodMatch struct {
	pos    int
	period models.Period
}

type periodScanner struct {
	text    string
	anchor  time.Time
	taken   []span
	matches []periodMatch
}

func (s *periodScanner) free(start, end int) bool {
	for _, t := range s.taken {
		if start < t.end && t.start < end {
			return false
		}
	}
	return true
}

func (s *periodScanner) scan(re *regexp.Regexp, build func(groups []string, start int) ([]models.Period, bool)) {
	for _, loc := range re.FindAllStringSubmatchIndex(s.text, -1) {
		start, end := loc[0], loc[1]
		if !s.free(start, end) {
			continue
		}
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = s.text[loc[2*i]:loc[2*i+1]]
			}
		}
		periods, ok := build(groups, start)
		if !ok {
			continue
		}
		s.taken = append(s.taken, span{start, end})
		for i, p := range periods {
			s.matches = append(s.matches, periodMatch{pos: start + i, period: p})
		}
	}
}

// ExtractPeriods resolves every temporal expression in text to a concrete [start,end) range,
// relative markers against anchor. Results are in text order.
func ExtractPeriods(text string, anchor time.Time) []models.Period {
	s := &periodScanner{text: strings.ToLower(text), anchor: models.Day(anchor)}
	compare := comparisonCue.MatchString(s.text)

	s.scan(rangePattern, func(g []string, _ int) ([]models.Period, bool) {
		from, ok1 := parseDateExpr(g[1], s.anchor)
		to, ok2 := parseDateExpr(g[2], s.anchor)
		if !ok1 || !ok2 {
			return nil, false
		}
		if compare {
			return []models.Period{from, to}, true
		}
		if !from.Start.Before(to.End) {
			return nil, false
		}
		return []models.Period{models.NewPeriod(from.Display()+" to "+to.Display(), from.Start, to.End)}, true
	})

	for _, m := range relativeMarkers {
		resolve := m.resolve
		s.scan(m.pattern, func([]string, int) ([]models.Period, bool) {
			return []models.Period{resolve(s.anchor)}, true
		})
	}

	s.scan(lastNPattern, func(g []string, _ int) ([]models.Period, bool) {
		n, err := strconv.Atoi(g[1])
		if err != nil || n < 1 {
			return nil, false
		}
		end := s.anchor.AddDate(0, 0, 1)
		var start time.Time
		switch g[2] {
		case "day":
			start = end.AddDate(0, 0, -n)
		case "week":
			start = end.AddDate(0, 0, -7*n)
		case "month":
			start = models.MonthOf(s.anchor).Start.AddDate(0, -(n - 1), 0)
		}
		return []models.Period{models.NewPeriod(fmt.Sprintf("last %d %ss", n, g[2]), start, end)}, true
	})

	for _, re := range []*regexp.Regexp{isoPattern, usPattern, monthDayPattern, dayMonthPattern, quarterPattern} {
		s.scan(re, func(g []string, _ int) ([]models.Period, bool) {
			p, ok := parseDateExpr(g[0], s.anchor)
			return []models.Period{p}, ok
		})
	}

	s.scan(monthPattern, func(g []string, start int) ([]models.Period, bool) {
		if strings.HasPrefix(g[1], "may") && g[2] == "" && !mayPrepositionCue.MatchString(s.text[:start]) {
			return nil, false
		}
		p, ok := parseDateExpr(g[0], s.anchor)
		return []models.Period{p}, ok
	})

	s.scan(yearPattern, func(g []string, _ int) ([]models.Period, bool) {
		y, err := strconv.Atoi(g[1])
		if err != nil || y < 1900 || y > 2200 {
			return nil, false
		}
		return []models.Period{yearOf(y)}, true
	})

	sort.SliceStable(s.matches, func(i, j int) bool { return s.matches[i].pos < s.matches[j].pos })
	out := make([]models.Period, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m.period)
	}
	return out
}

// parseDateExpr resolves one dateExpr alternative. Missing years default to the anchor's year.
func parseDateExpr(expr string, anchor time.Time) (models.Period, bool) {
	expr = strings.TrimSpace(expr)

	if m := isoPattern.FindStringSubmatch(expr); m != nil && m[0] == expr {
		return dateFromParts(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := usPattern.FindStringSubmatch(expr); m != nil && m[0] == expr {
		return dateFromParts(atoi(m[3]), atoi(m[1]), atoi(m[2]))
	}
	if m := monthDayPattern.FindStringSubmatch(expr); m != nil && m[0] == expr {
		return dateFromParts(yearOr(m[3], anchor), int(monthIndex(m[1])), atoi(m[2]))
	}
	if m := dayMonthPattern.FindStringSubmatch(expr); m != nil && m[0] == expr {
		return dateFromParts(yearOr(m[3], anchor), int(monthIndex(m[2])), atoi(m[1]))
	}
	if m := quarterPattern.FindStringSubmatch(expr); m != nil && m[0] == expr {
		start := time.Date(yearOr(m[2], anchor), time.Month(3*(atoi(m[1])-1)+1), 1, 0, 0, 0, 0, time.UTC)
		return quarterOf(start), true
	}
	if m := monthPattern.FindStringSubmatch(expr); m != nil && strings.TrimSuffix(m[0], ".") == strings.TrimSuffix(expr, ".") {
		return models.MonthOf(time.Date(yearOr(m[2], anchor), monthIndex(m[1]), 1, 0, 0, 0, 0, time.UTC)), true
	}
	if len(expr) == 4 {
		if y := atoi(expr); y >= 1900 && y <= 2200 {
			return yearOf(y), true
		}
	}
	return models.Period{}, false
}

func dateFromParts(y, m, d int) (models.Period, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return models.Period{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return models.Period{}, false // e.g. February 30
	}
	return dayPeriod(t), true
}

func dayPeriod(t time.Time) models.Period {
	d := models.Day(t)
	return models.NewPeriod(d.Format("January 2, 2006"), d, d.AddDate(0, 0, 1))
}

func quarterOf(t time.Time) models.Period {
	q := (int(t.Month())-1)/3 + 1
	start := time.Date(t.Year(), time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC)
	return models.NewPeriod(fmt.Sprintf("Q%d %d", q, t.Year()), start, start.AddDate(0, 3, 0))
}

func yearOf(y int) models.Period {
	start := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.NewPeriod(strconv.Itoa(y), start, start.AddDate(1, 0, 0))
}

func weekOf(t time.Time) models.Period {
	d := models.Day(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	start := d.AddDate(0, 0, -offset)
	return models.NewPeriod("", start, start.AddDate(0, 0, 7))
}

func monthIndex(name string) time.Month {
	prefix := strings.TrimSuffix(name, ".")
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()[:3]) == prefix {
			return m
		}
	}
	return 0
}

func yearOr(s string, anchor time.Time) int {
	if s == "" {
		return anchor.Year()
	}
	return atoi(s)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
