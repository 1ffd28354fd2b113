package respond

import (
	"fmt"
	"math"
	"strings"
	"time"

	"finquery-workers/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const dateLayout = "January 2, 2006"

// Currency renders $1,234.56, negatives as -$1,234.56.
func Currency(d decimal.Decimal) string {
	v := d.Round(2).InexactFloat64()
	s := humanize.FormatFloat("#,###.##", math.Abs(v))
	if v < 0 {
		return "-$" + s
	}
	return "$" + s
}

// SignedCurrency always carries a sign, for deltas.
func SignedCurrency(d decimal.Decimal) string {
	if d.IsNegative() {
		return Currency(d)
	}
	return "+" + Currency(d)
}

// Percent renders one decimal with an explicit sign, e.g. +12.5%.
func Percent(p float64) string {
	return fmt.Sprintf("%+.1f%%", p)
}

// PercentOrNA renders nil as N/A.
func PercentOrNA(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return Percent(*p)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

var metricNouns = map[string]string{
	models.MetricRevenue: "revenue",
	models.MetricExpense: "expenses",
	models.MetricCash:    "cash",
	models.MetricProfit:  "profit",
	models.MetricMargin:  "margin",
}

// subject names what the turn is about: resolved accounts, else metrics, else everything.
func subject(agg models.AggregationResult, ents models.EntitySet) string {
	if len(agg.Resolutions) > 0 {
		var names []string
		for _, r := range agg.Resolutions {
			if len(r.Accounts) == 0 {
				names = append(names, r.Mention)
				continue
			}
			names = append(names, r.Accounts...)
		}
		return joinAnd(dedupe(names))
	}
	if len(ents.Metrics) > 0 {
		var nouns []string
		for _, m := range ents.Metrics {
			if n, ok := metricNouns[m]; ok {
				nouns = append(nouns, n)
			}
		}
		if len(nouns) > 0 {
			return joinAnd(nouns)
		}
	}
	return "all accounts"
}

func periodSuffix(ents models.EntitySet) string {
	if len(ents.Periods) == 0 {
		return ""
	}
	labels := make([]string, len(ents.Periods))
	for i, p := range ents.Periods {
		labels[i] = p.Display()
	}
	return " for " + joinAnd(labels)
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
