package respond

import (
	"strings"

	"finquery-workers/internal/models"
)

// ==========================
// Data summary
// ==========================

func formatSummary(b *builder, agg models.AggregationResult, ents models.EntitySet) {
	t := agg.Totals
	b.line("%s%s: total %s across %s.",
		capitalize(subject(agg, ents)), periodSuffix(ents), Currency(t.Sum), plural(t.Count, "transaction", "transactions"))
	if t.Count > 1 {
		b.line("Average %s, largest %s, smallest %s.", Currency(t.Mean), Currency(t.Max), Currency(t.Min))
	}
	if len(agg.ByAccount) > 1 {
		parts := make([]string, len(agg.ByAccount))
		for i, at := range agg.ByAccount {
			parts[i] = at.Account + " " + Currency(at.Total)
		}
		b.line("By account: %s.", strings.Join(parts, "; "))
	}
	if len(agg.ByPeriod) > 1 {
		parts := make([]string, len(agg.ByPeriod))
		for i, pt := range agg.ByPeriod {
			parts[i] = pt.Period.Display() + " " + Currency(pt.Total)
		}
		b.line("By period: %s.", strings.Join(parts, "; "))
	}
}

// ==========================
// Ranking
// ==========================

func formatRanking(b *builder, agg models.AggregationResult, ents models.EntitySet) {
	if len(agg.Ranking) == 0 {
		b.line("There are no transactions for %s%s to rank.", subject(agg, ents), periodSuffix(ents))
		return
	}
	b.line("Top %d by total for %s%s:", len(agg.Ranking), subject(agg, ents), periodSuffix(ents))
	for i, at := range agg.Ranking {
		b.line("%d. %s: %s (%s)", i+1, at.Account, Currency(at.Total), plural(at.Count, "transaction", "transactions"))
	}
}

// ==========================
// Movement explanation
// ==========================

func formatMovements(b *builder, agg models.AggregationResult, ents models.EntitySet) {
	if len(agg.Movements) == 0 {
		b.line("There are no transactions for %s%s to explain.", subject(agg, ents), periodSuffix(ents))
		return
	}

	if t := agg.Totals; t.Count > 0 {
		b.line("%s%s totals %s across %s.",
			capitalize(subject(agg, ents)), periodSuffix(ents), Currency(t.Sum), plural(t.Count, "transaction", "transactions"))
	}
	if agg.ArtifactMiss {
		b.line("No flagged movement matched %s%s, so the change below is recomputed from the transactions.",
			subject(agg, ents), periodSuffix(ents))
	} else {
		b.line("Here is what drove the change in %s%s (%s on record):",
			subject(agg, ents), periodSuffix(ents), plural(len(agg.Movements), "flagged movement", "flagged movements"))
	}

	for i, m := range agg.Movements {
		if i == maxListed {
			break
		}
		verb := "was unchanged"
		switch {
		case m.Delta.IsPositive():
			verb = "rose"
		case m.Delta.IsNegative():
			verb = "fell"
		}
		line := "- " + m.Account + " " + verb + " from " + Currency(m.PreviousAmount) + " in " + m.PreviousPeriod.Display() +
			" to " + Currency(m.CurrentAmount) + " in " + m.CurrentPeriod.Display() +
			", a change of " + SignedCurrency(m.Delta) + " (" + PercentOrNA(m.Percent) + ")."
		if m.ID != "" {
			line += " " + movementTypeName(m.Type)
			if m.Significance != "" {
				line += ", " + string(m.Significance) + " significance"
			}
			line += " [" + m.ID + "]."
			b.cite(m.ID)
		}
		b.line("%s", line)
	}

	formatDrivers(b, agg.Drivers, "Largest transactions")
}

func movementTypeName(t models.MovementType) string {
	if t == models.MovementYoY {
		return "Year-over-year movement"
	}
	return "Month-over-month movement"
}

func formatDrivers(b *builder, drivers []models.FinancialRecord, title string) {
	if len(drivers) == 0 {
		return
	}
	parts := make([]string, len(drivers))
	for i, r := range drivers {
		name := r.Description
		if name == "" {
			name = r.Account
		} else {
			name += ", " + r.Account
		}
		parts[i] = name + " " + Currency(r.Amount) + " on " + formatDate(r.Date)
	}
	b.line("%s: %s.", title, strings.Join(parts, "; "))
}

// ==========================
// Anomaly explanation
// ==========================

func formatAnomalies(b *builder, agg models.AggregationResult, ents models.EntitySet) {
	if len(agg.Anomalies) == 0 {
		b.line("No flagged anomalies for %s%s.", subject(agg, ents), periodSuffix(ents))
		formatDrivers(b, agg.Drivers, "The largest transactions were")
		return
	}

	b.line("Found %s for %s%s:",
		plural(len(agg.Anomalies), "flagged anomaly", "flagged anomalies"), subject(agg, ents), periodSuffix(ents))
	for i, a := range agg.Anomalies {
		if i == maxListed {
			break
		}
		line := "- [" + a.ID + "] " + a.Account + " " + Currency(a.Amount) + " on " + formatDate(a.Date) +
			" (" + string(a.Severity) + " severity)"
		if a.Description != "" {
			line += ": " + a.Description
		}
		b.line("%s.", strings.TrimSuffix(line, "."))
		b.cite(a.ID)
	}
}

// ==========================
// Comparison
// ==========================

func formatComparison(b *builder, agg models.AggregationResult, ents models.EntitySet) {
	c := agg.Comparison
	if c == nil {
		b.line("There is not enough data to compare %s.", subject(agg, ents))
		return
	}

	b.line("Comparing %s: %s vs %s.", subject(agg, ents), c.Base.Label, c.Compared.Label)
	for _, s := range []models.ComparisonSide{c.Base, c.Compared} {
		if s.Missing {
			b.line("- %s: no data.", s.Label)
			continue
		}
		b.line("- %s: %s (%s)", s.Label, Currency(s.Total), plural(s.Count, "transaction", "transactions"))
	}

	var missing []string
	for _, s := range []models.ComparisonSide{c.Base, c.Compared} {
		if s.Missing {
			missing = append(missing, s.Label)
		}
	}
	if len(missing) > 0 {
		b.line("There is no data for %s, so no change can be computed.", joinAnd(missing))
		return
	}
	b.line("Change: %s (%s).", SignedCurrency(c.Delta), PercentOrNA(c.PercentChange))
}

// ==========================
// Trend
// ==========================

func formatTrend(b *builder, agg models.AggregationResult, ents models.EntitySet) {
	t := agg.Trend
	if t == nil || t.Direction == models.TrendInsufficient {
		b.line("There are not enough data points to determine a trend for %s%s.", subject(agg, ents), periodSuffix(ents))
		return
	}

	first, last := t.Series[0], t.Series[len(t.Series)-1]
	b.line("%s%s is %s on a %s basis, from %s (%s) to %s (%s), %s.",
		capitalize(subject(agg, ents)), periodSuffix(ents), t.Direction, t.Granularity,
		Currency(first.Total), first.Period.Display(), Currency(last.Total), last.Period.Display(),
		PercentOrNA(t.PercentChange))
	for _, pt := range t.Series {
		b.line("- %s: %s", pt.Period.Display(), Currency(pt.Total))
	}
}
