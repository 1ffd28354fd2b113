package aggregate

import (
	"sort"

	"finquery-workers/internal/models"

	"github.com/shopspring/decimal"
)

// ==========================
// Comparison
// ==========================

// compare picks its operands in order: the first two periods, the first two account
// mentions, or the latest month in scope against the month before it.
func compare(
	records []models.FinancialRecord,
	sc scope,
	matched []models.FinancialRecord,
	ents models.EntitySet,
	resolutions []models.Resolution,
) *models.Comparison {
	switch {
	case len(ents.Periods) >= 2:
		base, compared := ents.Periods[0], ents.Periods[1]
		return newComparison(
			side(base.Display(), matched, func(r models.FinancialRecord) bool { return base.Contains(r.Date) }),
			side(compared.Display(), matched, func(r models.FinancialRecord) bool { return compared.Contains(r.Date) }),
		)

	case len(resolutions) >= 2:
		a, b := resolutions[0], resolutions[1]
		return newComparison(
			side(resolutionLabel(a), matched, accountIn(a.Accounts)),
			side(resolutionLabel(b), matched, accountIn(b.Accounts)),
		)
	}

	months := monthly(filter(records, sc, nil))
	if len(months) == 0 {
		return nil
	}
	latest := months[len(months)-1].Period
	if len(ents.Periods) == 1 {
		for i := len(months) - 1; i >= 0; i-- {
			if months[i].Period.Overlaps(ents.Periods[0]) {
				latest = months[i].Period
				break
			}
		}
	}
	previous := models.MonthOf(latest.Start.AddDate(0, -1, 0))
	scoped := filter(records, sc, []models.Period{previous, latest})
	return newComparison(
		side(previous.Display(), scoped, func(r models.FinancialRecord) bool { return previous.Contains(r.Date) }),
		side(latest.Display(), scoped, func(r models.FinancialRecord) bool { return latest.Contains(r.Date) }),
	)
}

func side(label string, records []models.FinancialRecord, keep func(models.FinancialRecord) bool) models.ComparisonSide {
	s := models.ComparisonSide{Label: label, Total: decimal.Zero}
	for _, r := range records {
		if keep(r) {
			s.Total = s.Total.Add(r.Amount)
			s.Count++
		}
	}
	s.Missing = s.Count == 0
	return s
}

func newComparison(base, compared models.ComparisonSide) *models.Comparison {
	c := &models.Comparison{
		Base:     base,
		Compared: compared,
		Delta:    compared.Total.Sub(base.Total),
	}
	if !base.Missing && !compared.Missing {
		c.PercentChange = percentChange(base.Total, compared.Total)
	}
	return c
}

func accountIn(accounts []string) func(models.FinancialRecord) bool {
	set := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		set[a] = true
	}
	return func(r models.FinancialRecord) bool { return set[r.Account] }
}

func resolutionLabel(r models.Resolution) string {
	if len(r.Accounts) == 1 {
		return r.Accounts[0]
	}
	return r.Mention
}

// ==========================
// Trend
// ==========================

const dailyTrendMaxDays = 31

// trend builds a chronological series, daily for spans up to a month and monthly beyond.
// Direction compares the magnitudes of the first and last points.
func trend(matched []models.FinancialRecord, flatThresholdPct float64) *models.Trend {
	t := &models.Trend{Direction: models.TrendInsufficient}
	span, ok := models.Coverage(matched)
	if !ok {
		return t
	}
	if span.Days() <= dailyTrendMaxDays {
		t.Granularity = "daily"
		t.Series = daily(matched)
	} else {
		t.Granularity = "monthly"
		t.Series = monthly(matched)
	}
	if len(t.Series) < 2 {
		return t
	}

	first := t.Series[0].Total.Abs()
	last := t.Series[len(t.Series)-1].Total.Abs()
	if first.IsZero() {
		if last.IsZero() {
			t.Direction = models.TrendFlat
		} else {
			t.Direction = models.TrendIncreasing
		}
		return t
	}

	t.PercentChange = percentChange(first, last)
	switch pct := *t.PercentChange; {
	case pct > -flatThresholdPct && pct < flatThresholdPct:
		t.Direction = models.TrendFlat
	case pct > 0:
		t.Direction = models.TrendIncreasing
	default:
		t.Direction = models.TrendDecreasing
	}
	return t
}

// ==========================
// Artifact lookup
// ==========================

// lookupMovements returns the flagged movements in scope whose current period overlaps a
// requested period, most important first.
func lookupMovements(movements []models.MovementRecord, sc scope, periods []models.Period) []models.MovementRecord {
	var out []models.MovementRecord
	for _, m := range movements {
		if !sc.admits(m.Account) || !overlapsAny(periods, m.CurrentPeriod) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rankKey(out[i].Rank), rankKey(out[j].Rank)
		if ri != rj {
			return ri < rj
		}
		if wi, wj := out[i].Significance.Weight(), out[j].Significance.Weight(); wi != wj {
			return wi > wj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// rankKey sorts unranked movements last.
func rankKey(rank int) int {
	if rank <= 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}

func overlapsAny(periods []models.Period, p models.Period) bool {
	if len(periods) == 0 {
		return true
	}
	for _, q := range periods {
		if q.Overlaps(p) {
			return true
		}
	}
	return false
}

// lookupAnomalies returns the flagged transactions in scope, most severe first.
func lookupAnomalies(anomalies []models.AnomalyRecord, sc scope, periods []models.Period) []models.AnomalyRecord {
	var out []models.AnomalyRecord
	for _, a := range anomalies {
		if !sc.admits(a.Account) {
			continue
		}
		if len(periods) > 0 && !inAny(periods, models.FinancialRecord{Date: a.Date}) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if wi, wj := out[i].Severity.Weight(), out[j].Severity.Weight(); wi != wj {
			return wi > wj
		}
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// recomputeMovements derives latest-month versus previous-month changes per matched account
// when no flagged movement exists. Results carry no ID and no significance.
func recomputeMovements(records []models.FinancialRecord, matched []models.FinancialRecord) []models.MovementRecord {
	var out []models.MovementRecord
	for _, at := range byAccount(matched) {
		var latest models.FinancialRecord
		for _, r := range matched {
			if r.Account == at.Account && (latest.Date.IsZero() || r.Date.After(latest.Date)) {
				latest = r
			}
		}
		current := models.MonthOf(latest.Date)
		previous := models.MonthOf(current.Start.AddDate(0, -1, 0))
		own := filter(records, scope{at.Account: true}, []models.Period{previous, current})

		cur := side(current.Display(), own, func(r models.FinancialRecord) bool { return current.Contains(r.Date) })
		prev := side(previous.Display(), own, func(r models.FinancialRecord) bool { return previous.Contains(r.Date) })

		out = append(out, models.MovementRecord{
			Account:        at.Account,
			Type:           models.MovementMoM,
			PreviousPeriod: previous,
			CurrentPeriod:  current,
			PreviousAmount: prev.Total,
			CurrentAmount:  cur.Total,
			Delta:          cur.Total.Sub(prev.Total),
			Percent:        percentChange(prev.Total, cur.Total),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Delta.Abs(), out[j].Delta.Abs()
		if !di.Equal(dj) {
			return di.GreaterThan(dj)
		}
		return out[i].Account < out[j].Account
	})
	return out
}
