package aggregate

import (
	"sort"
	"strings"
	"time"

	"finquery-workers/internal/engine/entities"
	"finquery-workers/internal/models"

	"github.com/shopspring/decimal"
)

// Options tunes the aggregation.
type Options struct {
	TopN             int
	FlatThresholdPct float64
	MaxDrivers       int
}

func DefaultOptions() Options {
	return Options{TopN: 5, FlatThresholdPct: 2, MaxDrivers: 3}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.FlatThresholdPct <= 0 {
		o.FlatThresholdPct = d.FlatThresholdPct
	}
	if o.MaxDrivers <= 0 {
		o.MaxDrivers = d.MaxDrivers
	}
	return o
}

// Extract filters the records to the effective entities and computes the facts the intent
// needs. It is pure: identical inputs give identical results.
func Extract(
	records []models.FinancialRecord,
	artifacts models.ArtifactSet,
	aliases *entities.AliasMap,
	eff models.EffectiveQuery,
	opts Options,
) models.AggregationResult {
	opts = opts.withDefaults()
	ents := eff.Entities

	resolutions := CanonicalizeAll(aliases, ents.Accounts)
	sc := scopeFor(aliases, ents, resolutions)
	matched := filter(records, sc, ents.Periods)

	result := models.AggregationResult{
		Matched:     matched,
		Totals:      totals(matched),
		ByAccount:   byAccount(matched),
		ByPeriod:    byPeriod(matched, ents.Periods),
		Resolutions: resolutions,
	}

	switch eff.Intent {
	case models.IntentRankingQuery:
		result.Ranking = rank(result.ByAccount, opts.TopN)
	case models.IntentComparisonQuery:
		result.Comparison = compare(records, sc, matched, ents, resolutions)
	case models.IntentTrendAnalysis:
		result.Trend = trend(matched, opts.FlatThresholdPct)
	case models.IntentMovementExplanation:
		result.Movements = lookupMovements(artifacts.Movements, sc, ents.Periods)
		if len(result.Movements) == 0 {
			result.ArtifactMiss = true
			result.Movements = recomputeMovements(records, matched)
		}
		result.Drivers = drivers(matched, opts.MaxDrivers)
	case models.IntentAnomalyExplanation:
		result.Anomalies = lookupAnomalies(artifacts.Anomalies, sc, ents.Periods)
		if len(result.Anomalies) == 0 {
			result.ArtifactMiss = true
			result.Drivers = drivers(matched, opts.MaxDrivers)
		}
	}

	if ents.Has(models.EntityAccount) {
		result.Charts = chartsFor(artifacts.Charts, sc)
	}
	return result
}

// filter keeps records admitted by the scope and falling in any of the periods.
// Output is ordered by date, then account.
func filter(records []models.FinancialRecord, sc scope, periods []models.Period) []models.FinancialRecord {
	var out []models.FinancialRecord
	for _, r := range records {
		if !sc.admits(r.Account) || !inAny(periods, r) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Account < out[j].Account
	})
	return out
}

func inAny(periods []models.Period, r models.FinancialRecord) bool {
	if len(periods) == 0 {
		return true
	}
	for _, p := range periods {
		if p.Contains(r.Date) {
			return true
		}
	}
	return false
}

func totals(records []models.FinancialRecord) models.Totals {
	t := models.Totals{Sum: decimal.Zero, Min: decimal.Zero, Max: decimal.Zero, Mean: decimal.Zero}
	for i, r := range records {
		t.Sum = t.Sum.Add(r.Amount)
		if i == 0 || r.Amount.LessThan(t.Min) {
			t.Min = r.Amount
		}
		if i == 0 || r.Amount.GreaterThan(t.Max) {
			t.Max = r.Amount
		}
	}
	t.Count = len(records)
	if t.Count > 0 {
		t.Mean = t.Sum.DivRound(decimal.NewFromInt(int64(t.Count)), 2)
	}
	return t
}

// byAccount sums per account, ordered by account name.
func byAccount(records []models.FinancialRecord) []models.AccountTotal {
	index := make(map[string]int)
	var out []models.AccountTotal
	for _, r := range records {
		i, ok := index[r.Account]
		if !ok {
			i = len(out)
			index[r.Account] = i
			out = append(out, models.AccountTotal{Account: r.Account, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(r.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// byPeriod totals each requested period, or each calendar month of the matched records
// when no period was requested.
func byPeriod(records []models.FinancialRecord, periods []models.Period) []models.PeriodTotal {
	if len(periods) == 0 {
		return monthly(records)
	}
	out := make([]models.PeriodTotal, 0, len(periods))
	for _, p := range periods {
		pt := models.PeriodTotal{Period: p, Total: decimal.Zero}
		for _, r := range records {
			if p.Contains(r.Date) {
				pt.Total = pt.Total.Add(r.Amount)
				pt.Count++
			}
		}
		out = append(out, pt)
	}
	return out
}

func monthly(records []models.FinancialRecord) []models.PeriodTotal {
	return bucket(records, models.MonthOf)
}

func daily(records []models.FinancialRecord) []models.PeriodTotal {
	return bucket(records, func(t time.Time) models.Period {
		d := models.Day(t)
		return models.NewPeriod(d.Format("January 2, 2006"), d, d.AddDate(0, 0, 1))
	})
}

// bucket groups records into the periods produced by of, chronologically.
func bucket(records []models.FinancialRecord, of func(time.Time) models.Period) []models.PeriodTotal {
	index := make(map[string]int)
	var out []models.PeriodTotal
	for _, r := range records {
		p := of(r.Date)
		i, ok := index[p.String()]
		if !ok {
			i = len(out)
			index[p.String()] = i
			out = append(out, models.PeriodTotal{Period: p, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(r.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Start.Before(out[j].Period.Start) })
	return out
}

// rank orders by absolute total descending, ties by account name, and keeps the top n.
func rank(totals []models.AccountTotal, n int) []models.AccountTotal {
	ranked := append([]models.AccountTotal(nil), totals...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ai, aj := ranked[i].Total.Abs(), ranked[j].Total.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return strings.ToLower(ranked[i].Account) < strings.ToLower(ranked[j].Account)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// drivers are the largest transactions by magnitude, earliest first on ties.
func drivers(records []models.FinancialRecord, n int) []models.FinancialRecord {
	sorted := append([]models.FinancialRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := sorted[i].Amount.Abs(), sorted[j].Amount.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func chartsFor(charts []models.ChartRef, sc scope) []models.ChartRef {
	var out []models.ChartRef
	for _, c := range charts {
		if c.Account != "" && sc.admits(c.Account) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func percentChange(base, compared decimal.Decimal) *float64 {
	if base.IsZero() {
		return nil
	}
	pct, _ := compared.Sub(base).Div(base.Abs()).Mul(decimal.NewFromInt(100)).Float64()
	return &pct
}
