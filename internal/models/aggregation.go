// internal/models/aggregation.go
package models

import "github.com/shopspring/decimal"

type Totals struct {
	Sum   decimal.Decimal `json:"sum"`
	Count int             `json:"count"`
	Min   decimal.Decimal `json:"min"`
	Max   decimal.Decimal `json:"max"`
	Mean  decimal.Decimal `json:"mean"`
}

type AccountTotal struct {
	Account string          `json:"account"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
}

type PeriodTotal struct {
	Period Period          `json:"period"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// ComparisonSide is one operand of a comparison. Missing means no records matched.
type ComparisonSide struct {
	Label   string          `json:"label"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Missing bool            `json:"missing"`
}

type Comparison struct {
	Base     ComparisonSide  `json:"base"`
	Compared ComparisonSide  `json:"compared"`
	Delta    decimal.Decimal `json:"delta"`
	// PercentChange is nil when the base is zero or either side is missing.
	PercentChange *float64 `json:"percentChange,omitempty"`
}

type TrendDirection string

const (
	TrendIncreasing   TrendDirection = "increasing"
	TrendDecreasing   TrendDirection = "decreasing"
	TrendFlat         TrendDirection = "flat"
	TrendInsufficient TrendDirection = "insufficient"
)

type Trend struct {
	Granularity   string         `json:"granularity"`
	Series        []PeriodTotal  `json:"series"`
	Direction     TrendDirection `json:"direction"`
	PercentChange *float64       `json:"percentChange,omitempty"`
}

// Resolution is the outcome of canonicalizing one account mention.
type Resolution struct {
	Mention   string   `json:"mention"`
	Accounts  []string `json:"accounts"`
	Ambiguous bool     `json:"ambiguous"`
}

func (r Resolution) Unknown() bool {
	return len(r.Accounts) == 0
}

// AggregationResult holds the numeric facts for one turn.
type AggregationResult struct {
	Matched      []FinancialRecord `json:"matched"`
	Totals       Totals            `json:"totals"`
	ByAccount    []AccountTotal    `json:"byAccount"`
	ByPeriod     []PeriodTotal     `json:"byPeriod"`
	Ranking      []AccountTotal    `json:"ranking,omitempty"`
	Comparison   *Comparison       `json:"comparison,omitempty"`
	Trend        *Trend            `json:"trend,omitempty"`
	Movements    []MovementRecord  `json:"movements,omitempty"`
	Anomalies    []AnomalyRecord   `json:"anomalies,omitempty"`
	Drivers      []FinancialRecord `json:"drivers,omitempty"`
	ArtifactMiss bool              `json:"artifactMiss"`
	Resolutions  []Resolution      `json:"resolutions,omitempty"`
	Charts       []ChartRef        `json:"charts,omitempty"`
}

type ReasonCode string

const (
	ReasonNoData         ReasonCode = "no_data"
	ReasonUnknownAccount ReasonCode = "unknown_account"
	ReasonPeriodEmpty    ReasonCode = "period_empty"
	ReasonNoMatches      ReasonCode = "no_matches"
)

type Reason struct {
	Code    ReasonCode `json:"code"`
	Subject string     `json:"subject,omitempty"`
	Message string     `json:"message"`
}

// Availability is the pre-aggregation validation outcome.
type Availability struct {
	Available bool     `json:"available"`
	Reasons   []Reason `json:"reasons,omitempty"`
	// Suggestions are account names the user could ask about instead.
	Suggestions []string `json:"suggestions,omitempty"`
	// Coverage is the date window the dataset spans; set whenever a period or filter came up empty.
	Coverage *Period `json:"coverage,omitempty"`
}

// HasReason reports whether a reason with the given code was recorded.
func (a Availability) HasReason(code ReasonCode) bool {
	for _, r := range a.Reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

// Blocks reports whether the turn must be answered with the unavailable message.
// A comparison still runs when only some of its periods are empty, so it can report them.
func (a Availability) Blocks(intent Intent) bool {
	if a.Available {
		return false
	}
	if intent != IntentComparisonQuery {
		return true
	}
	for _, r := range a.Reasons {
		if r.Code != ReasonPeriodEmpty {
			return true
		}
	}
	return false
}
