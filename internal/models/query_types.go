// internal/models/query_types.go
package models

import (
	"strings"
)

type Intent string

const (
	IntentMovementExplanation Intent = "MovementExplanation"
	IntentDataSummary         Intent = "DataSummary"
	IntentRankingQuery        Intent = "RankingQuery"
	IntentAnomalyExplanation  Intent = "AnomalyExplanation"
	IntentComparisonQuery     Intent = "ComparisonQuery"
	IntentTrendAnalysis       Intent = "TrendAnalysis"
	IntentFollowUp            Intent = "FollowUp"
	IntentUnrelated           Intent = "Unrelated"
)

// AllIntents lists the closed intent set.
var AllIntents = []Intent{
	IntentMovementExplanation,
	IntentDataSummary,
	IntentRankingQuery,
	IntentAnomalyExplanation,
	IntentComparisonQuery,
	IntentTrendAnalysis,
	IntentFollowUp,
	IntentUnrelated,
}

func (i Intent) Valid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

type EntityKind string

const (
	EntityAccount EntityKind = "account"
	EntityPeriod  EntityKind = "period"
	EntityMetric  EntityKind = "metric"
)

// Metric values produced by the extractor.
const (
	MetricRevenue = "revenue"
	MetricExpense = "expense"
	MetricCash    = "cash"
	MetricProfit  = "profit"
	MetricMargin  = "margin"
)

// EntitySet holds extracted values per kind, in the order they appeared in the text.
type EntitySet struct {
	Accounts []string `json:"accounts,omitempty"`
	Periods  []Period `json:"periods,omitempty"`
	Metrics  []string `json:"metrics,omitempty"`
}

func (e EntitySet) IsEmpty() bool {
	return e.Count() == 0
}

// Count is the total number of extracted values across kinds.
func (e EntitySet) Count() int {
	return len(e.Accounts) + len(e.Periods) + len(e.Metrics)
}

// Has reports whether at least one value of the given kind is present.
func (e EntitySet) Has(kind EntityKind) bool {
	switch kind {
	case EntityAccount:
		return len(e.Accounts) > 0
	case EntityPeriod:
		return len(e.Periods) > 0
	case EntityMetric:
		return len(e.Metrics) > 0
	}
	return false
}

// HasMetric reports whether metric m was extracted.
func (e EntitySet) HasMetric(m string) bool {
	for _, v := range e.Metrics {
		if v == m {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can keep the original immutable.
func (e EntitySet) Clone() EntitySet {
	out := EntitySet{}
	if e.Accounts != nil {
		out.Accounts = append([]string(nil), e.Accounts...)
	}
	if e.Periods != nil {
		out.Periods = append([]Period(nil), e.Periods...)
	}
	if e.Metrics != nil {
		out.Metrics = append([]string(nil), e.Metrics...)
	}
	return out
}

// Key is the canonical form used for cache keys. Mention order, case and period labels
// are kept because each of them shows up in the answer text; order picks the comparison base.
func (e EntitySet) Key() string {
	periods := make([]string, len(e.Periods))
	for i, p := range e.Periods {
		periods[i] = p.Label + "@" + p.String()
	}
	return "a=" + strings.Join(e.Accounts, ",") +
		"|p=" + strings.Join(periods, ",") +
		"|m=" + strings.Join(e.Metrics, ",")
}

// RawQuery is one user utterance.
type RawQuery struct {
	Text string `json:"text"`
	Turn int    `json:"turn"`
}

// ParsedQuery is the classifier's view of a turn. Confidence is diagnostic only.
type ParsedQuery struct {
	Query      RawQuery  `json:"query"`
	Entities   EntitySet `json:"entities"`
	Intent     Intent    `json:"intent"`
	Rule       string    `json:"rule"`
	Confidence float64   `json:"confidence"`
}

// EffectiveQuery is a ParsedQuery after merging with the conversation context.
type EffectiveQuery struct {
	Parsed    ParsedQuery `json:"parsed"`
	Entities  EntitySet   `json:"entities"`
	Intent    Intent      `json:"intent"`
	Inherited bool        `json:"inherited"`
}

// ConversationContext is the rolling state of one session.
type ConversationContext struct {
	LastEntities EntitySet `json:"lastEntities"`
	LastIntent   Intent    `json:"lastIntent,omitempty"`
	TurnCount    int       `json:"turnCount"`
}

// Active reports whether a prior answerable turn exists to follow up on.
func (c *ConversationContext) Active() bool {
	return c != nil && c.TurnCount > 0 && c.LastIntent != "" && c.LastIntent != IntentUnrelated
}

// Snapshot returns a copy safe to read outside the session lock.
func (c *ConversationContext) Snapshot() ConversationContext {
	return ConversationContext{
		LastEntities: c.LastEntities.Clone(),
		LastIntent:   c.LastIntent,
		TurnCount:    c.TurnCount,
	}
}
