// internal/models/artifacts.go
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementMoM MovementType = "MoM"
	MovementYoY MovementType = "YoY"
)

type Significance string

const (
	SignificanceCritical Significance = "Critical"
	SignificanceHigh     Significance = "High"
	SignificanceMedium   Significance = "Medium"
	SignificanceLow      Significance = "Low"
)

// Weight orders significance levels, higher is more significant.
func (s Significance) Weight() int {
	switch s {
	case SignificanceCritical:
		return 4
	case SignificanceHigh:
		return 3
	case SignificanceMedium:
		return 2
	case SignificanceLow:
		return 1
	}
	return 0
}

// MovementRecord is a flagged period-over-period change produced by the movement detector.
type MovementRecord struct {
	ID             string          `json:"id"`
	Account        string          `json:"account"`
	Type           MovementType    `json:"type"`
	PreviousPeriod Period          `json:"previousPeriod"`
	CurrentPeriod  Period          `json:"currentPeriod"`
	PreviousAmount decimal.Decimal `json:"previousAmount"`
	CurrentAmount  decimal.Decimal `json:"currentAmount"`
	Delta          decimal.Decimal `json:"delta"`
	Percent        *float64        `json:"percent,omitempty"`
	Significance   Significance    `json:"significance"`
	Rank           int             `json:"rank"`
}

// Span covers both periods of the movement.
func (m MovementRecord) Span() Period {
	start, end := m.PreviousPeriod.Start, m.CurrentPeriod.End
	if m.CurrentPeriod.Start.Before(start) {
		start = m.CurrentPeriod.Start
	}
	if m.PreviousPeriod.End.After(end) {
		end = m.PreviousPeriod.End
	}
	return Period{Start: start, End: end}
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) Weight() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// AnomalyRecord is a flagged transaction produced by the anomaly detector.
type AnomalyRecord struct {
	ID          string          `json:"id"`
	Account     string          `json:"account"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
}

type anomalyJSON struct {
	ID          string          `json:"id"`
	Account     string          `json:"account"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description,omitempty"`
}

// MarshalJSON writes the date as a calendar day.
func (a AnomalyRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(anomalyJSON{
		ID:          a.ID,
		Account:     a.Account,
		Date:        a.Date.Format(DateLayout),
		Amount:      a.Amount,
		Severity:    a.Severity,
		Description: a.Description,
	})
}

func (a *AnomalyRecord) UnmarshalJSON(data []byte) error {
	var raw anomalyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("invalid anomaly date %q: %w", raw.Date, err)
	}
	*a = AnomalyRecord{
		ID:          raw.ID,
		Account:     raw.Account,
		Date:        date,
		Amount:      raw.Amount,
		Severity:    raw.Severity,
		Description: raw.Description,
	}
	return nil
}

type ChartKind string

const (
	ChartTrend     ChartKind = "trend"
	ChartYoY       ChartKind = "yoy"
	ChartWaterfall ChartKind = "waterfall"
)

// ChartRef is an opaque chart identifier the response may cite.
type ChartRef struct {
	ID      string    `json:"id"`
	Kind    ChartKind `json:"kind"`
	Account string    `json:"account,omitempty"`
}

type ArtifactSet struct {
	Movements []MovementRecord `json:"movements"`
	Anomalies []AnomalyRecord  `json:"anomalies"`
	Charts    []ChartRef       `json:"charts"`
}
