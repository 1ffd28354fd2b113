// Package enginetest holds the shared ledger fixture used by the engine package tests.
package enginetest

import (
	"time"

	"finquery-workers/internal/models"

	"github.com/shopspring/decimal"
)

// Anchor is the "today" every fixture-based test resolves relative dates against.
var Anchor = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

// Clock returns a fixed timestamp so generated responses are comparable.
func Clock() time.Time {
	return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func record(d int, account, amount, description string) models.FinancialRecord {
	return models.FinancialRecord{
		Date:        day(d),
		Account:     account,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
	}
}

// Records is the ten-row January 2024 ledger.
func Records() []models.FinancialRecord {
	return []models.FinancialRecord{
		record(1, "Cash", "5000.00", "Opening balance"),
		record(2, "Revenue - Sales", "-1200.00", ""),
		record(3, "Expense - Marketing", "350.25", "Online ads"),
		record(4, "Expense - Rent", "1500.00", ""),
		record(5, "Revenue - Service", "-800.00", ""),
		record(6, "Expense - Utilities", "220.40", ""),
		record(7, "Expense - Marketing", "500.50", "Print campaign"),
		record(8, "Revenue - Sales", "-950.00", ""),
		record(9, "Expense - Utilities", "180.10", ""),
		record(10, "Cash", "-300.00", ""),
	}
}

func pct(v float64) *float64 {
	return &v
}

// Artifacts is the detector output matching Records.
func Artifacts() models.ArtifactSet {
	dec := models.MonthOf(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC))
	jan := models.MonthOf(day(1))
	return models.ArtifactSet{
		Movements: []models.MovementRecord{
			{
				ID:             "MOV-001",
				Account:        "Expense - Marketing",
				Type:           models.MovementMoM,
				PreviousPeriod: dec,
				CurrentPeriod:  jan,
				PreviousAmount: decimal.RequireFromString("400.00"),
				CurrentAmount:  decimal.RequireFromString("850.75"),
				Delta:          decimal.RequireFromString("450.75"),
				Percent:        pct(112.69),
				Significance:   models.SignificanceHigh,
				Rank:           1,
			},
			{
				ID:             "MOV-002",
				Account:        "Expense - Rent",
				Type:           models.MovementMoM,
				PreviousPeriod: dec,
				CurrentPeriod:  jan,
				PreviousAmount: decimal.RequireFromString("1400.00"),
				CurrentAmount:  decimal.RequireFromString("1500.00"),
				Delta:          decimal.RequireFromString("100.00"),
				Percent:        pct(7.14),
				Significance:   models.SignificanceLow,
				Rank:           2,
			},
		},
		Anomalies: []models.AnomalyRecord{
			{
				ID:          "ANO-001",
				Account:     "Expense - Rent",
				Date:        day(4),
				Amount:      decimal.RequireFromString("1500.00"),
				Severity:    models.SeverityHigh,
				Description: "Rent payment 3.1 standard deviations above the account mean",
			},
			{
				ID:          "ANO-002",
				Account:     "Expense - Marketing",
				Date:        day(7),
				Amount:      decimal.RequireFromString("500.50"),
				Severity:    models.SeverityMedium,
				Description: "Print campaign spend above the usual range",
			},
		},
		Charts: []models.ChartRef{
			{ID: "CHART-TREND-MARKETING", Kind: models.ChartTrend, Account: "Expense - Marketing"},
			{ID: "CHART-WATERFALL-JAN", Kind: models.ChartWaterfall},
		},
	}
}

// Dataset bundles Records and Artifacts under a fixed version.
func Dataset() *models.Dataset {
	return &models.Dataset{
		Version:   "seed-2024-01",
		Records:   Records(),
		Artifacts: Artifacts(),
	}
}
