// internal/models/financial.go
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FinancialRecord is one ledger transaction. Inflows such as revenue are negative.
type FinancialRecord struct {
	Date        time.Time       `json:"date" db:"txn_date"`
	Account     string          `json:"account" db:"account"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description,omitempty" db:"description"`
}

type AccountCategory string

const (
	CategoryRevenue AccountCategory = "revenue"
	CategoryExpense AccountCategory = "expense"
	CategoryCash    AccountCategory = "cash"
	CategoryOther   AccountCategory = "other"
)

// CategoryOf derives the category from the account's leading segment.
func CategoryOf(account string) AccountCategory {
	name := strings.ToLower(strings.TrimSpace(account))
	switch {
	case strings.HasPrefix(name, "revenue"), strings.HasPrefix(name, "income"), strings.HasPrefix(name, "sales"):
		return CategoryRevenue
	case strings.HasPrefix(name, "expense"), strings.HasPrefix(name, "cost"):
		return CategoryExpense
	case strings.HasPrefix(name, "cash"), strings.HasPrefix(name, "bank"):
		return CategoryCash
	}
	return CategoryOther
}

// Dataset is the read-only input a session answers against.
type Dataset struct {
	Version   string            `json:"version"`
	Records   []FinancialRecord `json:"records"`
	Artifacts ArtifactSet       `json:"artifacts"`
}

// Accounts returns the distinct account names in first-seen order.
func (d *Dataset) Accounts() []string {
	return AccountsOf(d.Records)
}

// AccountsOf returns the distinct account names in first-seen order.
func AccountsOf(records []FinancialRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if !seen[r.Account] {
			seen[r.Account] = true
			out = append(out, r.Account)
		}
	}
	return out
}

// Coverage returns the smallest period containing every record, or false when empty.
func Coverage(records []FinancialRecord) (Period, bool) {
	if len(records) == 0 {
		return Period{}, false
	}
	first, last := Day(records[0].Date), Day(records[0].Date)
	for _, r := range records[1:] {
		d := Day(r.Date)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return NewPeriod("", first, last.AddDate(0, 0, 1)), true
}
