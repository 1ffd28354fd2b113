package entities

import (
	"testing"
	"time"

	"finquery-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var seedAccounts = []string{
	"Cash",
	"Revenue - Sales",
	"Expense - Marketing",
	"Expense - Rent",
	"Revenue - Service",
	"Expense - Utilities",
}

var anchor = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func createTestExtractor() *Extractor {
	return NewExtractor(NewAliasMap(seedAccounts, map[string]string{"ads": "Expense - Marketing"}))
}

func periodStrings(periods []models.Period) []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = p.String()
	}
	return out
}

// ==========================
// Alias Map Tests
// ==========================

func TestAliasMap_Lookup(t *testing.T) {
	aliases := NewAliasMap(seedAccounts, map[string]string{"ads": "Expense - Marketing", "ghost": "Unknown"})

	assert.Equal(t, []string{"Expense - Marketing"}, aliases.Lookup("marketing"))
	assert.Equal(t, []string{"Expense - Marketing"}, aliases.Lookup("  Expense -  Marketing "))
	assert.Equal(t, []string{"Expense - Marketing"}, aliases.Lookup("ads"))
	assert.Empty(t, aliases.Lookup("ghost"))
	assert.Empty(t, aliases.Lookup("payroll"))
	assert.Len(t, aliases.Accounts(), 6)
	assert.Contains(t, aliases.Aliases(), "utilities")
}

func TestAliasMap_SharedLeafIsAmbiguous(t *testing.T) {
	aliases := NewAliasMap([]string{"Expense - Travel", "Revenue - Travel"}, nil)
	assert.ElementsMatch(t, []string{"Expense - Travel", "Revenue - Travel"}, aliases.Lookup("travel"))
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"expenses":  "expense",
		"utilities": "utility",
		"sales":     "sale",
		"business":  "business",
		"status":    "status",
		"analysis":  "analysis",
		"cash":      "cash",
		"was":       "was",
	}
	for word, want := range tests {
		assert.Equal(t, want, Stem(word), word)
	}
}

func TestContainsWord(t *testing.T) {
	assert.True(t, ContainsWord("Show me the top expenses", "expense"))
	assert.True(t, ContainsWord("how it changed over time", "over time"))
	assert.False(t, ContainsWord("the overtime report", "over time"))
	assert.False(t, ContainsWord("marketing", "market"))
}

// ==========================
// Extractor Tests
// ==========================

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		accounts []string
		metrics  []string
		periods  []string
	}{
		{
			name:     "leaf alias with plural metric",
			text:     "What drove the increase in marketing expenses?",
			accounts: []string{"marketing"},
			metrics:  []string{"expense"},
		},
		{
			name:    "ranking without accounts",
			text:    "Show me the top expenses",
			metrics: []string{"expense"},
		},
		{
			name:     "unknown account capture",
			text:     "What is the revenue for account XYZ?",
			accounts: []string{"XYZ"},
			metrics:  []string{"revenue"},
		},
		{
			name:     "full account name wins over leaf",
			text:     "total for Expense - Rent in January 2024",
			accounts: []string{"expense - rent"},
			metrics:  []string{"expense"},
			periods:  []string{"2024-01-01/2024-02-01"},
		},
		{
			name:     "accounts in text order and deduplicated",
			text:     "utilities vs rent vs utilities",
			accounts: []string{"utilities", "rent"},
		},
		{
			name:     "account keyword followed by known alias",
			text:     "balance of account cash",
			accounts: []string{"cash"},
			metrics:  []string{"cash"},
		},
		{
			name:     "custom alias",
			text:     "how much did we spend on ads",
			accounts: []string{"ads"},
			metrics:  []string{"expense"},
		},
		{
			name: "nothing financial",
			text: "What is the meaning of life?",
		},
	}

	extractor := createTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Extract(tt.text, anchor)
			assert.Equal(t, tt.accounts, got.Accounts)
			assert.Equal(t, tt.metrics, got.Metrics)
			if tt.periods == nil {
				assert.Empty(t, got.Periods)
			} else {
				assert.Equal(t, tt.periods, periodStrings(got.Periods))
			}
		})
	}
}

func TestExtractor_IsDeterministic(t *testing.T) {
	extractor := createTestExtractor()
	text := "Compare marketing and rent expenses between January and February"
	first := extractor.Extract(text, anchor)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, extractor.Extract(text, anchor))
	}
}

func TestNewExtractor_NilAliases(t *testing.T) {
	extractor := NewExtractor(nil)
	got := extractor.Extract("revenue for account ABC", anchor)
	assert.Equal(t, []string{"ABC"}, got.Accounts)
}

// ==========================
// Period Tests
// ==========================

func TestExtractPeriods(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   []string
		labels []string
	}{
		{
			name:   "comparison cue splits a between range",
			text:   "Compare marketing expenses between January and February",
			want:   []string{"2024-01-01/2024-02-01", "2024-02-01/2024-03-01"},
			labels: []string{"January 2024", "February 2024"},
		},
		{
			name:   "between range without cue is one period",
			text:   "expenses between January and March 2024",
			want:   []string{"2024-01-01/2024-04-01"},
			labels: []string{"January 2024 to March 2024"},
		},
		{
			name: "from date to date",
			text: "revenue from 2024-01-03 to 2024-01-05",
			want: []string{"2024-01-03/2024-01-06"},
		},
		{
			name:   "iso date",
			text:   "cash on 2024-01-05",
			want:   []string{"2024-01-05/2024-01-06"},
			labels: []string{"January 5, 2024"},
		},
		{
			name: "us date",
			text: "cash on 01/05/2024",
			want: []string{"2024-01-05/2024-01-06"},
		},
		{
			name: "month day with ordinal and no year",
			text: "what happened on January 5th",
			want: []string{"2024-01-05/2024-01-06"},
		},
		{
			name: "abbreviated month day year",
			text: "spend on Jan 5, 2023",
			want: []string{"2023-01-05/2023-01-06"},
		},
		{
			name: "day month year",
			text: "spend on 5 January 2024",
			want: []string{"2024-01-05/2024-01-06"},
		},
		{
			name:   "quarter",
			text:   "revenue in Q1 2024",
			want:   []string{"2024-01-01/2024-04-01"},
			labels: []string{"Q1 2024"},
		},
		{
			name:   "bare year",
			text:   "total spend in 2023",
			want:   []string{"2023-01-01/2024-01-01"},
			labels: []string{"2023"},
		},
		{
			name: "may is only a month with a year or preposition",
			text: "may I see expenses in may",
			want: []string{"2024-05-01/2024-06-01"},
		},
		{
			name: "invalid calendar date is ignored",
			text: "on 2024-02-30",
			want: []string{},
		},
		{
			name: "marketing is not march",
			text: "marketing decreased",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPeriods(tt.text, anchor)
			assert.Equal(t, tt.want, periodStrings(got))
			if tt.labels != nil {
				require.Len(t, got, len(tt.labels))
				for i, label := range tt.labels {
					assert.Equal(t, label, got[i].Display())
				}
			}
		})
	}
}

func TestExtractPeriods_RelativeMarkers(t *testing.T) {
	// Wednesday 2024-05-15
	a := day(2024, 5, 15)
	tests := []struct {
		text  string
		start time.Time
		end   time.Time
	}{
		{"today", day(2024, 5, 15), day(2024, 5, 16)},
		{"yesterday", day(2024, 5, 14), day(2024, 5, 15)},
		{"this month", day(2024, 5, 1), day(2024, 6, 1)},
		{"last month", day(2024, 4, 1), day(2024, 5, 1)},
		{"previous quarter", day(2024, 1, 1), day(2024, 4, 1)},
		{"current quarter", day(2024, 4, 1), day(2024, 7, 1)},
		{"last year", day(2023, 1, 1), day(2024, 1, 1)},
		{"this year", day(2024, 1, 1), day(2025, 1, 1)},
		{"ytd", day(2024, 1, 1), day(2024, 5, 16)},
		{"month to date", day(2024, 5, 1), day(2024, 5, 16)},
		{"last 7 days", day(2024, 5, 9), day(2024, 5, 16)},
		{"past 3 months", day(2024, 3, 1), day(2024, 5, 16)},
		{"this week", day(2024, 5, 13), day(2024, 5, 20)},
		{"last week", day(2024, 5, 6), day(2024, 5, 13)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ExtractPeriods("expenses "+tt.text, a)
			require.Len(t, got, 1)
			assert.Equal(t, tt.start, got[0].Start)
			assert.Equal(t, tt.end, got[0].End)
		})
	}
}

func TestExtractPeriods_LastMonthAcrossYearBoundary(t *testing.T) {
	got := ExtractPeriods("last month", day(2024, 1, 10))
	require.Len(t, got, 1)
	assert.Equal(t, "2023-12-01/2024-01-01", got[0].String())
	assert.Equal(t, "December 2023", got[0].Label)
}

func TestExtractPeriods_RoundTrip(t *testing.T) {
	for _, text := range []string{"Q3 2023", "February 2024", "2024-01-05", "last 30 days", "ytd"} {
		for _, p := range ExtractPeriods(text, anchor) {
			parsed, err := models.ParsePeriod(p.String())
			require.NoError(t, err)
			assert.Equal(t, p.Start, parsed.Start)
			assert.Equal(t, p.End, parsed.End)
		}
	}
}
