package entities

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"finquery-workers/internal/models"
)

// metricKeywords maps stemmed keywords to the metric they name.
var metricKeywords = []struct {
	metric string
	stems  []string
}{
	{models.MetricRevenue, []string{"revenue", "sale", "income", "earning"}},
	{models.MetricExpense, []string{"expense", "cost", "spending", "spend", "expenditure"}},
	{models.MetricCash, []string{"cash"}},
	{models.MetricProfit, []string{"profit", "net"}},
	{models.MetricMargin, []string{"margin"}},
}

var accountCapture = regexp.MustCompile(`(?i)\baccount\s+['"]?([A-Za-z0-9][A-Za-z0-9&._-]*)`)

var captureStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "for": true, "in": true, "of": true, "and": true,
	"is": true, "was": true, "with": true, "balance": true, "total": true, "name": true,
	"names": true, "list": true, "activity": true, "by": true, "to": true, "from": true,
	"on": true, "during": true, "over": true,
}

// Extractor pulls accounts, periods and metrics out of free text.
type Extractor struct {
	aliases *AliasMap
}

func NewExtractor(aliases *AliasMap) *Extractor {
	if aliases == nil {
		aliases = NewAliasMap(nil, nil)
	}
	return &Extractor{aliases: aliases}
}

// Aliases exposes the vocabulary the extractor matches against.
func (e *Extractor) Aliases() *AliasMap {
	return e.aliases
}

type positioned struct {
	pos   int
	value string
}

// Extract is pure: the same text and anchor always yield the same set.
func (e *Extractor) Extract(text string, anchor time.Time) models.EntitySet {
	tokens := Tokenize(text)

	set := models.EntitySet{
		Accounts: e.accounts(text, tokens),
		Periods:  dedupePeriods(ExtractPeriods(text, anchor)),
		Metrics:  metrics(tokens),
	}
	return set
}

func (e *Extractor) accounts(text string, tokens []Token) []string {
	var found []positioned
	covered := make([]span, 0)

	for _, m := range e.aliases.match(tokens) {
		found = append(found, positioned{pos: m.start, value: m.alias})
		last := tokens[m.first+m.n-1]
		covered = append(covered, span{m.start, last.End})
	}

	for _, loc := range accountCapture.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		word := strings.Trim(text[start:end], `.,;:?!'"`)
		if word == "" || captureStopwords[strings.ToLower(word)] {
			continue
		}
		inside := false
		for _, c := range covered {
			if start < c.end && c.start < end {
				inside = true
				break
			}
		}
		if inside {
			continue
		}
		found = append(found, positioned{pos: start, value: word})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	return dedupe(found)
}

func metrics(tokens []Token) []string {
	var found []positioned
	for _, kw := range metricKeywords {
		for i, tok := range tokens {
			if containsString(kw.stems, tok.Stem) {
				found = append(found, positioned{pos: i, value: kw.metric})
				break
			}
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	return dedupe(found)
}

func dedupe(in []positioned) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		if seen[p.value] {
			continue
		}
		seen[p.value] = true
		out = append(out, p.value)
	}
	return out
}

func dedupePeriods(in []models.Period) []models.Period {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]models.Period, 0, len(in))
	for _, p := range in {
		if seen[p.String()] {
			continue
		}
		seen[p.String()] = true
		out = append(out, p)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
