package aggregate

import (
	"sort"
	"strings"

	"finquery-workers/internal/engine/entities"
	"finquery-workers/internal/models"
)

const minSubstringLen = 3

// Canonicalize resolves one account mention to dataset account names: exact alias first,
// then substring over normalized account names. More than one hit is reported as ambiguous.
func Canonicalize(aliases *entities.AliasMap, mention string) models.Resolution {
	res := models.Resolution{Mention: mention}
	if aliases == nil {
		return res
	}

	if exact := aliases.Lookup(mention); len(exact) > 0 {
		res.Accounts = exact
		res.Ambiguous = len(exact) > 1
		return res
	}

	needle := entities.Normalize(mention)
	if len(needle) < minSubstringLen {
		return res
	}
	for _, account := range aliases.Accounts() {
		if strings.Contains(entities.Normalize(account), needle) {
			res.Accounts = append(res.Accounts, account)
		}
	}
	res.Ambiguous = len(res.Accounts) > 1
	return res
}

// CanonicalizeAll resolves every mention in order.
func CanonicalizeAll(aliases *entities.AliasMap, mentions []string) []models.Resolution {
	if len(mentions) == 0 {
		return nil
	}
	out := make([]models.Resolution, 0, len(mentions))
	for _, m := range mentions {
		out = append(out, Canonicalize(aliases, m))
	}
	return out
}

// CategoriesFor maps metric keywords to the account categories they cover.
func CategoriesFor(metrics []string) []models.AccountCategory {
	seen := make(map[models.AccountCategory]bool)
	var out []models.AccountCategory
	add := func(c models.AccountCategory) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, m := range metrics {
		switch m {
		case models.MetricRevenue:
			add(models.CategoryRevenue)
		case models.MetricExpense:
			add(models.CategoryExpense)
		case models.MetricCash:
			add(models.CategoryCash)
		case models.MetricProfit, models.MetricMargin:
			add(models.CategoryRevenue)
			add(models.CategoryExpense)
		}
	}
	return out
}

// AccountsInCategories lists known accounts belonging to any of the categories, sorted.
func AccountsInCategories(aliases *entities.AliasMap, categories []models.AccountCategory) []string {
	if aliases == nil {
		return nil
	}
	var out []string
	for _, account := range aliases.Accounts() {
		c := models.CategoryOf(account)
		for _, want := range categories {
			if c == want {
				out = append(out, account)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// scope is the set of accounts a turn is restricted to. A nil scope admits every account.
type scope map[string]bool

func (s scope) admits(account string) bool {
	return s == nil || s[account]
}

// scopeFor derives the account scope: named accounts when present, otherwise the
// categories implied by metric keywords, otherwise everything.
func scopeFor(aliases *entities.AliasMap, ents models.EntitySet, resolutions []models.Resolution) scope {
	if ents.Has(models.EntityAccount) {
		s := scope{}
		for _, r := range resolutions {
			for _, a := range r.Accounts {
				s[a] = true
			}
		}
		return s
	}
	if cats := CategoriesFor(ents.Metrics); len(cats) > 0 {
		s := scope{}
		for _, a := range AccountsInCategories(aliases, cats) {
			s[a] = true
		}
		return s
	}
	return nil
}
