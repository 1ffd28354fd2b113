package aggregate

import (
	"fmt"

	"finquery-workers/internal/engine/entities"
	"finquery-workers/internal/models"
)

// ValidateAvailability checks, before any aggregation, whether the dataset can answer the
// entities at all. Every failed check adds a reason; suggestions tell the user what exists.
func ValidateAvailability(records []models.FinancialRecord, aliases *entities.AliasMap, ents models.EntitySet) models.Availability {
	av := models.Availability{Available: true}

	if len(records) == 0 {
		av.Available = false
		av.Reasons = append(av.Reasons, models.Reason{
			Code:    models.ReasonNoData,
			Message: "No data found for query: the dataset is empty.",
		})
		return av
	}

	resolutions := CanonicalizeAll(aliases, ents.Accounts)
	unknown := false
	for _, r := range resolutions {
		if !r.Unknown() {
			continue
		}
		unknown = true
		av.Reasons = append(av.Reasons, models.Reason{
			Code:    models.ReasonUnknownAccount,
			Subject: r.Mention,
			Message: fmt.Sprintf("Account '%s' not found.", r.Mention),
		})
	}
	if unknown {
		av.Suggestions = append(av.Suggestions, accountSuggestions(aliases, ents.Metrics)...)
	}

	coverage, _ := models.Coverage(records)
	periodMissing := false
	for _, p := range ents.Periods {
		if anyInPeriod(records, p) {
			continue
		}
		periodMissing = true
		av.Reasons = append(av.Reasons, models.Reason{
			Code:    models.ReasonPeriodEmpty,
			Subject: p.Display(),
			Message: fmt.Sprintf("No data for %s.", p.Display()),
		})
	}
	if periodMissing {
		av.Coverage = &coverage
	}

	if !unknown {
		s := scopeFor(aliases, ents, resolutions)
		if len(filter(records, s, ents.Periods)) == 0 {
			av.Reasons = append(av.Reasons, models.Reason{
				Code:    models.ReasonNoMatches,
				Message: "No data found for query.",
			})
			av.Coverage = &coverage
		}
	}

	av.Available = len(av.Reasons) == 0
	return av
}

// accountSuggestions lists the accounts of the categories the query asked about, or every
// known account when the query carried no metric.
func accountSuggestions(aliases *entities.AliasMap, metrics []string) []string {
	var accounts []string
	if cats := CategoriesFor(metrics); len(cats) > 0 {
		accounts = AccountsInCategories(aliases, cats)
	}
	if len(accounts) == 0 && aliases != nil {
		accounts = aliases.Accounts()
	}
	return accounts
}

func anyInPeriod(records []models.FinancialRecord, p models.Period) bool {
	for _, r := range records {
		if p.Contains(r.Date) {
			return true
		}
	}
	return false
}
