package conversation

import "finquery-workers/internal/models"

// Merge resolves a parsed turn against the session context. A FollowUp takes the prior
// intent and, per entity kind, the current values when present or the prior ones otherwise.
// Every other intent passes through unchanged.
func Merge(parsed models.ParsedQuery, cc *models.ConversationContext) models.EffectiveQuery {
	eff := models.EffectiveQuery{
		Parsed:   parsed,
		Entities: parsed.Entities.Clone(),
		Intent:   parsed.Intent,
	}
	if parsed.Intent != models.IntentFollowUp {
		return eff
	}
	if !cc.Active() {
		// nothing to inherit; answer as a plain lookup
		eff.Intent = models.IntentDataSummary
		return eff
	}

	prior := cc.LastEntities
	merged := parsed.Entities.Clone()
	if !merged.Has(models.EntityAccount) && prior.Has(models.EntityAccount) {
		merged.Accounts = append([]string(nil), prior.Accounts...)
	}
	if !merged.Has(models.EntityPeriod) && prior.Has(models.EntityPeriod) {
		merged.Periods = append([]models.Period(nil), prior.Periods...)
	}
	if !merged.Has(models.EntityMetric) && prior.Has(models.EntityMetric) {
		merged.Metrics = append([]string(nil), prior.Metrics...)
	}

	eff.Entities = merged
	eff.Intent = cc.LastIntent
	eff.Inherited = true
	return eff
}

// Update advances the context with the effective view of the turn so that chained
// follow-ups accumulate. Unrelated turns only count; they never replace the last topic.
func Update(cc *models.ConversationContext, eff models.EffectiveQuery) {
	if cc == nil {
		return
	}
	cc.TurnCount++
	if eff.Intent == models.IntentUnrelated {
		return
	}
	cc.LastEntities = eff.Entities.Clone()
	cc.LastIntent = eff.Intent
}

// Skip counts a turn that produced no interpretation, leaving the topic untouched.
func Skip(cc *models.ConversationContext) {
	if cc != nil {
		cc.TurnCount++
	}
}
