package respond

import (
	"fmt"
	"strings"
	"time"

	"finquery-workers/internal/common/errors"
	"finquery-workers/internal/models"
)

const maxListed = 3

// ExampleQuestions are offered whenever a turn falls outside the financial domain.
var ExampleQuestions = []string{
	"What drove the increase in marketing expenses?",
	"Show me the top expenses",
	"Compare revenue between January and February",
}

// Generator turns aggregation results into user-facing text. It holds no state besides the clock.
type Generator struct {
	now func() time.Time
}

func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// builder accumulates lines and cited artifact IDs in order.
type builder struct {
	lines []string
	ids   []string
	seen  map[string]bool
}

func (b *builder) line(format string, args ...interface{}) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

func (b *builder) cite(id string) {
	if id == "" {
		return
	}
	if b.seen == nil {
		b.seen = make(map[string]bool)
	}
	if !b.seen[id] {
		b.seen[id] = true
		b.ids = append(b.ids, id)
	}
}

func (g *Generator) response(b *builder, intent models.Intent, code errors.ErrorCode) models.QueryResponse {
	ids := b.ids
	if ids == nil {
		ids = []string{}
	}
	return models.QueryResponse{
		Text:                  strings.Join(b.lines, "\n"),
		ReferencedArtifactIDs: ids,
		Intent:                intent,
		ErrorCode:             string(code),
		Timestamp:             g.now(),
	}
}

// Generate dispatches to the formatter for the effective intent.
func (g *Generator) Generate(intent models.Intent, agg models.AggregationResult, ents models.EntitySet) models.QueryResponse {
	b := &builder{}
	var code errors.ErrorCode

	switch intent {
	case models.IntentUnrelated:
		return g.Unrelated()
	case models.IntentMovementExplanation:
		formatMovements(b, agg, ents)
	case models.IntentAnomalyExplanation:
		formatAnomalies(b, agg, ents)
	case models.IntentRankingQuery:
		formatRanking(b, agg, ents)
	case models.IntentComparisonQuery:
		formatComparison(b, agg, ents)
	case models.IntentTrendAnalysis:
		formatTrend(b, agg, ents)
	default:
		formatSummary(b, agg, ents)
	}

	noteAmbiguity(b, agg)
	for _, c := range agg.Charts {
		b.line("Related %s chart: %s.", c.Kind, c.ID)
		b.cite(c.ID)
	}
	if agg.ArtifactMiss {
		code = errors.ErrCodeArtifactLookupMiss
	}
	return g.response(b, intent, code)
}

// Unrelated is the fixed redirect for questions outside the dataset's domain.
func (g *Generator) Unrelated() models.QueryResponse {
	b := &builder{}
	b.line("I can only answer questions about your financial data. Try asking:")
	for _, q := range ExampleQuestions {
		b.line("- %s", q)
	}
	return g.response(b, models.IntentUnrelated, errors.ErrCodeUnsupportedIntent)
}

// Unavailable echoes validation reasons and suggestions.
func (g *Generator) Unavailable(intent models.Intent, av models.Availability) models.QueryResponse {
	b := &builder{}
	var msgs []string
	for _, r := range av.Reasons {
		msgs = append(msgs, r.Message)
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "No data found for query.")
	}
	b.line("%s", strings.Join(dedupe(msgs), " "))
	if len(av.Suggestions) > 0 {
		b.line("Available accounts: %s.", strings.Join(av.Suggestions, ", "))
	}
	if av.Coverage != nil {
		b.line("Data is available from %s to %s.",
			formatDate(av.Coverage.Start), formatDate(av.Coverage.End.AddDate(0, 0, -1)))
	}
	return g.response(b, intent, errors.ErrCodeDataUnavailable)
}

// ParseAmbiguity asks the user to restate a turn that could not be interpreted.
func (g *Generator) ParseAmbiguity(intent models.Intent) models.QueryResponse {
	b := &builder{}
	b.line("I'm not sure what you're asking. Please mention an account, a period or a metric, for example:")
	b.line("- What were marketing expenses in January 2024?")
	return g.response(b, intent, errors.ErrCodeParseAmbiguity)
}

// Internal is the generic reply after an unexpected failure.
func (g *Generator) Internal() models.QueryResponse {
	b := &builder{}
	b.line("Sorry, I couldn't process that. Please try rephrasing your question.")
	return g.response(b, "", errors.ErrCodeInternal)
}

func noteAmbiguity(b *builder, agg models.AggregationResult) {
	for _, r := range agg.Resolutions {
		if r.Ambiguous {
			b.line("Note: '%s' matches several accounts (%s); all of them are included.",
				r.Mention, strings.Join(r.Accounts, ", "))
		}
	}
}
