package intent

import "finquery-workers/internal/models"

var (
	anomalyKeywords = []string{
		"anomaly", "anomalies", "anomalous", "outlier", "unusual", "spike", "irregular", "abnormal", "strange", "odd",
	}
	comparisonKeywords = []string{
		"compare", "compared", "comparing", "comparison", "versus", "vs", "difference between",
	}
	trendKeywords = []string{
		"trend", "trending", "over time", "trajectory", "pattern", "evolution", "evolve",
	}
	rankingKeywords = []string{
		"top", "biggest", "largest", "rank", "ranking", "highest", "most expensive", "lowest", "smallest",
	}
	movementKeywords = []string{
		"drove", "drive", "driver", "caused", "cause", "increase", "increased", "decrease", "decreased",
		"change", "changed", "jump", "jumped", "drop", "dropped", "rise", "rose", "fell", "grew",
	}
	dataKeywords = []string{
		"how much", "what is", "what was", "what are", "what were", "show me", "total", "sum", "list", "balance",
	}
	financeKeywords = []string{
		"revenue", "expense", "cost", "spend", "spending", "spent", "cash", "profit", "margin", "income",
		"sale", "earning", "account", "balance", "budget", "transaction", "money", "payment", "amount",
		"ledger", "financial", "finance", "dollar", "total", "paid", "net", "loss",
	}
	continuationPhrases = []string{
		"tell me more", "more about", "what about", "how about", "that", "those", "this", "it", "them",
		"why", "elaborate", "explain", "details", "detail", "same",
	}
)

// DefaultRules is the ordered rule table. Order encodes priority.
func DefaultRules(cfg Config) []Rule {
	return []Rule{
		{
			Name:   "anomaly_keywords",
			Intent: models.IntentAnomalyExplanation,
			Match: func(s Signal) bool {
				return s.HasAny(anomalyKeywords)
			},
		},
		{
			Name:   "comparison_keywords",
			Intent: models.IntentComparisonQuery,
			Match: func(s Signal) bool {
				return s.HasAny(comparisonKeywords) || len(s.Entities.Periods) >= 2
			},
		},
		{
			Name:   "trend_keywords",
			Intent: models.IntentTrendAnalysis,
			Match: func(s Signal) bool {
				return s.HasAny(trendKeywords)
			},
		},
		{
			Name:   "ranking_keywords",
			Intent: models.IntentRankingQuery,
			Match: func(s Signal) bool {
				return s.HasAny(rankingKeywords)
			},
		},
		{
			Name:   "movement_keywords",
			Intent: models.IntentMovementExplanation,
			Match: func(s Signal) bool {
				if s.HasAny(movementKeywords) {
					return true
				}
				return s.HasAny([]string{"why"}) && hasFinanceSignal(s)
			},
		},
		{
			Name:   "data_keywords",
			Intent: models.IntentDataSummary,
			Match: func(s Signal) bool {
				return !s.Entities.IsEmpty() && s.HasAny(dataKeywords)
			},
		},
		{
			Name:   UnrelatedRuleName,
			Intent: models.IntentUnrelated,
			Match: func(s Signal) bool {
				return !hasFinanceSignal(s) && !s.HasAny(continuationPhrases)
			},
		},
		{
			Name:   "follow_up",
			Intent: models.IntentFollowUp,
			Match: func(s Signal) bool {
				if !s.ContextActive {
					return false
				}
				return len(s.Tokens) <= cfg.FollowUpMaxWords || s.Entities.Count() <= 1
			},
		},
	}
}

func hasFinanceSignal(s Signal) bool {
	return !s.Entities.IsEmpty() || s.HasAny(financeKeywords)
}
