package intent

import (
	"math"

	"finquery-workers/internal/engine/entities"
	"finquery-workers/internal/models"
)

const (
	baseConfidence    = 0.3
	keywordBonus      = 0.3
	accountBonus      = 0.2
	periodBonus       = 0.1
	metricBonus       = 0.1
	defaultMaxWords   = 8
	DefaultRuleName   = "default"
	UnrelatedRuleName = "unrelated"
)

// Signal is everything a rule may look at. Tokens are computed once per classification.
type Signal struct {
	Text          string
	Tokens        []entities.Token
	Entities      models.EntitySet
	ContextActive bool
}

// HasAny reports whether any phrase occurs in the text on word boundaries.
func (s Signal) HasAny(phrases []string) bool {
	for _, p := range phrases {
		if entities.IndexWords(s.Tokens, p) >= 0 {
			return true
		}
	}
	return false
}

// Rule is one entry of the ordered rule table. The first rule whose Match returns true wins.
type Rule struct {
	Name   string
	Intent models.Intent
	Match  func(Signal) bool
}

// Classification is the classifier's verdict for one turn.
type Classification struct {
	Intent     models.Intent
	Rule       string
	Confidence float64
}

type Config struct {
	// FollowUpMaxWords bounds how short a turn must be to count as a follow-up.
	FollowUpMaxWords int
}

// Classifier maps text plus entities to exactly one intent.
type Classifier struct {
	rules []Rule
}

func NewClassifier(cfg Config) *Classifier {
	if cfg.FollowUpMaxWords <= 0 {
		cfg.FollowUpMaxWords = defaultMaxWords
	}
	return &Classifier{rules: DefaultRules(cfg)}
}

// Rules returns the table in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Classify never fails: the final default rule always matches.
func (c *Classifier) Classify(text string, ents models.EntitySet, contextActive bool) Classification {
	sig := Signal{
		Text:          text,
		Tokens:        entities.Tokenize(text),
		Entities:      ents,
		ContextActive: contextActive,
	}

	for _, rule := range c.rules {
		if !rule.Match(sig) {
			continue
		}
		return Classification{
			Intent:     rule.Intent,
			Rule:       rule.Name,
			Confidence: confidence(rule, ents),
		}
	}

	return Classification{
		Intent:     models.IntentDataSummary,
		Rule:       DefaultRuleName,
		Confidence: confidence(Rule{Name: DefaultRuleName}, ents),
	}
}

func confidence(rule Rule, ents models.EntitySet) float64 {
	if rule.Intent == models.IntentUnrelated {
		return 1.0
	}
	score := baseConfidence
	if rule.Name != DefaultRuleName {
		score += keywordBonus
	}
	if ents.Has(models.EntityAccount) {
		score += accountBonus
	}
	if ents.Has(models.EntityPeriod) {
		score += periodBonus
	}
	if ents.Has(models.EntityMetric) {
		score += metricBonus
	}
	return math.Min(1, math.Round(score*100)/100)
}
