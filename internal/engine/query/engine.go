package query

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/common/metrics"
	"finquery-workers/internal/common/observability"
	"finquery-workers/internal/engine/aggregate"
	"finquery-workers/internal/engine/conversation"
	"finquery-workers/internal/engine/entities"
	"finquery-workers/internal/engine/intent"
	"finquery-workers/internal/engine/respond"
	"finquery-workers/internal/models"
)

// ResponseCache stores generated responses keyed by dataset version and effective query.
type ResponseCache interface {
	Get(ctx context.Context, key string) (models.QueryResponse, bool, error)
	Set(ctx context.Context, key string, resp models.QueryResponse) error
}

type Config struct {
	ConfidenceThreshold float64
	FollowUpMaxWords    int
	Aggregate           aggregate.Options
	// ExtraAliases maps additional phrases to dataset account names.
	ExtraAliases map[string]string
}

// Engine answers one conversational turn at a time against a fixed dataset.
type Engine struct {
	dataset    *models.Dataset
	aliases    *entities.AliasMap
	extractor  *entities.Extractor
	classifier *intent.Classifier
	generator  *respond.Generator
	cfg        Config
	cache      ResponseCache
	obs        *observability.Observability
	log        logger.Logger
	now        func() time.Time
}

type Option func(*Engine)

func WithCache(c ResponseCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithObservability(o *observability.Observability) Option {
	return func(e *Engine) { e.obs = o }
}

// WithClock fixes the response timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(dataset *models.Dataset, cfg Config, log logger.Logger, opts ...Option) *Engine {
	if dataset == nil {
		dataset = &models.Dataset{}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	aliases := entities.NewAliasMap(dataset.Accounts(), cfg.ExtraAliases)
	e := &Engine{
		dataset:    dataset,
		aliases:    aliases,
		extractor:  entities.NewExtractor(aliases),
		classifier: intent.NewClassifier(intent.Config{FollowUpMaxWords: cfg.FollowUpMaxWords}),
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.generator = respond.NewGenerator(e.now)
	return e
}

// DatasetVersion identifies the data the engine answers from.
func (e *Engine) DatasetVersion() string {
	return e.dataset.Version
}

// Process answers q within the session's critical section. It never returns an error:
// every failure, including a panic, becomes a user-facing response.
func (e *Engine) Process(ctx context.Context, session *conversation.Session, q models.RawQuery, anchor time.Time) models.QueryResponse {
	return e.ProcessTurn(ctx, session, q, anchor).Response
}

// TurnOutcome is one answered turn together with the session counters it left behind.
type TurnOutcome struct {
	Response  models.QueryResponse
	Turn      int
	TurnCount int
}

// ProcessTurn answers q inside the session's critical section. A zero q.Turn is numbered
// after the session's last turn.
func (e *Engine) ProcessTurn(ctx context.Context, session *conversation.Session, q models.RawQuery, anchor time.Time) (out TurnOutcome) {
	start := time.Now()
	log := logger.ForTurn(e.log, session.ID(), RequestIDFromContext(ctx), q.Turn)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Turn processing panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			})
			out.Response = e.generator.Internal()
			out.TurnCount = session.Context().TurnCount
		}
		resp := out.Response
		e.record(ctx, resp, time.Since(start))
		log.Info("Turn answered", map[string]interface{}{
			"intent":     resp.Intent,
			"errorCode":  resp.ErrorCode,
			"artifacts":  resp.ReferencedArtifactIDs,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}()

	session.Turn(func(cc *models.ConversationContext) {
		if q.Turn <= 0 {
			q.Turn = cc.TurnCount + 1
			log = logger.ForTurn(e.log, session.ID(), RequestIDFromContext(ctx), q.Turn)
		}
		out.Turn = q.Turn
		out.Response = e.answer(ctx, cc, q, anchor, log)
		out.TurnCount = cc.TurnCount
	})
	return out
}

func (e *Engine) answer(ctx context.Context, cc *models.ConversationContext, q models.RawQuery, anchor time.Time, log logger.Logger) models.QueryResponse {
	ents := e.extractor.Extract(q.Text, anchor)
	cls := e.classifier.Classify(q.Text, ents, cc.Active())
	parsed := models.ParsedQuery{
		Query:      q,
		Entities:   ents,
		Intent:     cls.Intent,
		Rule:       cls.Rule,
		Confidence: cls.Confidence,
	}
	log.Debug("Query classified", map[string]interface{}{
		"intent":     cls.Intent,
		"rule":       cls.Rule,
		"confidence": cls.Confidence,
		"entities":   ents.Key(),
	})

	if cls.Intent == models.IntentUnrelated {
		conversation.Update(cc, conversation.Merge(parsed, cc))
		return e.generator.Unrelated()
	}
	if cls.Confidence < e.cfg.ConfidenceThreshold {
		conversation.Skip(cc)
		return e.generator.ParseAmbiguity(cls.Intent)
	}

	eff := conversation.Merge(parsed, cc)
	conversation.Update(cc, eff)
	if eff.Inherited {
		log.Debug("Follow-up merged with context", map[string]interface{}{
			"intent":   eff.Intent,
			"entities": eff.Entities.Key(),
		})
	}

	key := e.cacheKey(eff)
	if cached, ok := e.lookup(ctx, key, log); ok {
		cached.Timestamp = e.now()
		return cached
	}

	resp := e.resolve(eff, log)
	e.store(ctx, key, resp, log)
	return resp
}

func (e *Engine) resolve(eff models.EffectiveQuery, log logger.Logger) models.QueryResponse {
	av := aggregate.ValidateAvailability(e.dataset.Records, e.aliases, eff.Entities)
	if av.Blocks(eff.Intent) {
		log.Debug("Data unavailable", map[string]interface{}{
			"reasons": len(av.Reasons),
		})
		return e.generator.Unavailable(eff.Intent, av)
	}

	agg := aggregate.Extract(e.dataset.Records, e.dataset.Artifacts, e.aliases, eff, e.cfg.Aggregate)
	log.Debug("Aggregated", map[string]interface{}{
		"matched":      agg.Totals.Count,
		"sum":          agg.Totals.Sum.String(),
		"artifactMiss": agg.ArtifactMiss,
	})
	return e.generator.Generate(eff.Intent, agg, eff.Entities)
}

func (e *Engine) cacheKey(eff models.EffectiveQuery) string {
	return e.dataset.Version + ":" + string(eff.Intent) + ":" + eff.Entities.Key()
}

func (e *Engine) lookup(ctx context.Context, key string, log logger.Logger) (models.QueryResponse, bool) {
	if e.cache == nil {
		return models.QueryResponse{}, false
	}
	resp, ok, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.QueryCacheLookups.WithLabelValues("error").Inc()
		log.Warn("Response cache lookup failed", map[string]interface{}{"error": err.Error()})
		return models.QueryResponse{}, false
	case ok:
		metrics.QueryCacheLookups.WithLabelValues("hit").Inc()
		return resp, true
	}
	metrics.QueryCacheLookups.WithLabelValues("miss").Inc()
	return models.QueryResponse{}, false
}

func (e *Engine) store(ctx context.Context, key string, resp models.QueryResponse, log logger.Logger) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, resp); err != nil {
		log.Warn("Response cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (e *Engine) record(ctx context.Context, resp models.QueryResponse, elapsed time.Duration) {
	intentLabel := string(resp.Intent)
	if intentLabel == "" {
		intentLabel = "none"
	}
	outcome := resp.ErrorCode
	if outcome == "" {
		outcome = "ok"
	} else {
		metrics.QueryOutcomesTotal.WithLabelValues(outcome).Inc()
	}
	metrics.QueryTurnsTotal.WithLabelValues(intentLabel).Inc()
	metrics.QueryTurnDuration.WithLabelValues(intentLabel).Observe(elapsed.Seconds())
	e.obs.RecordTurn(ctx, intentLabel, outcome, elapsed)
}
