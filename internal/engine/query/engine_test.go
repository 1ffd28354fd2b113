package query

import (
	"context"
	"errors"
	"sync"
	"testing"

	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/engine/aggregate"
	"finquery-workers/internal/engine/conversation"
	"finquery-workers/internal/engine/enginetest"
	"finquery-workers/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		FollowUpMaxWords:    8,
		Aggregate:           aggregate.DefaultOptions(),
	}
}

func createTestEngine(t *testing.T, opts ...Option) *Engine {
	opts = append([]Option{WithClock(enginetest.Clock)}, opts...)
	return NewEngine(enginetest.Dataset(), createTestConfig(), logger.NewTestLogger(t), opts...)
}

func ask(e *Engine, sess *conversation.Session, turn int, text string) models.QueryResponse {
	return e.Process(context.Background(), sess, models.RawQuery{Text: text, Turn: turn}, enginetest.Anchor)
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]models.QueryResponse
	gets  int
	err   error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string]models.QueryResponse)}
}

func (c *memoryCache) Get(_ context.Context, key string) (models.QueryResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.err != nil {
		return models.QueryResponse{}, false, c.err
	}
	resp, ok := c.items[key]
	return resp, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, resp models.QueryResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.items[key] = resp
	return nil
}

type panickingCache struct{}

func (panickingCache) Get(context.Context, string) (models.QueryResponse, bool, error) {
	panic("corrupt cache entry")
}

func (panickingCache) Set(context.Context, string, models.QueryResponse) error {
	return nil
}

// ==========================
// Scenario Tests
// ==========================

func TestProcess_MovementExplanation(t *testing.T) {
	engine := createTestEngine(t)
	sess := conversation.NewSession("s1", nil)

	resp := ask(engine, sess, 1, "What drove the increase in marketing expenses?")

	assert.Equal(t, models.IntentMovementExplanation, resp.Intent)
	assert.Empty(t, resp.ErrorCode)
	assert.Contains(t, resp.Text, "$850.75")
	assert.Contains(t, resp.ReferencedArtifactIDs, "MOV-001")

	cc := sess.Context()
	assert.Equal(t, []string{"marketing"}, cc.LastEntities.Accounts)
	assert.Equal(t, models.IntentMovementExplanation, cc.LastIntent)
}

func TestProcess_RankingQuery(t *testing.T) {
	engine := createTestEngine(t)
	resp := ask(engine, conversation.NewSession("s2", nil), 1, "Show me the top expenses")

	assert.Equal(t, models.IntentRankingQuery, resp.Intent)
	assert.Contains(t, resp.Text, "1. Expense - Rent: $1,500.00")
	assert.Contains(t, resp.Text, "2. Expense - Marketing: $850.75")
	assert.Contains(t, resp.Text, "3. Expense - Utilities: $400.50")
}

func TestProcess_FollowUpInheritsContext(t *testing.T) {
	engine := createTestEngine(t)
	sess := conversation.NewSession("s3", nil)

	first := ask(engine, sess, 1, "What drove the increase in marketing expenses?")
	before := sess.Context().LastEntities

	second := ask(engine, sess, 2, "Tell me more about that")

	assert.Equal(t, models.IntentMovementExplanation, second.Intent)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, before, sess.Context().LastEntities)
	assert.Equal(t, 2, sess.Context().TurnCount)
}

func TestProcess_MovementCitesDatasetTotal(t *testing.T) {
	dataset := enginetest.Dataset()
	dataset.Artifacts.Movements[0].CurrentAmount = decimal.RequireFromString("900.00")
	engine := NewEngine(dataset, createTestConfig(), logger.NewTestLogger(t), WithClock(enginetest.Clock))

	resp := ask(engine, conversation.NewSession("s1b", nil), 1, "What drove the increase in marketing expenses?")

	assert.Equal(t, models.IntentMovementExplanation, resp.Intent)
	assert.Contains(t, resp.Text, "Expense - Marketing totals $850.75 across 2 transactions.")
	assert.Contains(t, resp.Text, "[MOV-001]")
}

func TestProcess_UnknownAccount(t *testing.T) {
	engine := createTestEngine(t)
	resp := ask(engine, conversation.NewSession("s4", nil), 1, "What is the revenue for account XYZ?")

	assert.Equal(t, models.IntentDataSummary, resp.Intent)
	assert.Equal(t, "DATA_UNAVAILABLE", resp.ErrorCode)
	assert.Contains(t, resp.Text, "Account 'XYZ' not found.")
	assert.Contains(t, resp.Text, "Revenue - Sales")
	assert.Contains(t, resp.Text, "Revenue - Service")
	assert.NotContains(t, resp.Text, "Expense - Rent")
}

func TestProcess_Unrelated(t *testing.T) {
	engine := createTestEngine(t)
	sess := conversation.NewSession("s5", nil)

	ask(engine, sess, 1, "Show me the top expenses")
	resp := ask(engine, sess, 2, "What is the meaning of life?")

	assert.Equal(t, models.IntentUnrelated, resp.Intent)
	assert.Equal(t, "UNSUPPORTED_INTENT", resp.ErrorCode)
	assert.Contains(t, resp.Text, "Show me the top expenses")
	assert.Equal(t, models.IntentRankingQuery, sess.Context().LastIntent)

	empty := NewEngine(&models.Dataset{}, createTestConfig(), logger.NewNoOpLogger(), WithClock(enginetest.Clock))
	other := ask(empty, conversation.NewSession("s5b", nil), 1, "What is the meaning of life?")
	assert.Equal(t, resp.Text, other.Text)
}

func TestProcess_ComparisonWithMissingPeriod(t *testing.T) {
	engine := createTestEngine(t)
	resp := ask(engine, conversation.NewSession("s6", nil), 1, "Compare marketing expenses between January and February")

	assert.Equal(t, models.IntentComparisonQuery, resp.Intent)
	assert.Empty(t, resp.ErrorCode)
	assert.Contains(t, resp.Text, "January 2024: $850.75")
	assert.Contains(t, resp.Text, "There is no data for February 2024")
}

// ==========================
// Error Handling Tests
// ==========================

func TestProcess_ParseAmbiguity(t *testing.T) {
	engine := createTestEngine(t)
	sess := conversation.NewSession("s7", nil)

	resp := ask(engine, sess, 1, "Tell me more about that")

	assert.Equal(t, "PARSE_AMBIGUITY", resp.ErrorCode)
	cc := sess.Context()
	assert.Equal(t, 1, cc.TurnCount)
	assert.False(t, cc.Active())
}

func TestProcess_RecoversFromPanic(t *testing.T) {
	engine := createTestEngine(t, WithCache(panickingCache{}))
	sess := conversation.NewSession("s8", nil)

	var resp models.QueryResponse
	require.NotPanics(t, func() {
		resp = ask(engine, sess, 1, "Show me the top expenses")
	})
	assert.Equal(t, "INTERNAL_ERROR", resp.ErrorCode)
	assert.Contains(t, resp.Text, "couldn't process that")

	// the session stays usable
	resp = engine.Process(context.Background(), sess, models.RawQuery{Text: "What is the meaning of life?", Turn: 2}, enginetest.Anchor)
	assert.Equal(t, models.IntentUnrelated, resp.Intent)
}

// ==========================
// Cache Tests
// ==========================

func TestProcess_UsesResponseCache(t *testing.T) {
	cache := newMemoryCache()
	engine := createTestEngine(t, WithCache(cache))

	first := ask(engine, conversation.NewSession("a", nil), 1, "Show me the top expenses")
	second := ask(engine, conversation.NewSession("b", nil), 1, "Show me the top expenses")

	assert.Equal(t, first, second)
	assert.Len(t, cache.items, 1)
	for key := range cache.items {
		assert.Equal(t, "seed-2024-01:RankingQuery:a=|p=|m=expense", key)
	}
}

func TestProcess_CacheKeepsComparisonOrder(t *testing.T) {
	cached := createTestEngine(t, WithCache(newMemoryCache()))
	plain := createTestEngine(t)

	for i, q := range []string{"Compare rent vs marketing", "Compare marketing vs rent"} {
		want := ask(plain, conversation.NewSession("plain", nil), 1, q)
		got := ask(cached, conversation.NewSession(string(rune('x'+i)), nil), 1, q)

		require.Equal(t, models.IntentComparisonQuery, want.Intent)
		assert.Equal(t, want.Text, got.Text, q)
	}
}

func TestProcess_CacheErrorsAreIgnored(t *testing.T) {
	cache := newMemoryCache()
	cache.err = errors.New("connection refused")
	engine := createTestEngine(t, WithCache(cache))

	resp := ask(engine, conversation.NewSession("c", nil), 1, "Show me the top expenses")
	assert.Empty(t, resp.ErrorCode)
	assert.Equal(t, 1, cache.gets)
}

func TestProcess_IsIdempotent(t *testing.T) {
	engine := createTestEngine(t)
	var texts []string
	for i := 0; i < 3; i++ {
		resp := ask(engine, conversation.NewSession("idem", nil), 1, "Compare marketing expenses between January and February")
		texts = append(texts, resp.Text)
	}
	assert.Equal(t, texts[0], texts[1])
	assert.Equal(t, texts[1], texts[2])
}

func TestProcess_ConcurrentSessions(t *testing.T) {
	engine := createTestEngine(t)
	store := conversation.NewStore(0, 0, logger.NewNoOpLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, _ := store.GetOrCreate(string(rune('a' + i)))
			ask(engine, sess, 1, "What drove the increase in marketing expenses?")
			resp := ask(engine, sess, 2, "Tell me more about that")
			assert.Equal(t, models.IntentMovementExplanation, resp.Intent)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, store.Count())
}

func TestProcessTurn_NumbersUnsetTurns(t *testing.T) {
	engine := createTestEngine(t)
	sess := conversation.NewSession("numbered", nil)

	first := engine.ProcessTurn(context.Background(), sess, models.RawQuery{Text: "Show me the top expenses"}, enginetest.Anchor)
	second := engine.ProcessTurn(context.Background(), sess, models.RawQuery{Text: "Tell me more about that"}, enginetest.Anchor)
	explicit := engine.ProcessTurn(context.Background(), sess, models.RawQuery{Text: "Show me the top expenses", Turn: 7}, enginetest.Anchor)

	assert.Equal(t, 1, first.Turn)
	assert.Equal(t, 1, first.TurnCount)
	assert.Equal(t, 2, second.Turn)
	assert.Equal(t, 2, second.TurnCount)
	assert.Equal(t, models.IntentRankingQuery, second.Response.Intent)
	assert.Equal(t, 7, explicit.Turn)
	assert.Equal(t, 3, explicit.TurnCount)
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	assert.Equal(t, "req-1", RequestIDFromContext(WithRequestID(context.Background(), "req-1")))
}
