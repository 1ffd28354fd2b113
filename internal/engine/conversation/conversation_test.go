package conversation

import (
	"sync"
	"testing"
	"time"

	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func january() models.Period {
	return models.MonthOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func parsed(intent models.Intent, ents models.EntitySet) models.ParsedQuery {
	return models.ParsedQuery{Entities: ents, Intent: intent, Rule: "test"}
}

func activeContext() *models.ConversationContext {
	return &models.ConversationContext{
		LastEntities: models.EntitySet{
			Accounts: []string{"marketing"},
			Periods:  []models.Period{january()},
			Metrics:  []string{"expense"},
		},
		LastIntent: models.IntentMovementExplanation,
		TurnCount:  1,
	}
}

// ==========================
// Merge Tests
// ==========================

func TestMerge_FollowUpInheritsEverything(t *testing.T) {
	cc := activeContext()
	eff := Merge(parsed(models.IntentFollowUp, models.EntitySet{}), cc)

	assert.Equal(t, models.IntentMovementExplanation, eff.Intent)
	assert.True(t, eff.Inherited)
	assert.Equal(t, cc.LastEntities, eff.Entities)
}

func TestMerge_FollowUpOverridesPerKind(t *testing.T) {
	cc := activeContext()
	current := models.EntitySet{Accounts: []string{"rent"}}
	eff := Merge(parsed(models.IntentFollowUp, current), cc)

	assert.Equal(t, []string{"rent"}, eff.Entities.Accounts)
	assert.Equal(t, cc.LastEntities.Periods, eff.Entities.Periods)
	assert.Equal(t, []string{"expense"}, eff.Entities.Metrics)

	// the raw set is never narrowed
	for _, kind := range []models.EntityKind{models.EntityAccount, models.EntityPeriod, models.EntityMetric} {
		if current.Has(kind) {
			assert.True(t, eff.Entities.Has(kind))
		}
	}
}

func TestMerge_DoesNotAliasContext(t *testing.T) {
	cc := activeContext()
	eff := Merge(parsed(models.IntentFollowUp, models.EntitySet{}), cc)
	eff.Entities.Accounts[0] = "changed"

	assert.Equal(t, "marketing", cc.LastEntities.Accounts[0])
}

func TestMerge_NonFollowUpPassesThrough(t *testing.T) {
	cc := activeContext()
	current := models.EntitySet{Metrics: []string{"revenue"}}
	eff := Merge(parsed(models.IntentRankingQuery, current), cc)

	assert.Equal(t, models.IntentRankingQuery, eff.Intent)
	assert.False(t, eff.Inherited)
	assert.Equal(t, current, eff.Entities)
}

func TestMerge_FollowUpWithoutContext(t *testing.T) {
	eff := Merge(parsed(models.IntentFollowUp, models.EntitySet{}), &models.ConversationContext{})
	assert.Equal(t, models.IntentDataSummary, eff.Intent)
	assert.False(t, eff.Inherited)

	eff = Merge(parsed(models.IntentFollowUp, models.EntitySet{}), nil)
	assert.Equal(t, models.IntentDataSummary, eff.Intent)
}

// ==========================
// Update Tests
// ==========================

func TestUpdate_RecordsEffectiveView(t *testing.T) {
	cc := &models.ConversationContext{}
	first := Merge(parsed(models.IntentMovementExplanation, models.EntitySet{Accounts: []string{"marketing"}}), cc)
	Update(cc, first)

	second := Merge(parsed(models.IntentFollowUp, models.EntitySet{Periods: []models.Period{january()}}), cc)
	Update(cc, second)

	third := Merge(parsed(models.IntentFollowUp, models.EntitySet{}), cc)

	assert.Equal(t, 2, cc.TurnCount)
	assert.Equal(t, models.IntentMovementExplanation, third.Intent)
	assert.Equal(t, []string{"marketing"}, third.Entities.Accounts)
	assert.Len(t, third.Entities.Periods, 1)
}

func TestUpdate_UnrelatedKeepsTopic(t *testing.T) {
	cc := activeContext()
	Update(cc, models.EffectiveQuery{Intent: models.IntentUnrelated})

	assert.Equal(t, 2, cc.TurnCount)
	assert.Equal(t, models.IntentMovementExplanation, cc.LastIntent)
	assert.True(t, cc.Active())
}

func TestSkip(t *testing.T) {
	cc := activeContext()
	Skip(cc)
	assert.Equal(t, 2, cc.TurnCount)
	assert.Equal(t, models.IntentMovementExplanation, cc.LastIntent)
	assert.NotPanics(t, func() { Skip(nil) })
}

// ==========================
// Session and Store Tests
// ==========================

func TestSession_TurnIsSerialized(t *testing.T) {
	sess := NewSession("s-1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Turn(func(cc *models.ConversationContext) {
				Skip(cc)
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, sess.Context().TurnCount)
	assert.Equal(t, 50, sess.Info().Turns)
}

func TestStore_GetOrCreate(t *testing.T) {
	store := NewStore(time.Minute, time.Minute, logger.NewTestLogger(t))

	first, created := store.GetOrCreate("abc")
	require.True(t, created)
	again, created := store.GetOrCreate("abc")
	assert.False(t, created)
	assert.Same(t, first, again)

	other, _ := store.GetOrCreate("xyz")
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, store.Count())

	store.End("abc")
	_, found := store.Get("abc")
	assert.False(t, found)
	assert.Equal(t, 1, store.Count())
}

func TestStore_IdleSessionsExpire(t *testing.T) {
	store := NewStore(20*time.Millisecond, 5*time.Millisecond, logger.NewNoOpLogger())
	store.GetOrCreate("short-lived")

	assert.Eventually(t, func() bool {
		_, found := store.Get("short-lived")
		return !found
	}, time.Second, 10*time.Millisecond)
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	store := NewStore(time.Minute, time.Minute, nil)
	a, _ := store.GetOrCreate("a")
	b, _ := store.GetOrCreate("b")

	a.Turn(func(cc *models.ConversationContext) {
		Update(cc, models.EffectiveQuery{Intent: models.IntentRankingQuery})
	})

	assert.Equal(t, 1, a.Context().TurnCount)
	other := b.Context()
	assert.Equal(t, 0, other.TurnCount)
	assert.False(t, other.Active())
}
