package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finquery-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestResponse() models.QueryResponse {
	return models.QueryResponse{
		Text:                  "Here is what drove the change.",
		ReferencedArtifactIDs: []string{"MOV-001", "CHART-TREND-MARKETING"},
		Intent:                models.IntentMovementExplanation,
		Timestamp:             time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

func createMiniredisCache(t *testing.T) (*ResponseCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewResponseCache(client, "test:", time.Minute), mr
}

// ==========================
// Core Functionality Tests
// ==========================

func TestResponseCache_SetThenGet(t *testing.T) {
	c, mr := createMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "v1:MovementExplanation:a=x", createTestResponse()))
	assert.True(t, mr.Exists("test:v1:MovementExplanation:a=x"))
	assert.Equal(t, time.Minute, mr.TTL("test:v1:MovementExplanation:a=x"))

	got, ok, err := c.Get(ctx, "v1:MovementExplanation:a=x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, createTestResponse().Text, got.Text)
	assert.Equal(t, createTestResponse().ReferencedArtifactIDs, got.ReferencedArtifactIDs)
	assert.True(t, createTestResponse().Timestamp.Equal(got.Timestamp))
}

func TestResponseCache_Expiry(t *testing.T) {
	c, mr := createMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", createTestResponse()))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResponseCache_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewResponseCache(client, "", 0)

	mock.ExpectGet(DefaultPrefix + "absent").RedisNil()

	_, ok, err := c.Get(context.Background(), "absent")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseCache_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewResponseCache(client, "p:", time.Minute)
	ctx := context.Background()

	mock.ExpectGet("p:k").SetErr(fmt.Errorf("connection refused"))
	_, ok, err := c.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)

	data, _ := json.Marshal(createTestResponse())
	mock.ExpectSet("p:k", data, time.Minute).SetErr(fmt.Errorf("READONLY"))
	assert.Error(t, c.Set(ctx, "k", createTestResponse()))

	mock.ExpectGet("p:bad").SetVal("{not json")
	_, ok, err = c.Get(ctx, "bad")
	assert.Error(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseCache_NilArtifactIDsBecomeEmpty(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewResponseCache(client, "p:", time.Minute)

	mock.ExpectGet("p:k").SetVal(`{"text":"ok","referencedArtifactIds":null,"intent":"DataSummary","timestamp":"2024-01-10T12:00:00Z"}`)

	got, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, got.ReferencedArtifactIDs)
	assert.Empty(t, got.ReferencedArtifactIDs)
}
