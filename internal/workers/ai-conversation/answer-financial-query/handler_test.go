package answerfinancialquery

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finquery-workers/internal/common/errors"
	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/engine/aggregate"
	"finquery-workers/internal/engine/conversation"
	"finquery-workers/internal/engine/enginetest"
	"finquery-workers/internal/engine/query"
	"finquery-workers/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		Clock:   enginetest.Clock,
	}
}

func createTestHandler(t *testing.T) (*Handler, *conversation.Store) {
	t.Helper()
	engine := query.NewEngine(enginetest.Dataset(), query.Config{
		ConfidenceThreshold: 0.5,
		FollowUpMaxWords:    8,
		Aggregate:           aggregate.DefaultOptions(),
	}, logger.NewTestLogger(t), query.WithClock(enginetest.Clock))

	store := conversation.NewStore(time.Minute, time.Minute, logger.NewTestLogger(t))
	return NewHandler(createTestConfig(), engine, store, nil, NewTestLogger(t)), store
}

type recordingAnswerer struct {
	mu      sync.Mutex
	anchors []time.Time
	reqIDs  []string
}

func (r *recordingAnswerer) ProcessTurn(ctx context.Context, s *conversation.Session, q models.RawQuery, anchor time.Time) query.TurnOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchors = append(r.anchors, anchor)
	r.reqIDs = append(r.reqIDs, query.RequestIDFromContext(ctx))

	out := query.TurnOutcome{
		Response: models.QueryResponse{Text: "ok", ReferencedArtifactIDs: []string{}, Intent: models.IntentDataSummary},
	}
	s.Turn(func(cc *models.ConversationContext) {
		cc.TurnCount++
		out.Turn = cc.TurnCount
		out.TurnCount = cc.TurnCount
	})
	return out
}

func requireInvalidInput(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidQueryInput, stdErr.Code)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name         string
		question     string
		wantIntent   models.Intent
		wantContains string
		wantArtifact string
	}{
		{
			name:         "movement explanation",
			question:     "What drove the increase in marketing expenses?",
			wantIntent:   models.IntentMovementExplanation,
			wantContains: "$850.75",
			wantArtifact: "MOV-001",
		},
		{
			name:         "ranking",
			question:     "Show me the top expenses",
			wantIntent:   models.IntentRankingQuery,
			wantContains: "1. Expense - Rent: $1,500.00",
		},
		{
			name:         "unrelated",
			question:     "What is the meaning of life?",
			wantIntent:   models.IntentUnrelated,
			wantContains: "Show me the top expenses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := createTestHandler(t)

			output, err := handler.Execute(context.Background(), &Input{Question: tt.question, AnchorDate: "2024-01-10"})
			require.NoError(t, err)

			assert.True(t, output.NewSession)
			_, err = uuid.Parse(output.SessionID)
			assert.NoError(t, err)
			assert.Equal(t, 1, output.TurnCount)
			assert.Equal(t, tt.wantIntent, output.Response.Intent)
			assert.Contains(t, output.Response.Text, tt.wantContains)
			if tt.wantArtifact != "" {
				assert.Contains(t, output.Response.ReferencedArtifactIDs, tt.wantArtifact)
			}
		})
	}
}

func TestHandler_Execute_FollowUpAcrossJobs(t *testing.T) {
	handler, store := createTestHandler(t)
	ctx := context.Background()

	first, err := handler.Execute(ctx, &Input{SessionID: "conv-1", Question: "What drove the increase in marketing expenses?"})
	require.NoError(t, err)
	assert.True(t, first.NewSession)

	second, err := handler.Execute(ctx, &Input{SessionID: "conv-1", Question: "Tell me more about that"})
	require.NoError(t, err)

	assert.False(t, second.NewSession)
	assert.Equal(t, 2, second.TurnCount)
	assert.Equal(t, models.IntentMovementExplanation, second.Response.Intent)
	assert.Equal(t, first.Response.Text, second.Response.Text)
	assert.Equal(t, 1, store.Count())
}

func TestHandler_Execute_SessionsAreIsolated(t *testing.T) {
	handler, _ := createTestHandler(t)
	ctx := context.Background()

	_, err := handler.Execute(ctx, &Input{SessionID: "a", Question: "What drove the increase in marketing expenses?"})
	require.NoError(t, err)

	other, err := handler.Execute(ctx, &Input{SessionID: "b", Question: "Tell me more about that"})
	require.NoError(t, err)
	assert.Equal(t, "PARSE_AMBIGUITY", other.Response.ErrorCode)
}

func TestHandler_Execute_EndSession(t *testing.T) {
	handler, store := createTestHandler(t)

	_, err := handler.Execute(context.Background(), &Input{SessionID: "bye", Question: "Show me the top expenses", EndSession: true})
	require.NoError(t, err)

	_, ok := store.Get("bye")
	assert.False(t, ok)
}

func TestHandler_Execute_ConcurrentJobsGetDistinctTurns(t *testing.T) {
	handler, store := createTestHandler(t)
	const jobs = 8

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		counts []int
	)
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			output, err := handler.Execute(context.Background(), &Input{SessionID: "shared", Question: "Show me the top expenses"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			counts = append(counts, output.TurnCount)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(counts)
	want := make([]int, jobs)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, counts)

	sess, ok := store.Get("shared")
	require.True(t, ok)
	assert.Equal(t, jobs, sess.Context().TurnCount)
}

func TestHandler_Execute_AnchorAndRequestID(t *testing.T) {
	answerer := &recordingAnswerer{}
	store := conversation.NewStore(time.Minute, time.Minute, logger.NewNoOpLogger())
	handler := NewHandler(createTestConfig(), answerer, store, nil, NewTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{Question: "Show revenue"})
	require.NoError(t, err)
	_, err = handler.Execute(query.WithRequestID(context.Background(), "job-42"), &Input{Question: "Show revenue", AnchorDate: "2023-06-30"})
	require.NoError(t, err)

	require.Len(t, answerer.anchors, 2)
	assert.Equal(t, enginetest.Clock(), answerer.anchors[0])
	assert.Equal(t, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), answerer.anchors[1])

	assert.NotEmpty(t, answerer.reqIDs[0])
	assert.Equal(t, "job-42", answerer.reqIDs[1])
}

// ==========================
// Input Validation Tests
// ==========================

func TestDecodeInput(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]interface{}
		wantErr bool
		check   func(t *testing.T, in *Input)
	}{
		{
			name: "full input",
			vars: map[string]interface{}{"sessionId": "s1", "question": "Top expenses", "turn": 3, "anchorDate": "2024-01-10", "endSession": true},
			check: func(t *testing.T, in *Input) {
				assert.Equal(t, "s1", in.SessionID)
				assert.Equal(t, 3, in.Turn)
				assert.Equal(t, "2024-01-10", in.AnchorDate)
				assert.True(t, in.EndSession)
			},
		},
		{
			name: "question only",
			vars: map[string]interface{}{"question": "Top expenses", "processVar": "ignored"},
			check: func(t *testing.T, in *Input) {
				assert.Empty(t, in.SessionID)
				assert.Zero(t, in.Turn)
			},
		},
		{name: "missing question", vars: map[string]interface{}{"sessionId": "s1"}, wantErr: true},
		{name: "empty question", vars: map[string]interface{}{"question": ""}, wantErr: true},
		{name: "question wrong type", vars: map[string]interface{}{"question": 42}, wantErr: true},
		{name: "negative turn", vars: map[string]interface{}{"question": "q", "turn": -1}, wantErr: true},
		{name: "bad anchor format", vars: map[string]interface{}{"question": "q", "anchorDate": "Jan 10"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := DecodeInput(tt.vars)
			if tt.wantErr {
				requireInvalidInput(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, in)
		})
	}
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	handler, _ := createTestHandler(t)

	_, err := handler.Execute(context.Background(), &Input{Question: "   "})
	requireInvalidInput(t, err)

	_, err = handler.Execute(context.Background(), &Input{Question: "Top expenses", AnchorDate: "2024-02-30"})
	requireInvalidInput(t, err)
}
