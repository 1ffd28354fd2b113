package answerfinancialquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"finquery-workers/internal/common/errors"
	"finquery-workers/internal/common/metrics"
	"finquery-workers/internal/common/observability"
	"finquery-workers/internal/common/validation"
	"finquery-workers/internal/engine/conversation"
	"finquery-workers/internal/engine/query"
	"finquery-workers/internal/models"
)

const (
	TaskType = "answer-financial-query"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Answerer answers one turn inside a session.
type Answerer interface {
	ProcessTurn(ctx context.Context, session *conversation.Session, q models.RawQuery, anchor time.Time) query.TurnOutcome
}

var inputValidator = validation.MustCompile(inputSchema)

type Handler struct {
	config   *Config
	engine   Answerer
	sessions *conversation.Store
	errors   *errors.ErrorHandler
	obs      *observability.Observability
	logger   Logger
}

func NewHandler(config *Config, engine Answerer, sessions *conversation.Store, obs *observability.Observability, log Logger) *Handler {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	scoped := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:   config,
		engine:   engine,
		sessions: sessions,
		errors:   errors.NewErrorHandler(scoped),
		obs:      obs,
		logger:   scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	vars, err := job.GetVariablesAsMap()
	if err != nil {
		h.failJob(ctx, client, job, errors.NewInvalidQueryInputError(fmt.Sprintf("parse variables: %v", err)), start)
		return
	}

	input, err := DecodeInput(vars)
	if err != nil {
		h.failJob(ctx, client, job, err, start)
		return
	}

	ctx = query.WithRequestID(ctx, fmt.Sprintf("job-%d", job.Key))
	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output, start)
}

// DecodeInput validates raw job variables and decodes them.
func DecodeInput(vars map[string]interface{}) (*Input, error) {
	if err := inputValidator.Validate(vars).AsError(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(vars)
	if err != nil {
		return nil, errors.NewInvalidQueryInputError(err.Error())
	}
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidQueryInputError(err.Error())
	}
	return &input, nil
}

// Execute answers one question. Query outcomes such as ambiguity or missing data are
// part of the response; only malformed input is an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, errors.NewInvalidQueryInputError("question is empty")
	}

	anchor := h.config.Clock()
	if input.AnchorDate != "" {
		parsed, err := time.Parse(models.DateLayout, input.AnchorDate)
		if err != nil {
			return nil, errors.NewInvalidQueryInputError(fmt.Sprintf("anchorDate: %v", err))
		}
		anchor = parsed
	}

	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	if query.RequestIDFromContext(ctx) == "" {
		ctx = query.WithRequestID(ctx, uuid.New().String())
	}

	session, created := h.sessions.GetOrCreate(sessionID)
	outcome := h.engine.ProcessTurn(ctx, session, models.RawQuery{Text: question, Turn: input.Turn}, anchor)
	resp := outcome.Response

	output := &Output{
		SessionID:  sessionID,
		NewSession: created,
		TurnCount:  outcome.TurnCount,
		Response:   resp,
	}

	if input.EndSession {
		h.sessions.End(sessionID)
	}

	h.logger.Info("question answered", map[string]interface{}{
		"sessionId":  sessionID,
		"newSession": created,
		"turn":       outcome.Turn,
		"intent":     resp.Intent,
		"errorCode":  resp.ErrorCode,
	})

	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err = cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "completed")
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	code := string(errors.ErrCodeInternal)
	if stdErr, ok := errors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, "failed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "failed")

	h.errors.HandleJobError(ctx, client, job, err)
}
