// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"finquery-workers/internal/common/config"
	"finquery-workers/internal/common/errors"
	"finquery-workers/internal/common/logger"
)

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries: 10,
	BaseDelay:  time.Second,
	MaxDelay:   15 * time.Second,
}

// Client owns the Zeebe connection and every job worker opened on it.
type Client struct {
	zeebe   zbc.Client
	cfg     config.CamundaConfig
	workers []worker.JobWorker
	log     logger.Logger
}

// Connect dials the gateway and confirms it answers a topology request, retrying transient failures.
func Connect(ctx context.Context, cfg config.CamundaConfig, retry RetryConfig, log logger.Logger) (*Client, error) {
	var c *Client
	err := Retry(ctx, retry, "zeebe connect", log, func(ctx context.Context) error {
		zc, err := zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.BrokerAddress,
			UsePlaintextConnection: true,
		})
		if err != nil {
			return err
		}
		client := &Client{zeebe: zc, cfg: cfg, log: log}
		if err := client.Ping(ctx); err != nil {
			_ = zc.Close()
			return err
		}
		c = client
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Ping issues a topology request bounded by the configured request timeout.
func (c *Client) Ping(ctx context.Context) error {
	timeout := config.GetDuration(c.cfg.RequestTimeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := c.zeebe.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe topology: %w", err)
	}
	return nil
}

// StartWorker opens a job worker for taskType unless it is disabled in configuration.
func (c *Client) StartWorker(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) {
	if !wcfg.Enabled {
		c.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	w := c.zeebe.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()
	c.workers = append(c.workers, w)

	c.log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
}

// Close stops every worker, waiting for in-flight jobs, then closes the connection.
func (c *Client) Close() error {
	for _, w := range c.workers {
		w.Close()
		w.AwaitClose()
	}
	return c.zeebe.Close()
}

// Retry runs op with exponential backoff while it fails with a transient error.
func Retry(ctx context.Context, rc RetryConfig, operation string, log logger.Logger, op func(context.Context) error) error {
	if rc.MaxRetries <= 0 {
		rc.MaxRetries = 1
	}
	delay := rc.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= rc.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == rc.MaxRetries {
			break
		}

		log.Warn("operation failed, retrying", map[string]interface{}{
			"operation":   operation,
			"attempt":     attempt,
			"maxRetries":  rc.MaxRetries,
			"nextRetryIn": delay.String(),
			"error":       lastErr.Error(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt, ctx.Err())
		}

		delay *= 2
		if rc.MaxDelay > 0 && delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
	}
	return MapError(operation, lastErr)
}

var retryablePhrases = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"deadline exceeded",
	"unavailable",
	"unreachable",
	"broken pipe",
	"no such host",
}

// IsRetryable reports whether err looks transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// MapError converts a gateway failure into a StandardError.
func MapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsStandardError(err); ok {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return errors.NewBrokerTimeoutError(operation, err)
	}
	return errors.NewBrokerUnavailableError(operation, err)
}

// LoggedHandler logs unexpected panics from a job handler so a single bad job cannot kill the worker.
func LoggedHandler(taskType string, log logger.Logger, h worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("job handler panicked", map[string]interface{}{
					"taskType": taskType,
					"jobKey":   job.Key,
					"panic":    fmt.Sprintf("%v", r),
				})
				_, _ = client.NewFailJobCommand().
					JobKey(job.Key).
					Retries(job.Retries - 1).
					ErrorMessage(fmt.Sprintf("%s: handler panic", errors.ErrCodeInternal)).
					Send(context.Background())
			}
		}()
		h(client, job)
	}
}
