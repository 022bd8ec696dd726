package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/scada-notifier/internal/config"
	"github.com/jwalitptl/scada-notifier/pkg/circuitbreaker"
	"github.com/jwalitptl/scada-notifier/pkg/logger"
)

// Outcome classifies one gateway attempt.
type Outcome int

const (
	Success Outcome = iota
	RetryableFailure
	PermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "SUCCESS"
	case RetryableFailure:
		return "RETRYABLE_FAILURE"
	case PermanentFailure:
		return "PERMANENT_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Result carries the classification plus whatever the gateway answered,
// for the audit trail.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Body       string
	Err        error
}

// ErrorText returns the failure description to store on the attempt row.
func (r Result) ErrorText() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("gateway returned status %d: %s", r.StatusCode, r.Body)
}

// Sender sends one message to one phone number.
type Sender interface {
	Send(ctx context.Context, phoneNumber, message string) Result
}

// Client posts messages to the configured SMS gateway, mapping body field
// names from configuration rather than hard-coding them.
type Client struct {
	httpClient *http.Client
	cfg        config.GatewayConfig
	breaker    *circuitbreaker.CircuitBreaker
	limiter    *rate.Limiter
	logger     *logger.Logger
}

func NewClient(cfg config.GatewayConfig, log *logger.Logger) *Client {
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "sms-gateway",
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
		}),
		limiter: limiter,
		logger:  log,
	}
}

func (c *Client) Send(ctx context.Context, phoneNumber, message string) Result {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{Outcome: RetryableFailure, Err: fmt.Errorf("rate limiter wait: %w", err)}
		}
	}

	var result Result
	err := c.breaker.Execute(func() error {
		result = c.post(ctx, phoneNumber, message)
		if result.Outcome == RetryableFailure {
			return result.Err
		}
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		c.logger.Warn("gateway circuit breaker open, deferring send", "phone_number", phoneNumber)
		return Result{Outcome: RetryableFailure, Err: err}
	}
	return result
}

func (c *Client) post(ctx context.Context, phoneNumber, message string) Result {
	body, err := json.Marshal(map[string]string{
		c.cfg.PhoneField:   phoneNumber,
		c.cfg.MessageField: message,
		c.cfg.AppField:     c.cfg.AppValue,
	})
	if err != nil {
		return Result{Outcome: PermanentFailure, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Hostname, bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: PermanentFailure, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection errors are transient by definition.
		return Result{Outcome: RetryableFailure, Err: fmt.Errorf("gateway request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return Result{Outcome: RetryableFailure, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	result := Result{StatusCode: resp.StatusCode, Body: string(respBody)}
	result.Outcome = c.classify(resp.StatusCode)
	if result.Outcome != Success {
		result.Err = fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return result
}

func (c *Client) classify(statusCode int) Outcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return Success
	case statusCode == c.cfg.RetryableStatus:
		return RetryableFailure
	case statusCode >= 500:
		return RetryableFailure
	default:
		return PermanentFailure
	}
}
