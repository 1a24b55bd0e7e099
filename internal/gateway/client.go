package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sms-campaign/internal/metrics"
	"sms-campaign/pkg/logger"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("sms gateway not configured")
	ErrRejected      = errors.New("sms rejected by gateway")
	ErrUnavailable   = errors.New("sms gateway unavailable")
)

// Message is one outbound sms.
type Message struct {
	To        string
	Text      string
	Reference string
}

// Result describes the outcome of a single send. Statuses holds the
// gateway's per-recipient status texts.
type Result struct {
	Success   bool     `json:"success"`
	MessageID string   `json:"message_id,omitempty"`
	Statuses  []string `json:"statuses,omitempty"`
}

// Sender delivers one message. A failed send returns a Result whose
// Statuses explain the failure together with a non-nil error.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
	Configured() bool
}

type Config struct {
	BaseURL string
	APIKey  string
	Sender  string
	Timeout time.Duration

	CircuitBreakerRequests    uint32
	CircuitBreakerInterval    time.Duration
	CircuitBreakerRatio       float64
	CircuitBreakerTimeout     time.Duration
	CircuitBreakerMinRequests uint32
}

func DefaultConfig() Config {
	return Config{
		Timeout:                   10 * time.Second,
		CircuitBreakerRequests:    5,
		CircuitBreakerInterval:    60 * time.Second,
		CircuitBreakerRatio:       0.5,
		CircuitBreakerTimeout:     30 * time.Second,
		CircuitBreakerMinRequests: 10,
	}
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logger.Logger
}

func NewClient(cfg Config, l *logger.Logger) *Client {
	if l == nil {
		l = logger.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     l,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sms-gateway",
		MaxRequests: cfg.CircuitBreakerRequests,
		Interval:    cfg.CircuitBreakerInterval,
		Timeout:     cfg.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.CircuitBreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.CircuitBreakerRatio
		},
		// A rejected message says nothing about gateway health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warnf("circuit breaker %s changed from %s to %s", name, from, to)
			var state float64
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitBreakerClosed
			case gobreaker.StateOpen:
				state = metrics.CircuitBreakerOpen
				metrics.GatewayCircuitBreakerTrips.WithLabelValues(name).Inc()
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitBreakerHalfOpen
			}
			metrics.GatewayCircuitBreakerState.WithLabelValues(name).Set(state)
		},
	})
	return c
}

func (c *Client) Configured() bool {
	return c.cfg.BaseURL != ""
}

type sendRequest struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Text      string `json:"text"`
	Reference string `json:"reference,omitempty"`
}

type sendStatus struct {
	GroupName   string `json:"groupName"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type sendResponse struct {
	Messages []struct {
		To        string     `json:"to"`
		MessageID string     `json:"messageId"`
		Status    sendStatus `json:"status"`
	} `json:"messages"`
}

func (c *Client) Send(ctx context.Context, msg Message) (Result, error) {
	if !c.Configured() {
		metrics.GatewaySendsTotal.WithLabelValues("error").Inc()
		return Result{Statuses: []string{ErrNotConfigured.Error()}}, ErrNotConfigured
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, msg)
	})
	metrics.GatewaySendDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.GatewaySendsTotal.WithLabelValues("circuit_open").Inc()
			c.logger.WarnCtx(ctx, "sms gateway circuit open", zap.String("to", msg.To))
			return Result{Statuses: []string{ErrUnavailable.Error()}}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		case errors.Is(err, ErrRejected):
			metrics.GatewaySendsTotal.WithLabelValues("rejected").Inc()
		default:
			metrics.GatewaySendsTotal.WithLabelValues("error").Inc()
		}
		res, _ := out.(Result)
		if len(res.Statuses) == 0 {
			res.Statuses = []string{err.Error()}
		}
		return res, err
	}

	metrics.GatewaySendsTotal.WithLabelValues("sent").Inc()
	return out.(Result), nil
}

func (c *Client) do(ctx context.Context, msg Message) (Result, error) {
	body, err := json.Marshal(sendRequest{
		From:      c.cfg.Sender,
		To:        msg.To,
		Text:      msg.Text,
		Reference: msg.Reference,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal send request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/sms/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "App "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{}, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return Result{Statuses: []string{fmt.Sprintf("gateway returned %d", resp.StatusCode)}}, ErrRejected
		}
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	return interpret(resp.StatusCode, sr)
}

// interpret maps a decoded gateway response onto a Result. The send counts
// as successful only when every recipient status is accepted.
func interpret(code int, sr sendResponse) (Result, error) {
	res := Result{Success: code < http.StatusBadRequest && len(sr.Messages) > 0}
	for _, m := range sr.Messages {
		if res.MessageID == "" {
			res.MessageID = m.MessageID
		}
		status := m.Status.Description
		if status == "" {
			status = m.Status.Name
		}
		if status != "" {
			res.Statuses = append(res.Statuses, status)
		}
		switch strings.ToUpper(m.Status.GroupName) {
		case "REJECTED", "UNDELIVERABLE", "EXPIRED":
			res.Success = false
		}
	}
	if !res.Success {
		if len(res.Statuses) == 0 {
			res.Statuses = []string{fmt.Sprintf("gateway returned %d", code)}
		}
		return res, ErrRejected
	}
	return res, nil
}
