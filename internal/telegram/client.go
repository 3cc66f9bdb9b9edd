package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"habitreminder/pkg/circuitbreaker"
	"habitreminder/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Config is the Bot API endpoint. Requests go to BaseURL + Token + "/sendMessage".
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// DeliveryError reports a message the Bot API did not accept.
type DeliveryError struct {
	ChatID      int64
	StatusCode  int // 0 when the request never got a response
	Description string
	Err         error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telegram delivery to %d failed: %v", e.ChatID, e.Err)
	}
	return fmt.Sprintf("telegram delivery to %d failed: status %d: %s", e.ChatID, e.StatusCode, e.Description)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Retryable reports whether sending again may succeed: transport failures, rate limiting and server errors.
func (e *DeliveryError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Client Telegram Bot API 客户端
type Client struct {
	httpClient *http.Client
	endpoint   string
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(cfg Config, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.BaseURL + cfg.Token + "/sendMessage",
		breaker:    breaker,
		logger:     logger,
	}
}

// NewBreaker returns a circuit breaker that only counts retryable delivery failures.
func NewBreaker(log *zap.Logger) *circuitbreaker.CircuitBreaker {
	cfg := circuitbreaker.DefaultConfig()
	cfg.IsFailure = func(err error) bool {
		var de *DeliveryError
		return !errors.As(err, &de) || de.Retryable()
	}
	cfg.OnStateChange = func(from, to circuitbreaker.State) {
		log.Warn("Telegram circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return circuitbreaker.NewCircuitBreaker(cfg)
}

// SendMessage sends text to chatID with a GET to sendMessage.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c.breaker == nil {
		return c.send(ctx, chatID, text)
	}
	err := c.breaker.Execute(func() error {
		return c.send(ctx, chatID, text)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return &DeliveryError{ChatID: chatID, Err: err}
	}
	return err
}

func (c *Client) send(ctx context.Context, chatID int64, text string) error {
	log := logger.WithTrace(ctx, c.logger).With(zap.Int64("chat_id", chatID))

	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("Telegram request failed", zap.Error(redact(err)))
		return &DeliveryError{ChatID: chatID, Err: redact(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &DeliveryError{ChatID: chatID, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var apiResp apiResponse
	if jsonErr := json.Unmarshal(body, &apiResp); jsonErr != nil && resp.StatusCode < 300 {
		return &DeliveryError{ChatID: chatID, StatusCode: resp.StatusCode, Description: "malformed response"}
	}

	if resp.StatusCode >= 300 || !apiResp.OK {
		log.Warn("Telegram API returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.Int("error_code", apiResp.ErrorCode),
			zap.String("description", apiResp.Description),
		)
		return &DeliveryError{ChatID: chatID, StatusCode: resp.StatusCode, Description: apiResp.Description}
	}

	log.Debug("Telegram message sent")
	return nil
}

// redact strips the request URL, which carries the bot token, from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{Op: urlErr.Op, URL: "sendMessage", Err: urlErr.Err}
	}
	return err
}
