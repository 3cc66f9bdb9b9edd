package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"habitreminder/pkg/circuitbreaker"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL + "/bot", Token: "TOKEN", Timeout: time.Second}, nil, zap.NewNop())
	return c, srv
}

func TestSendMessageRequest(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath, gotChat, gotText string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotChat, gotText = r.URL.Query().Get("chat_id"), r.URL.Query().Get("text")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	if err := c.SendMessage(context.Background(), 555001, "Reminder to perform drink_water."); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gotMethod != http.MethodGet || gotPath != "/botTOKEN/sendMessage" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotChat != "555001" || gotText != "Reminder to perform drink_water." {
		t.Fatalf("params chat_id=%q text=%q", gotChat, gotText)
	}
}

func TestSendMessageErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"blocked by user", http.StatusForbidden, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`, false},
		{"rate limited", http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests"}`, true},
		{"server error", http.StatusBadGateway, `bad gateway`, true},
		{"ok false with 200", http.StatusOK, `{"ok":false,"description":"weird"}`, false},
		{"malformed 200", http.StatusOK, `not json`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			err := c.SendMessage(context.Background(), 1, "hi")
			var de *DeliveryError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want *DeliveryError", err)
			}
			if de.StatusCode != tc.status || de.Retryable() != tc.retryable {
				t.Fatalf("DeliveryError = %+v retryable=%v", de, de.Retryable())
			}
		})
	}
}

func TestTransportErrorHidesToken(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{BaseURL: "http://127.0.0.1:1/bot", Token: "SECRET", Timeout: time.Second}, nil, zap.NewNop())
	err := c.SendMessage(context.Background(), 1, "hi")

	var de *DeliveryError
	if !errors.As(err, &de) || !de.Retryable() {
		t.Fatalf("err = %v", err)
	}
	if strings.Contains(err.Error(), "SECRET") {
		t.Fatalf("token leaked in error: %v", err)
	}
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusForbidden)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	t.Cleanup(srv.Close)

	breaker := NewBreaker(zap.NewNop())
	c := NewClient(Config{BaseURL: srv.URL + "/bot", Token: "T"}, breaker, zap.NewNop())

	for i := 0; i < 10; i++ {
		_ = c.SendMessage(context.Background(), 1, "hi")
	}
	if breaker.GetState() != circuitbreaker.StateClosed {
		t.Fatalf("client errors opened the breaker")
	}

	status.Store(http.StatusInternalServerError)
	for i := 0; i < circuitbreaker.DefaultConfig().FailureThreshold; i++ {
		_ = c.SendMessage(context.Background(), 1, "hi")
	}
	if breaker.GetState() != circuitbreaker.StateOpen {
		t.Fatalf("state = %v, want open", breaker.GetState())
	}

	before := calls.Load()
	err := c.SendMessage(context.Background(), 1, "hi")
	var de *DeliveryError
	if !errors.As(err, &de) || !errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) || !de.Retryable() {
		t.Fatalf("open breaker err = %v", err)
	}
	if calls.Load() != before {
		t.Fatalf("request sent while breaker open")
	}
}
