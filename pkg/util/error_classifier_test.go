package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeDeliveryErr struct{ retry bool }

func (e *fakeDeliveryErr) Error() string   { return "delivery failed" }
func (e *fakeDeliveryErr) Retryable() bool { return e.retry }

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	var syntaxErr error
	if err := json.Unmarshal([]byte("{"), &struct{}{}); err != nil {
		syntaxErr = err
	}

	cases := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"delivery retryable", fmt.Errorf("send: %w", &fakeDeliveryErr{retry: true}), true, "delivery_error"},
		{"delivery rejected", &fakeDeliveryErr{retry: false}, false, "delivery_rejected"},
		{"json", syntaxErr, false, "json_decode_error"},
		{"no rows", fmt.Errorf("load: %w", pgx.ErrNoRows), false, "not_found"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"url", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}, true, "network_error"},
		{"breaker", errors.New("circuit breaker is open"), true, "circuit_open"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			retry, kind := IsRetryableError(tc.err)
			if retry != tc.retryable || kind != tc.kind {
				t.Fatalf("IsRetryableError(%v) = (%v, %q), want (%v, %q)", tc.err, retry, kind, tc.retryable, tc.kind)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	if ShouldRetry(1, 3, false) {
		t.Fatalf("non-retryable error must never retry")
	}
	if !ShouldRetry(3, 3, true) {
		t.Fatalf("count equal to max should still retry")
	}
	if ShouldRetry(4, 3, true) {
		t.Fatalf("count above max must not retry")
	}
}

func TestKeyFormats(t *testing.T) {
	t.Parallel()

	if got := FormatDedupKey("reminder", "d-1"); got != "dedup:reminder:d-1" {
		t.Fatalf("dedup key = %q", got)
	}
	if got := FormatRetryKey("reminder", "d-1"); got != "retry:reminder:d-1" {
		t.Fatalf("retry key = %q", got)
	}
}
