package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/speakpath/speakpath-backend/internal/logger"
)

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestRetryClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"caller cancelled", context.Canceled, false},
		{"wrapped cancel", fmt.Errorf("post: %w", context.Canceled), false},
		{"net timeout", timeoutNetError{}, true},
		{"http 429", &openAIHTTPError{StatusCode: 429}, true},
		{"http 503", &openAIHTTPError{StatusCode: 503}, true},
		{"http 400", &openAIHTTPError{StatusCode: 400}, false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tc := range cases {
		if got := isRetryableErr(tc.err); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestDoStopsWhenCallerGone(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	c := &openAIClient{
		log:        log,
		baseURL:    srv.URL,
		apiKey:     "k",
		model:      "m",
		httpClient: srv.Client(),
		maxRetries: 5,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := c.do(ctx, "POST", "/v1/chat/completions", nil, nil); err == nil {
		t.Fatalf("want error for cancelled context")
	}
	// No backoff sleep may run once the caller is gone.
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("do slept after cancellation: %v", elapsed)
	}
	if got := requests.Load(); got != 0 {
		t.Fatalf("request count after pre-cancelled context: want=0 got=%d", got)
	}
}
