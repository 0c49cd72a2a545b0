package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mayant15/railcar-bench/internal/cmn/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() backoff.RetryPolicy {
	p := backoff.NewExponentialBackoffPolicy(time.Millisecond)
	p.MaxRetries = 3
	return p
}

// webhook answers with the given status codes in order, then 200.
func webhook(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32, chan map[string]any) {
	t.Helper()
	var calls atomic.Int32
	bodies := make(chan map[string]any, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, http.MethodPost, r.Method)
		bodies <- body
		if n <= len(codes) {
			w.WriteHeader(codes[n-1])
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, bodies
}

func TestFromEnv(t *testing.T) {
	assert.IsType(t, Nop{}, FromEnv(nil))
	assert.IsType(t, Nop{}, FromEnv(map[string]string{DiscordWebhookEnv: ""}))
	assert.IsType(t, &Discord{}, FromEnv(map[string]string{DiscordWebhookEnv: "http://d", SlackWebhookEnv: "http://s"}))
	assert.IsType(t, &Slack{}, FromEnv(map[string]string{SlackWebhookEnv: "http://s"}))

	assert.NoError(t, Nop{}.Notify(context.Background(), "ignored"))
}

func TestDiscord_Notify(t *testing.T) {
	srv, calls, bodies := webhook(t)

	d := NewDiscord(srv.URL)
	require.NoError(t, d.Notify(context.Background(), "pako bytes 18.00"))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, map[string]any{"content": "```\npako bytes 18.00\n```"}, <-bodies)
}

func TestDiscord_RetriesServerErrors(t *testing.T) {
	srv, calls, _ := webhook(t, http.StatusServiceUnavailable, http.StatusTooManyRequests)

	d := NewDiscord(srv.URL)
	d.policy = fastPolicy()
	require.NoError(t, d.Notify(context.Background(), "summary"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDiscord_ClientErrorIsFinal(t *testing.T) {
	srv, calls, _ := webhook(t, http.StatusBadRequest)

	d := NewDiscord(srv.URL)
	d.policy = fastPolicy()
	err := d.Notify(context.Background(), "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDiscord_GivesUp(t *testing.T) {
	codes := []int{500, 500, 500, 500, 500}
	srv, calls, _ := webhook(t, codes...)

	d := NewDiscord(srv.URL)
	d.policy = fastPolicy()
	require.Error(t, d.Notify(context.Background(), "summary"))
	assert.Equal(t, int32(4), calls.Load(), "first attempt and three retries")
}

func TestSlack_Notify(t *testing.T) {
	srv, calls, bodies := webhook(t, http.StatusBadGateway)

	s := NewSlack(srv.URL)
	s.policy = fastPolicy()
	require.NoError(t, s.Notify(context.Background(), "pako bytes 18.00"))
	assert.Equal(t, int32(2), calls.Load())
	body := <-bodies
	assert.Equal(t, "```\npako bytes 18.00\n```", body["text"])
}

func TestSlack_ClientErrorIsFinal(t *testing.T) {
	srv, calls, _ := webhook(t, http.StatusForbidden)

	s := NewSlack(srv.URL)
	s.policy = fastPolicy()
	require.Error(t, s.Notify(context.Background(), "summary"))
	assert.Equal(t, int32(1), calls.Load())
}
