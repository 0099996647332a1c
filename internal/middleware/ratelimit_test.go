package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
	keys   []string
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	f.keys = append(f.keys, key)
	return f.counts[key], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(t *testing.T, h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	t.Run("allows up to the limit then rejects", func(t *testing.T) {
		counter := &fakeCounter{}
		h := RateLimit(counter, "auth", 3)(okHandler())

		for i := 0; i < 3; i++ {
			w := hit(t, h, "10.0.0.1:1234")
			assert.Equal(t, http.StatusOK, w.Code)
		}

		w := hit(t, h, "10.0.0.1:1234")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Too many requests, please try again later", body["error"])
	})

	t.Run("exposes limit headers", func(t *testing.T) {
		counter := &fakeCounter{}
		h := RateLimit(counter, "auth", 2)(okHandler())

		w := hit(t, h, "10.0.0.1:1234")
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

		hit(t, h, "10.0.0.1:1234")
		w = hit(t, h, "10.0.0.1:1234")
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("counters are per client and per scope", func(t *testing.T) {
		counter := &fakeCounter{}
		auth := RateLimit(counter, "auth", 1)(okHandler())
		posts := RateLimit(counter, "posts", 1)(okHandler())

		assert.Equal(t, http.StatusOK, hit(t, auth, "10.0.0.1:1111").Code)
		assert.Equal(t, http.StatusTooManyRequests, hit(t, auth, "10.0.0.1:2222").Code) // same host, new port
		assert.Equal(t, http.StatusOK, hit(t, auth, "10.0.0.2:1111").Code)
		assert.Equal(t, http.StatusOK, hit(t, posts, "10.0.0.1:1111").Code)

		assert.Contains(t, counter.keys, "ratelimit:auth:10.0.0.1")
		assert.Contains(t, counter.keys, "ratelimit:auth:10.0.0.2")
		assert.Contains(t, counter.keys, "ratelimit:posts:10.0.0.1")
	})

	t.Run("fails open when the counter is down", func(t *testing.T) {
		counter := &fakeCounter{err: errors.New("connection refused")}
		h := RateLimit(counter, "auth", 1)(okHandler())

		for i := 0; i < 5; i++ {
			w := hit(t, h, "10.0.0.1:1234")
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}
