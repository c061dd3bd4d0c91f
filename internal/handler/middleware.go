package handler

import (
	"bytes"
	"net/http"

	"github.com/boddenberg/wager-ledger-go/internal/infra/observability"
	"github.com/boddenberg/wager-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/wager-ledger-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// IdempotencyHeader names the request header carrying the client's retry key.
const IdempotencyHeader = "Idempotency-Key"

// CachedResponse is a captured response kept for idempotent replay.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// responseCapture buffers a handler's response so it can be cached and
// written to every caller sharing the same idempotency key.
type responseCapture struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseCapture() *responseCapture {
	return &responseCapture{header: make(http.Header)}
}

func (c *responseCapture) Header() http.Header { return c.header }

func (c *responseCapture) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
}

func (c *responseCapture) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	return c.body.Write(p)
}

func (c *responseCapture) result() *CachedResponse {
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	return &CachedResponse{Status: status, Header: c.header.Clone(), Body: c.body.Bytes()}
}

func replay(w http.ResponseWriter, resp *CachedResponse, replayed bool) {
	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	if replayed {
		w.Header().Set("X-Idempotency-Replayed", "true")
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key instead of applying the operation again. Concurrent
// requests with the same key share one execution. 5xx responses are not
// stored so the caller can retry them. Requests without the header pass
// through untouched.
func IdempotencyMiddleware(store port.Cache[*CachedResponse], metrics *observability.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	var group singleflight.Group

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			cacheKey := r.Method + " " + r.URL.Path + " " + key

			if cached, ok := store.Get(cacheKey); ok {
				logger.Debug("idempotency hit", zap.String("key", key))
				metrics.IncrIdempotentReplay()
				replay(w, cached, true)
				return
			}

			executed := false
			v, _, _ := group.Do(cacheKey, func() (any, error) {
				// A request that finished between the lookup above and
				// joining the group has already stored its response.
				if cached, ok := store.Get(cacheKey); ok {
					return cached, nil
				}
				executed = true
				capture := newResponseCapture()
				next.ServeHTTP(capture, r)
				resp := capture.result()
				if resp.Status < http.StatusInternalServerError {
					store.Set(cacheKey, resp)
				}
				return resp, nil
			})
			if !executed {
				metrics.IncrIdempotentReplay()
			}
			replay(w, v.(*CachedResponse), !executed)
		})
	}
}

// BulkheadMiddleware rejects requests with 503 once maxConcurrency requests
// are already in flight.
func BulkheadMiddleware(bulkhead *resilience.Bulkhead, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !bulkhead.TryAcquire() {
				logger.Warn("bulkhead full, rejecting request",
					zap.String("path", r.URL.Path),
					zap.Int("in_flight", bulkhead.InFlight()),
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "server busy")
				return
			}
			defer bulkhead.Release()
			next.ServeHTTP(w, r)
		})
	}
}
