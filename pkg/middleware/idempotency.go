package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"hotelbook/pkg/authz"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/metrics"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// IdempotencyStore remembers successful responses per key. Reserve marks a
// key in flight so a concurrent duplicate can be rejected.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool, error)
	Reserve(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, response *CachedResponse) error
	Release(ctx context.Context, key string) error
	Name() string
	Stop()
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type memoryEntry struct {
	response *CachedResponse
	reserved time.Time
}

type InMemoryIdempotencyStore struct {
	mu     sync.Mutex
	store  map[string]*memoryEntry
	ttl    time.Duration
	stopCh chan struct{}
	once   sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		store:  make(map[string]*memoryEntry),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Name() string { return "memory" }

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store[key]
	if !ok || e.response == nil {
		return nil, false, nil
	}
	if time.Since(e.response.CreatedAt) > s.ttl {
		delete(s.store, key)
		return nil, false, nil
	}
	return e.response, true, nil
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.store[key]; ok && !s.expired(e) {
		return false, nil
	}
	s.store[key] = &memoryEntry{reserved: time.Now()}
	return true, nil
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = time.Now()
	s.store[key] = &memoryEntry{response: response}
	return nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.store[key]; ok && e.response == nil {
		delete(s.store, key)
	}
	return nil
}

func (s *InMemoryIdempotencyStore) expired(e *memoryEntry) bool {
	if e.response != nil {
		return time.Since(e.response.CreatedAt) > s.ttl
	}
	return time.Since(e.reserved) > s.ttl
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, e := range s.store {
				if s.expired(e) {
					delete(s.store, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response for a repeated POST carrying
// the same Idempotency-Key from the same caller. A duplicate that arrives
// while the first is still running gets 409. Store failures degrade to
// plain execution.
func Idempotency(store IdempotencyStore, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderIdempotencyKey)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			scoped := scopeKey(ctx, r, key)

			cached, found, err := store.Get(ctx, scoped)
			if err != nil {
				log.Warn("Idempotency store lookup failed", "request_id", logger.RequestID(ctx), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if found {
				metrics.ObserveIdempotency(store.Name(), "hit")
				replayCachedResponse(w, cached)
				return
			}

			reserved, err := store.Reserve(ctx, scoped)
			if err != nil {
				log.Warn("Idempotency reservation failed", "request_id", logger.RequestID(ctx), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				metrics.ObserveIdempotency(store.Name(), "conflict")
				writeError(w, r, log, "Idempotency", apperrors.Conflict("a request with this Idempotency-Key is already in progress"))
				return
			}
			metrics.ObserveIdempotency(store.Name(), "miss")

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(capture, r)

			// the request context may already be cancelled
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()

			if capture.statusCode < 200 || capture.statusCode >= 300 {
				if err := store.Release(saveCtx, scoped); err != nil {
					log.Warn("Failed to release idempotency key", "request_id", logger.RequestID(ctx), "error", err)
				}
				return
			}
			cachedResp := &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			}
			if err := store.Set(saveCtx, scoped, cachedResp); err != nil {
				log.Warn("Failed to store idempotent response", "request_id", logger.RequestID(ctx), "error", err)
			}
		})
	}
}

func scopeKey(ctx context.Context, r *http.Request, key string) string {
	owner := "anonymous"
	if c, ok := authz.FromContext(ctx); ok {
		owner = c.ID
	}
	return owner + ":" + r.URL.Path + ":" + key
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		if key == HeaderRequestID {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
