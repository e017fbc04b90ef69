package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/pkg/utils"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyHeader  = "Idempotency-Key"
	idempotencyTTL     = 24 * time.Hour
	idempotencyLockTTL = 30 * time.Second
	idempotencyPrefix  = "idempotency:"
	maxIdempotentBody  = 1 << 20
)

// IdempotencyMiddleware replays the stored 2xx response for a repeated
// Idempotency-Key on mutating requests. A key reused with a different
// request is rejected.
type IdempotencyMiddleware struct {
	redis  *redis.Client
	logger *slog.Logger
}

type cachedResponse struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
	BodyHash   string            `json:"body_hash"`
}

func NewIdempotencyMiddleware(redisClient *redis.Client, logger *slog.Logger) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{redis: redisClient, logger: logger}
}

// responseWriter captures the response for caching
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func (m *IdempotencyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
			next.ServeHTTP(w, r)
			return
		}

		idempotencyKey := r.Header.Get(IdempotencyHeader)
		if idempotencyKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		var bodyBytes []byte
		if r.Body != nil {
			var err error
			bodyBytes, err = io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
			if err != nil || len(bodyBytes) > maxIdempotentBody {
				utils.BadRequest(w, "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		requestHash := hashRequest(r.Method, r.URL.Path, bodyBytes)
		cacheKey := idempotencyPrefix + idempotencyKey
		ctx := r.Context()

		cached, err := m.getCachedResponse(ctx, cacheKey)
		switch {
		case err == nil:
			if cached.BodyHash != requestHash {
				utils.Error(w, apperrors.IdempotencyConflict())
				return
			}
			for k, v := range cached.Headers {
				w.Header().Set(k, v)
			}
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(cached.StatusCode)
			w.Write(cached.Body)
			return
		case !errors.Is(err, redis.Nil):
			m.logger.Warn("idempotency store unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		lockKey := cacheKey + ":lock"
		locked, err := m.redis.SetNX(ctx, lockKey, "1", idempotencyLockTTL).Result()
		if err != nil {
			m.logger.Warn("idempotency store unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !locked {
			utils.Error(w, apperrors.NewAPIError("request_in_progress", "a request with this idempotency key is already being processed", http.StatusConflict))
			return
		}

		// The response is stored even if the client has gone away.
		storeCtx := context.WithoutCancel(ctx)
		defer m.redis.Del(storeCtx, lockKey)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}
		data, err := json.Marshal(cachedResponse{
			StatusCode: rw.statusCode,
			Headers:    map[string]string{"Content-Type": rw.Header().Get("Content-Type")},
			Body:       rw.body.Bytes(),
			BodyHash:   requestHash,
		})
		if err != nil {
			return
		}
		if err := m.redis.Set(storeCtx, cacheKey, data, idempotencyTTL).Err(); err != nil {
			m.logger.Warn("failed to store idempotent response", "error", err)
		}
	})
}

func (m *IdempotencyMiddleware) getCachedResponse(ctx context.Context, key string) (*cachedResponse, error) {
	data, err := m.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
