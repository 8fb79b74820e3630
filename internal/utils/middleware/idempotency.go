package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"

	DefaultIdempotencyTTL = 24 * time.Hour
	idempotencyHold       = 30 * time.Second
)

// ReplayStore remembers responses to requests sent with an Idempotency-Key.
// Get returns nil when nothing is stored under key.
type ReplayStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Claim(ctx context.Context, key string, hold time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type replayedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a client retries a request
// with the same Idempotency-Key, route and body, so a retried checkout does
// not open a second provider session. Responses below 500 are stored for ttl.
// A concurrent duplicate gets 409. A nil store disables the middleware.
func Idempotency(store ReplayStore, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}

	return func(c *gin.Context) {
		clientKey := c.GetHeader(IdempotencyKeyHeader)
		if store == nil || clientKey == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := replayKey(c, clientKey)

		if raw, err := store.Get(ctx, key); err == nil && raw != nil {
			var resp replayedResponse
			if json.Unmarshal(raw, &resp) == nil {
				c.Header("Idempotent-Replayed", "true")
				c.Data(resp.Status, resp.ContentType, resp.Body)
				c.Abort()
				return
			}
		}

		claimed, err := store.Claim(ctx, key, idempotencyHold)
		if err != nil {
			c.Next()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "a request with this idempotency key is already in progress",
				"code":  "REQUEST_IN_PROGRESS",
			})
			return
		}
		detached := context.WithoutCancel(ctx)
		defer func() { _ = store.Release(detached, key) }()

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		if status := w.Status(); status < http.StatusInternalServerError {
			raw, err := json.Marshal(replayedResponse{
				Status:      status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        w.body.Bytes(),
			})
			if err == nil {
				_ = store.Put(detached, key, raw, ttl)
			}
		}
	}
}

// replayKey binds the client key to the method, route and body hash, so a
// reused key with a different payload is treated as a new request.
func replayKey(c *gin.Context, clientKey string) string {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	bodySum := sha256.Sum256(body)

	h := sha256.New()
	h.Write([]byte(c.Request.Method + " " + c.FullPath() + " " + clientKey + " "))
	h.Write(bodySum[:])
	return hex.EncodeToString(h.Sum(nil))
}
