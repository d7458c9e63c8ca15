// Package httpmw holds the gin middleware shared by every proxy route.
package httpmw

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tilsley/repoproxy/pkg/logging"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-Id"

// exposed lists the response headers browsers may read cross-origin.
const exposed = "X-Owner, X-Repo, X-Ref, X-Commit-Sha, X-Default-Branch, X-Path, X-Dir, " +
	"X-Blob-Sha, X-Total-Lines, X-Range, X-Next-Start, X-Content-Sha256, X-Chunk-Sha256, " +
	"X-Total-Files, X-Chunk-Files, X-Cursor, X-Next-Cursor, X-Body-Sha256, X-Tree-Truncated, X-Base-Commit-Sha, " +
	"X-Error-Kind, X-Request-Id, Retry-After"

// CORS allows any origin to call the read-only API and answers preflights.
// Responses are marked uncacheable. Register it ahead of any middleware that
// can abort, so rejections stay readable cross-origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "no-store")
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Expose-Headers", exposed)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID reuses an inbound X-Request-Id or mints a new one and echoes it.
// The id is attached to the request context so every log line for the
// request carries it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(logging.WithAttrs(c.Request.Context(), "request_id", id))
		c.Next()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		log.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
