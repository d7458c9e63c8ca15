package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

// Handler translates HTTP requests into calls on the repos.Service.
type Handler struct {
	svc            *repos.Service
	log            *slog.Logger
	baseURL        string
	trustForwarded bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithForwardedHeaders derives link origins from X-Forwarded-Proto and
// X-Forwarded-Host. Enable it only behind a proxy that overwrites them.
func WithForwardedHeaders() Option {
	return func(h *Handler) { h.trustForwarded = true }
}

// RegisterRoutes mounts the proxy API onto the given Gin router. baseURL is
// the public origin used in generated links; empty means derive it from the
// request. CORS is expected from httpmw.CORS registered on the router.
func RegisterRoutes(r gin.IRouter, svc *repos.Service, log *slog.Logger, baseURL string, opts ...Option) {
	h := &Handler{svc: svc, log: log, baseURL: baseURL}
	for _, opt := range opts {
		opt(h)
	}

	r.GET("/health", h.Health)

	api := r.Group("/api")
	for path, fn := range map[string]gin.HandlerFunc{
		"/tree":   h.Tree,
		"/file":   h.File,
		"/bundle": h.Bundle,
		"/meta":   h.Meta,
		"/diff":   h.Diff,
	} {
		api.GET(path, fn)
		api.OPTIONS(path, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
}

// Health reports that the process is serving.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// write copies a composed response onto the wire.
func (h *Handler) write(c *gin.Context, res repos.Response) {
	dst := c.Writer.Header()
	for k, vs := range res.Header {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, res.ContentType, []byte(res.Body))
}

// writeJSON sends a JSON body with the pinned metadata headers.
func (h *Handler) writeJSON(c *gin.Context, header http.Header, body any) {
	dst := c.Writer.Header()
	for k, vs := range header {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, body)
}

// publicBase returns the origin used in links handed back to clients.
// Forwarded headers are ignored unless WithForwardedHeaders was given.
func (h *Handler) publicBase(c *gin.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	host := c.Request.Host
	if h.trustForwarded {
		if p := c.GetHeader("X-Forwarded-Proto"); p == "http" || p == "https" {
			scheme = p
		}
		if fh := c.GetHeader("X-Forwarded-Host"); fh != "" {
			host = fh
		}
	}
	return scheme + "://" + host
}
