package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

// HeaderErrorKind names the error category of a failed response.
const HeaderErrorKind = "X-Error-Kind"

// Error kinds reported in the body and in X-Error-Kind.
const (
	KindInvalidInput   = "invalid_input"
	KindUpstream       = "upstream"
	KindRefNotResolved = "ref_not_resolved"
	KindBinary         = "binary_content"
	KindRange          = "range"
	KindConfiguration  = "configuration"
	KindInternal       = "internal"
)

// classify maps a service error to an HTTP status and error kind.
func classify(err error) (int, string) {
	var (
		inputErr repos.InvalidInputError
		refErr   repos.RefNotResolvedError
		binErr   repos.BinaryContentError
		rangeErr repos.RangeError
		credErr  repos.MissingCredentialError
		upErr    repos.UpstreamError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, KindInvalidInput
	case errors.As(err, &refErr):
		return http.StatusBadRequest, KindRefNotResolved
	case errors.As(err, &binErr):
		return http.StatusUnsupportedMediaType, KindBinary
	case errors.As(err, &rangeErr):
		return http.StatusRequestedRangeNotSatisfiable, KindRange
	case errors.As(err, &credErr):
		return http.StatusServiceUnavailable, KindConfiguration
	case errors.As(err, &upErr):
		return upErr.Status, KindUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, KindUpstream
	}
	return http.StatusInternalServerError, KindInternal
}

// fail logs and writes the error response for op.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	status, kind := classify(err)
	msg := err.Error()
	if kind == KindInternal {
		msg = "internal error"
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.log.Log(c.Request.Context(), level, op+" failed",
		"owner", c.Query("owner"),
		"repo", c.Query("repo"),
		"status", status,
		"kind", kind,
		"error", err,
	)

	c.Header(HeaderErrorKind, kind)
	c.Header("Cache-Control", "no-store")
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}
