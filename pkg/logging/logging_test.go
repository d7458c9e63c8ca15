package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/repoproxy/pkg/logging"
)

func TestNewTo_JSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewTo(&buf, "", "")
	log.Info("fetched", "owner", "acme")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fetched", line["msg"])
	assert.Equal(t, "acme", line["owner"])
}

func TestNewTo_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logging.NewTo(&buf, "text", "").Info("fetched", "owner", "acme")
	assert.Contains(t, buf.String(), "owner=acme")
}

func TestNewTo_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewTo(&buf, "json", "warn")
	log.Info("dropped")
	assert.Empty(t, buf.String())
	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("bogus"))
}

func TestWithAttrs_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewTo(&buf, "", "").With("service", "repoproxy")

	ctx := logging.WithAttrs(context.Background(), "request_id", "r-1")
	ctx = logging.WithAttrs(ctx, "owner", "acme")
	log.InfoContext(ctx, "fetched")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "r-1", line["request_id"])
	assert.Equal(t, "acme", line["owner"])
	assert.Equal(t, "repoproxy", line["service"])
}

func TestWithAttrs_ParentUnchanged(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewTo(&buf, "text", "")

	parent := logging.WithAttrs(context.Background(), "request_id", "r-1")
	_ = logging.WithAttrs(parent, "owner", "acme")
	log.InfoContext(parent, "fetched")

	assert.Contains(t, buf.String(), "request_id=r-1")
	assert.NotContains(t, buf.String(), "owner=")
}
