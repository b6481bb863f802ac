package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_WritesLevelsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	log := NewSlogLogger(base)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "k", "v")
	log.Info(ctx, "inf", "n", 1)
	log.Warn(ctx, "wrn")
	log.Error(ctx, "err")

	out := buf.String()
	assert.Contains(t, out, "dbg")
	assert.Contains(t, out, "k=v")
	assert.Contains(t, out, "inf")
	assert.Contains(t, out, "n=1")
	assert.Contains(t, out, "wrn")
	assert.Contains(t, out, "err")
}

func TestSlogLogger_WithAddsPersistentAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	log := NewSlogLogger(base).With("component", "queue")

	log.Info(context.Background(), "hello")

	require.Contains(t, buf.String(), "component=queue")
}

func TestNewDiscard_DoesNotPanic(t *testing.T) {
	log := NewDiscard()
	log.Info(context.Background(), "ignored")
}
