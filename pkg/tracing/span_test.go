package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := Start(context.Background(), "GET /api/v1/search", "req-1")
	childCtx, child := StartChild(ctx, "find")
	child.Set("terms", 2)
	_, grandchild := StartChild(childCtx, "store.find")
	grandchild.End()
	child.End()
	root.End()

	require.Len(t, root.Children(), 1)
	assert.Same(t, child, root.Children()[0])
	assert.Equal(t, "req-1", grandchild.TraceID)
	assert.Same(t, child, FromContext(childCtx))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(ctx, logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "find", rec["span"])
	assert.Equal(t, float64(1), rec["depth"])
	assert.Equal(t, float64(2), rec["terms"])
}

func TestChildWithoutParent(t *testing.T) {
	ctx, span := StartChild(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Same(t, span, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
