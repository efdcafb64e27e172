package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/util/log"
)

func TestTags(t *testing.T) {
	ctx := context.Background()
	parent := log.AddTags(ctx, "a", 1)
	left := log.AddTags(parent, "b", 2)
	right := log.AddTags(parent, "c", 3)
	require.Equal(t, []any{"a", 1, "b", 2}, log.Tags(left))
	require.Equal(t, []any{"a", 1, "c", 3}, log.Tags(right))
	require.Panics(t, func() { log.AddTags(ctx, "odd") })

	tagged, id := log.WithQueryID(ctx)
	require.Len(t, id, 36)
	require.Equal(t, []any{"query", id}, log.Tags(tagged))
}

func TestRecords(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := slog.Default()
	defer slog.SetDefault(prev)
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx := log.AddTags(context.Background(), "query", "q1")
	log.Infof(ctx, "compiled %d nodes", 3)
	log.Debugw(ctx, "inlined", "var", "x")
	out := buf.String()
	require.Contains(t, out, `msg="compiled 3 nodes"`)
	require.Contains(t, out, "query=q1")
	require.Contains(t, out, "var=x")
}
