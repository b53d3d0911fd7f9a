package logx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesAtLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", &buf)
	require.NoError(t, err)

	l.Info("不应输出")
	l.Warn("应当输出", zap.String("op", "GetMovies"))
	_ = l.Sync()

	out := buf.String()
	require.NotContains(t, out, "不应输出")
	require.Contains(t, out, "应当输出")
	require.Contains(t, out, "GetMovies")
}

func TestParseLevel_Invalid(t *testing.T) {
	_, err := ParseLevel("verbose")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "verbose"))
}

func TestFromContext_FallsBackToNop(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	ctx := WithLogger(context.Background(), l)
	require.Same(t, l, FromContext(ctx))
}
