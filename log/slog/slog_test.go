package slog

import (
	"bytes"
	"encoding/json"
	"errors"
	stdslog "log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/kvault"
)

func TestGroupedAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewJSONHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug})
	l := New(stdslog.New(h))

	l.Warn("unreadable record", kvault.Fields{"key": "k", "err": errors.New("bad frame")})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "WARN", rec["level"])
	require.Equal(t, "unreadable record", rec["msg"])
	group, ok := rec["kvault"].(map[string]any)
	require.True(t, ok, "attrs not grouped: %v", rec)
	require.Equal(t, "k", group["key"])
	require.Equal(t, "bad frame", group["err"])
}

func TestDisabledLevelSkipped(t *testing.T) {
	var buf bytes.Buffer
	l := New(stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo})))
	l.Debug("noise", kvault.Fields{"a": 1})
	require.Zero(t, buf.Len())
}
