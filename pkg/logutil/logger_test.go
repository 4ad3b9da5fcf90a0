package logutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"info":    zapcore.InfoLevel,
		" DEBUG ": zapcore.DebugLevel,
		"Warn":    zapcore.WarnLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, bad := range []string{"verbose", "warning"} {
		_, err := ParseLevel(bad)
		require.Error(t, err, bad)
	}
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	require.Error(t, SetLevel("trace"))
	require.NoError(t, SetLevel("debug"))
	t.Cleanup(func() { _ = SetLevel("info") })
	require.Equal(t, zapcore.DebugLevel, level.Level())
}

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	GetLogger().Info("hello", zap.Int("device", 0))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "hello", logs.All()[0].Message)

	SetLogger(nil)
	require.NotNil(t, GetLogger())
}
