package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewBuildsBothModes(t *testing.T) {
	t.Parallel()

	for _, dev := range []bool{true, false} {
		logger, err := New(dev)
		require.NoError(t, err)
		require.NotNil(t, logger)
		logger.Info("logger ready")
		_ = logger.Sync() //nolint:errcheck // best-effort flush
	}
}

func TestComponent(t *testing.T) {
	t.Parallel()

	require.NotNil(t, Component(nil, "sync"))

	core, logs := observer.New(zap.InfoLevel)
	Component(zap.New(core), "sync").Info("synced")
	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "sync", entries[0].LoggerName)
}
