package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitSlog(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "foreclosures.log")

	closer := InitSlog(SlogOptions{
		Verbose: false,
		LogFile: logFile,
		Console: &console,
	})

	slog.Debug("hidden")
	slog.With("source", "reconciler").Info("run finished", "county", "Morris")
	require.NoError(t, closer.Close())

	require.True(t, strings.Contains(console.String(), "run finished"))
	require.False(t, strings.Contains(console.String(), "hidden"))

	contents, err := os.ReadFile(logFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "run finished", entry["msg"])
	require.Equal(t, "reconciler", entry["source"])
	require.Equal(t, "Morris", entry["county"])
}

func TestInitSlogVerbose(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "foreclosures.log")

	closer := InitSlog(SlogOptions{
		Verbose: true,
		LogFile: logFile,
		Console: &console,
	})

	slog.With("source", "fetcher").WithGroup("page").Debug("rendered", "county", "Essex")
	require.NoError(t, closer.Close())

	require.True(t, strings.Contains(console.String(), "rendered"))

	contents, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(contents), &entry))
	require.Equal(t, "DEBUG", entry["level"])
	require.Equal(t, "fetcher", entry["source"])
	require.Equal(t, map[string]any{"county": "Essex"}, entry["page"])
}
