package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrstudio/qrstudio/store"
)

func openTestLog(t *testing.T) *store.ExportLog {
	t.Helper()
	log, err := store.OpenExportLog(filepath.Join(t.TempDir(), "exports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestExportLogRecordAndRecent(t *testing.T) {
	t.Parallel()

	log := openTestLog(t)

	first, err := log.Record(store.Export{
		Payload:    "https://example.com",
		Size:       256,
		Level:      "medium",
		Foreground: "#000000",
		Background: "#ffffff",
		ByteSize:   1234,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.NotZero(t, first.CreatedAt)

	second, err := log.Record(store.Export{Payload: "second", Size: 128, Level: "high"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	recent, err := log.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	payloads := []string{recent[0].Payload, recent[1].Payload}
	assert.Contains(t, payloads, "https://example.com")
	assert.Contains(t, payloads, "second")

	count, err := log.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestExportLogRecentLimit(t *testing.T) {
	t.Parallel()

	log := openTestLog(t)
	for i := 0; i < 5; i++ {
		_, err := log.Record(store.Export{Payload: "p", Size: 64, Level: "low"})
		require.NoError(t, err)
	}

	recent, err := log.Recent(3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestExportLogEmpty(t *testing.T) {
	t.Parallel()

	log := openTestLog(t)

	recent, err := log.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	count, err := log.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
