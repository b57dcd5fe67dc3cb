package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLogger_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.log")
	l := NewIsolatedLogger(path)

	l.Debug("HUB", "dropped below file level", nil)
	l.Info("HUB", "client attached", map[string]interface{}{"session_id": "lesson_1"})
	l.Error("HUB", "send failed", map[string]interface{}{"error": "closed"})
	_ = l.Sync()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		lines = append(lines, entry)
	}

	require.Len(t, lines, 2)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "HUB", lines[0]["module"])
	assert.Equal(t, "client attached", lines[0]["message"])
	assert.Equal(t, "lesson_1", lines[0]["details"].(map[string]interface{})["session_id"])
	assert.Equal(t, "closed", lines[1]["error_ref"])
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Info("X", "nothing", nil)
		l.Error("X", "nothing", nil)
	})
}
