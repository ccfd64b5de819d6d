package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := InitWithWriter("debug", "json", &buf)
	require.NoError(t, err)

	l.Info("store hydrated", zap.Int("projects", 3))
	Sync()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "store hydrated", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.EqualValues(t, 3, line["projects"])
	assert.Same(t, l, L())
}

func TestInitRejectsUnknownValues(t *testing.T) {
	_, err := InitWithWriter("loud", "json", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = InitWithWriter("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := InitWithWriter("warn", "console", &buf)
	require.NoError(t, err)

	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("persist failed")
	assert.Contains(t, buf.String(), "persist failed")
}
