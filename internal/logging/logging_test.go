package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("nonsense").GetLevel())
}

func TestLogErrorWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", &buf)

	LogError(logger, "reports", "Load", "decode reports_data", map[string]int{"bytes": 3}, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["msg"])
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "reports", entry["module"])
	assert.Equal(t, "Load", entry["funcName"])
	assert.Equal(t, "decode reports_data", entry["context"])
	assert.NotNil(t, entry["data"])
}

func TestLogErrorWithoutData(t *testing.T) {
	var buf bytes.Buffer
	LogError(NewWithOutput("info", &buf), "products", "Add", "persist", nil, errors.New("down"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, ok := entry["data"]
	assert.False(t, ok)
}
