package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerV2_WritesServiceAndFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	logger := NewLoggerV2("document-service")
	logger.Info("Document created", Fields{"number": "INV-001"}, Fields{"tenant_id": "t1"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "Document created", entry["msg"])
	assert.Equal(t, "document-service", entry["service"])
	assert.Equal(t, "INV-001", entry["number"])
	assert.Equal(t, "t1", entry["tenant_id"])
}

func TestSetLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})
	defer SetLevel("info")

	SetLevel("warn")
	NewLoggerV2("test").Info("hidden")
	assert.Zero(t, buf.Len())

	SetLevel("debug")
	NewLoggerV2("test").Debug("shown")
	assert.NotZero(t, buf.Len())
}
