package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLogLevel("INFO")
		_ = SetFormat("text")
	})
	return buf
}

func TestSetLogLevel_FiltersMessages(t *testing.T) {
	buf := captureOutput(t)

	SetLogLevel("WARN")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.False(t, IsDebugEnabled())

	SetLogLevel("debug")
	assert.True(t, IsDebugEnabled())
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	buf := captureOutput(t)

	SetLogLevel("LOUD")
	Infof("info after fallback")

	assert.Contains(t, buf.String(), "Unknown log level 'LOUD'")
	assert.Contains(t, buf.String(), "info after fallback")
}

func TestWithFields_JSONFormat(t *testing.T) {
	buf := captureOutput(t)
	require.NoError(t, SetFormat("json"))

	WithFields(Fields{"run_id": "abc", "grain": "current"}).Info("ingested")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "current", entry["grain"])
	assert.Equal(t, "ingested", entry["msg"])
}

func TestSetFormat_Unsupported(t *testing.T) {
	assert.Error(t, SetFormat("xml"))
}

func TestTrimFuncName(t *testing.T) {
	assert.Equal(t, "app.NewServer", trimFuncName("app.NewServer.func1"))
	assert.Equal(t, "app.NewServer", trimFuncName("app.NewServer"))
}
