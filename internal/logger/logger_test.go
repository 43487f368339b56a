package logger

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetDebugMode(false)
	})
	return &buf
}

func TestDebugRespectsDebugMode(t *testing.T) {
	buf := captureOutput(t)

	SetDebugMode(false)
	Debug("hidden %d", 1)
	assert.NotContains(t, buf.String(), "hidden")

	SetDebugMode(true)
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG] shown 2")
}

func TestLevelsArePrefixed(t *testing.T) {
	buf := captureOutput(t)

	Info("a")
	Warn("b")
	Error("c")

	out := buf.String()
	assert.Contains(t, out, "[INFO] a")
	assert.Contains(t, out, "[WARN] b")
	assert.Contains(t, out, "[ERROR] c")
}

func TestLogOperation(t *testing.T) {
	buf := captureOutput(t)

	LogOperation("expand album", time.Now(), nil)
	assert.Contains(t, buf.String(), "Operation 'expand album' completed")

	LogOperation("normalize", time.Now(), errors.New("boom"))
	assert.Contains(t, buf.String(), "Operation 'normalize' failed")
	assert.Contains(t, buf.String(), "boom")
}
