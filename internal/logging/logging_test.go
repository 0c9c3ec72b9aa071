package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ssher.log")
	require.NoError(t, Init(Config{Level: "info", Format: "json", Output: out}))
	t.Cleanup(func() { globalLogger = nil })

	Named("browser").Info("saved")
	Named("browser").Debug("hidden")
	require.NoError(t, Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"saved"`)
	assert.Contains(t, string(data), `"logger":"browser"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, Init(Config{Level: "error", Output: filepath.Join(t.TempDir(), "x.log")}))
	t.Cleanup(func() { globalLogger = nil })
	assert.Equal(t, zapcore.ErrorLevel, globalLevel.Level())

	SetLevel("debug")
	assert.Equal(t, zapcore.DebugLevel, globalLevel.Level())

	SetLevel("bogus")
	assert.Equal(t, zapcore.DebugLevel, globalLevel.Level())
}

func TestBadLevelFallsBack(t *testing.T) {
	require.NoError(t, Init(Config{Level: "loud", Output: filepath.Join(t.TempDir(), "x.log")}))
	t.Cleanup(func() { globalLogger = nil })
	assert.Equal(t, zapcore.WarnLevel, globalLevel.Level())
}

func TestNopBeforeInit(t *testing.T) {
	globalLogger = nil
	assert.NotNil(t, L())
	assert.NoError(t, Sync())
}
