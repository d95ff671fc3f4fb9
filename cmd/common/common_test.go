package common

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRADING_BOT_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("TRADING_BOT_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("TRADING_BOT_TEST_VALUE"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("TRADING_BOT_TEST_VALUE"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}

func TestPrintDetailedVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintDetailedVersion(&buf, "trading-bot")

	out := buf.String()
	assert.Contains(t, out, "trading-bot")
	assert.Contains(t, out, ProjectVersion)
	assert.Contains(t, GetFullVersion(), ProjectVersion)
}
