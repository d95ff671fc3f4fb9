package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesDailyFile(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLogger("agent", dir, "debug")
	require.NoError(t, err)

	l.Info("hello %s", "world")
	l.Trade("opened %s", "BTCUSDT")
	l.LogError("feed", errors.New("timeout"))
	require.NoError(t, l.Close())

	expected := filepath.Join(dir, "agent_"+time.Now().Format("2006-01-02")+".log")
	assert.Equal(t, expected, l.GetLogPath())

	data, err := os.ReadFile(expected)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "hello world"))
	assert.True(t, strings.Contains(content, "opened BTCUSDT"))
	assert.True(t, strings.Contains(content, "feed: timeout"))
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := NewLogger("agent", t.TempDir(), "loud")
	require.NoError(t, err)
	defer l.Close()

	l.Debug("dropped")
	l.Info("kept")
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	l.Named("child").Warning("still nothing")
	assert.Equal(t, "", l.GetLogPath())
	assert.NoError(t, l.Close())
}
