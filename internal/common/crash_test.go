package common

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCrashFile(t *testing.T) {
	prev := CrashLogDir
	t.Cleanup(func() { CrashLogDir = prev })
	InstallCrashHandler(t.TempDir())

	path := WriteCrashFile("browser exploded", stackTrace(false))
	require.NotEmpty(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	report := string(data)
	assert.Contains(t, report, "=== SAKSI CRASH REPORT ===")
	assert.Contains(t, report, "browser exploded")
	assert.Contains(t, report, "=== ALL GOROUTINES ===")
	assert.Contains(t, report, "=== END CRASH REPORT ===")
}

func TestStackTraceCapturesCaller(t *testing.T) {
	assert.Contains(t, stackTrace(false), "TestStackTraceCapturesCaller")
}
