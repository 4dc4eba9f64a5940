package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "http://localhost:3000/vast-timeline", config.Target.URL)
	assert.Equal(t, "Nusantara Timeline", config.Verify.ReadyMarker)
	assert.Equal(t, 10*time.Second, config.Verify.ReadyTimeout)
	assert.Equal(t, "The Sangiran Flourishing", config.Verify.EventLabel)
	assert.Equal(t, 5*time.Second, config.Verify.LabelTimeout)
	assert.Equal(t, "div.absolute.z-50 img", config.Verify.PopoverSelector)
	assert.Equal(t, 2*time.Second, config.Verify.PopoverTimeout)
	assert.Equal(t, "src", config.Verify.ImageAttribute)
	assert.Equal(t, 1*time.Second, config.Verify.SettlePause)
	assert.Equal(t, "verification/timeline_screenshot_clicked.png", config.Evidence.ScreenshotPath)
	assert.True(t, config.Browser.Headless)
	assert.False(t, config.Storage.History)
}

func TestDefaultConfigValidates(t *testing.T) {
	config := NewDefaultConfig()
	assert.NoError(t, config.Validate())
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "saksi.toml")

	content := `
[target]
url = "http://localhost:8080/other-timeline"

[verify]
ready_marker = "Other Timeline"
event_label = "The Trinil Era"

[evidence]
screenshot_path = "out/shot.png"
page_snapshot = true
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	config, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/other-timeline", config.Target.URL)
	assert.Equal(t, "Other Timeline", config.Verify.ReadyMarker)
	assert.Equal(t, "The Trinil Era", config.Verify.EventLabel)
	assert.Equal(t, "out/shot.png", config.Evidence.ScreenshotPath)
	assert.True(t, config.Evidence.PageSnapshot)

	// Untouched sections keep their defaults
	assert.Equal(t, 10*time.Second, config.Verify.ReadyTimeout)
	assert.Equal(t, "div.absolute.z-50 img", config.Verify.PopoverSelector)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	tmpDir := t.TempDir()

	base := filepath.Join(tmpDir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte("[target]\nurl = \"http://localhost:3000/base\"\n"), 0644))

	override := filepath.Join(tmpDir, "override.toml")
	require.NoError(t, os.WriteFile(override, []byte("[target]\nurl = \"http://localhost:3000/override\"\n"), 0644))

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/override", config.Target.URL)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/saksi.toml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SAKSI_TARGET_URL", "http://localhost:4000/env-timeline")
	t.Setenv("SAKSI_VERIFY_READY_TIMEOUT", "20s")
	t.Setenv("SAKSI_BROWSER_HEADLESS", "false")
	t.Setenv("SAKSI_STORAGE_HISTORY", "true")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000/env-timeline", config.Target.URL)
	assert.Equal(t, 20*time.Second, config.Verify.ReadyTimeout)
	assert.False(t, config.Browser.Headless)
	assert.True(t, config.Storage.History)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	headless := false
	ApplyFlagOverrides(config, "http://localhost:5000/flag", "flag/shot.png", &headless)

	assert.Equal(t, "http://localhost:5000/flag", config.Target.URL)
	assert.Equal(t, "flag/shot.png", config.Evidence.ScreenshotPath)
	assert.False(t, config.Browser.Headless)

	// Nil headless leaves the config value alone
	ApplyFlagOverrides(config, "", "", nil)
	assert.Equal(t, "http://localhost:5000/flag", config.Target.URL)
	assert.False(t, config.Browser.Headless)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	config := NewDefaultConfig()
	config.Target.URL = "not a url"
	assert.Error(t, config.Validate())

	config = NewDefaultConfig()
	config.Verify.ReadyMarker = ""
	assert.Error(t, config.Validate())

	config = NewDefaultConfig()
	config.Verify.ReadyTimeout = 0
	assert.Error(t, config.Validate())

	config = NewDefaultConfig()
	config.Storage.History = true
	config.Storage.Badger.Path = ""
	assert.Error(t, config.Validate())
}
