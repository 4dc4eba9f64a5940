package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Target      TargetConfig   `toml:"target"`
	Browser     BrowserConfig  `toml:"browser"`
	Verify      VerifyConfig   `toml:"verify"`
	Evidence    EvidenceConfig `toml:"evidence"`
	Storage     StorageConfig  `toml:"storage"`
	Watch       WatchConfig    `toml:"watch"`
	Logging     LoggingConfig  `toml:"logging"`
}

// TargetConfig identifies the application under test. Starting the
// application is the operator's responsibility, not Saksi's.
type TargetConfig struct {
	URL string `toml:"url" validate:"required,url"` // Full URL of the page to verify
}

// BrowserConfig controls the headless Chrome process
type BrowserConfig struct {
	Headless       bool          `toml:"headless"`        // Run Chrome in new headless mode (default: true)
	NoSandbox      bool          `toml:"no_sandbox"`      // Disable the Chrome sandbox (needed when running as root)
	UserAgent      string        `toml:"user_agent"`      // User agent override (empty = Chrome default)
	WindowWidth    int           `toml:"window_width"`    // Viewport width (default: 1920)
	WindowHeight   int           `toml:"window_height"`   // Viewport height (default: 1080)
	StartupTimeout time.Duration `toml:"startup_timeout"` // Max time for the browser startup probe
	NavTimeout     time.Duration `toml:"nav_timeout"`     // Max time for page navigation
}

// VerifyConfig describes the DOM contract of the page under test:
// what proves the page is ready, what to click, and what the click
// is expected to reveal.
type VerifyConfig struct {
	ReadyMarker     string        `toml:"ready_marker" validate:"required"` // Text whose appearance proves initial render finished
	ReadyTimeout    time.Duration `toml:"ready_timeout"`                    // Readiness wait (default: 10s). Timing out here is fatal.
	EventLabel      string        `toml:"event_label" validate:"required"`  // Exact text of the clickable element; last match in document order wins
	LabelTimeout    time.Duration `toml:"label_timeout"`                    // Label visibility wait (default: 5s)
	PopoverSelector string        `toml:"popover_selector"`                 // CSS selector for the image revealed by the click
	PopoverTimeout  time.Duration `toml:"popover_timeout"`                  // Popover visibility wait (default: 2s)
	ImageAttribute  string        `toml:"image_attribute"`                  // Attribute read from the popover image (default: "src")
	SettlePause     time.Duration `toml:"settle_pause"`                     // Unconditional pause before evidence capture (default: 1s)
}

// EvidenceConfig controls the artifacts written after every run that
// reached the ready state.
type EvidenceConfig struct {
	ScreenshotPath string `toml:"screenshot_path" validate:"required"` // Overwritten on each run
	PageSnapshot   bool   `toml:"page_snapshot"`                       // Also save page HTML and a markdown digest next to the screenshot
}

type StorageConfig struct {
	History bool         `toml:"history"` // Persist run records to BadgerDB (default: false)
	Badger  BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// WatchConfig controls scheduled re-verification in watch mode
type WatchConfig struct {
	Schedule string `toml:"schedule"` // Cron schedule with seconds field (default: every 5 minutes)
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`                                       // "json" or "text"
	Output     []string `toml:"output"`                                       // "stdout", "file"
	TimeFormat string   `toml:"time_format"`                                  // Time format for logs
}

// NewDefaultConfig creates a configuration with default values.
// The defaults reproduce the original fixed verification target; a
// config file or environment variables point Saksi elsewhere.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Target: TargetConfig{
			URL: "http://localhost:3000/vast-timeline",
		},
		Browser: BrowserConfig{
			Headless:       true,
			WindowWidth:    1920,
			WindowHeight:   1080,
			StartupTimeout: 30 * time.Second,
			NavTimeout:     30 * time.Second,
		},
		Verify: VerifyConfig{
			ReadyMarker:     "Nusantara Timeline",
			ReadyTimeout:    10 * time.Second,
			EventLabel:      "The Sangiran Flourishing",
			LabelTimeout:    5 * time.Second,
			PopoverSelector: "div.absolute.z-50 img",
			PopoverTimeout:  2 * time.Second,
			ImageAttribute:  "src",
			SettlePause:     1 * time.Second,
		},
		Evidence: EvidenceConfig{
			ScreenshotPath: "verification/timeline_screenshot_clicked.png",
			PageSnapshot:   false,
		},
		Storage: StorageConfig{
			History: false,
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Watch: WatchConfig{
			Schedule: "0 */5 * * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files; CLI flag overrides are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment (highest priority: SAKSI_ENV, fallback: GO_ENV)
	if env := os.Getenv("SAKSI_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Target
	if url := os.Getenv("SAKSI_TARGET_URL"); url != "" {
		config.Target.URL = url
	}

	// Browser
	if headless := os.Getenv("SAKSI_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if noSandbox := os.Getenv("SAKSI_BROWSER_NO_SANDBOX"); noSandbox != "" {
		if n, err := strconv.ParseBool(noSandbox); err == nil {
			config.Browser.NoSandbox = n
		}
	}
	if userAgent := os.Getenv("SAKSI_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}
	if navTimeout := os.Getenv("SAKSI_BROWSER_NAV_TIMEOUT"); navTimeout != "" {
		if d, err := time.ParseDuration(navTimeout); err == nil {
			config.Browser.NavTimeout = d
		}
	}

	// Verify
	if marker := os.Getenv("SAKSI_VERIFY_READY_MARKER"); marker != "" {
		config.Verify.ReadyMarker = marker
	}
	if readyTimeout := os.Getenv("SAKSI_VERIFY_READY_TIMEOUT"); readyTimeout != "" {
		if d, err := time.ParseDuration(readyTimeout); err == nil {
			config.Verify.ReadyTimeout = d
		}
	}
	if label := os.Getenv("SAKSI_VERIFY_EVENT_LABEL"); label != "" {
		config.Verify.EventLabel = label
	}
	if labelTimeout := os.Getenv("SAKSI_VERIFY_LABEL_TIMEOUT"); labelTimeout != "" {
		if d, err := time.ParseDuration(labelTimeout); err == nil {
			config.Verify.LabelTimeout = d
		}
	}
	if selector := os.Getenv("SAKSI_VERIFY_POPOVER_SELECTOR"); selector != "" {
		config.Verify.PopoverSelector = selector
	}
	if popoverTimeout := os.Getenv("SAKSI_VERIFY_POPOVER_TIMEOUT"); popoverTimeout != "" {
		if d, err := time.ParseDuration(popoverTimeout); err == nil {
			config.Verify.PopoverTimeout = d
		}
	}
	if settle := os.Getenv("SAKSI_VERIFY_SETTLE_PAUSE"); settle != "" {
		if d, err := time.ParseDuration(settle); err == nil {
			config.Verify.SettlePause = d
		}
	}

	// Evidence
	if path := os.Getenv("SAKSI_EVIDENCE_SCREENSHOT_PATH"); path != "" {
		config.Evidence.ScreenshotPath = path
	}
	if snapshot := os.Getenv("SAKSI_EVIDENCE_PAGE_SNAPSHOT"); snapshot != "" {
		if s, err := strconv.ParseBool(snapshot); err == nil {
			config.Evidence.PageSnapshot = s
		}
	}

	// Storage
	if history := os.Getenv("SAKSI_STORAGE_HISTORY"); history != "" {
		if h, err := strconv.ParseBool(history); err == nil {
			config.Storage.History = h
		}
	}
	if badgerPath := os.Getenv("SAKSI_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Watch
	if schedule := os.Getenv("SAKSI_WATCH_SCHEDULE"); schedule != "" {
		config.Watch.Schedule = schedule
	}

	// Logging
	if level := os.Getenv("SAKSI_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("SAKSI_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("SAKSI_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, targetURL, screenshotPath string, headless *bool) {
	if targetURL != "" {
		config.Target.URL = targetURL
	}
	if screenshotPath != "" {
		config.Evidence.ScreenshotPath = screenshotPath
	}
	if headless != nil {
		config.Browser.Headless = *headless
	}
}

// Validate checks the resolved configuration before any browser work starts
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Verify.ReadyTimeout <= 0 {
		return fmt.Errorf("invalid configuration: verify.ready_timeout must be positive")
	}
	if c.Verify.LabelTimeout <= 0 {
		return fmt.Errorf("invalid configuration: verify.label_timeout must be positive")
	}
	if c.Verify.PopoverTimeout <= 0 {
		return fmt.Errorf("invalid configuration: verify.popover_timeout must be positive")
	}
	if c.Storage.History && c.Storage.Badger.Path == "" {
		return fmt.Errorf("invalid configuration: storage.badger.path is required when history is enabled")
	}

	return nil
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}
