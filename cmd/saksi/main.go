package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/saksi/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	targetURL    = flag.String("url", "", "Target page URL (overrides config)")
	outputPath   = flag.String("output", "", "Screenshot output path (overrides config)")
	headlessFlag = flag.String("headless", "", "Run headless: true or false (overrides config)")
	watchMode    = flag.Bool("watch", false, "Run verification repeatedly on the configured schedule")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	common.InstallCrashHandler("./logs")
	defer common.RecoverWithCrashFile()

	flag.Parse()

	common.LoadVersionFromFile()

	if *showVersion || *showVersionV {
		fmt.Printf("Saksi version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("saksi.toml"); err == nil {
			configFiles = append(configFiles, "saksi.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	var headless *bool
	if *headlessFlag != "" {
		if h, parseErr := strconv.ParseBool(*headlessFlag); parseErr == nil {
			headless = &h
		}
	}
	common.ApplyFlagOverrides(config, *targetURL, *outputPath, headless)

	logger = common.InitLogger(config)

	if logPath := common.GetLogFilePath(logger); logPath != "" {
		logger.Info().Str("log_file", logPath).Msg("File logging enabled")
	}

	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration validation failed")
		os.Exit(1)
	}

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("url", config.Target.URL).
		Str("screenshot", config.Evidence.ScreenshotPath).
		Bool("history", config.Storage.History).
		Msg("Configuration loaded")

	var exitCode int
	if *watchMode {
		exitCode = runWatch()
	} else {
		exitCode = runVerify()
	}

	os.Exit(exitCode)
}
