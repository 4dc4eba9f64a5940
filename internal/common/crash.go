// -----------------------------------------------------------------------
// Crash Protection - Fatal error handling and crash file generation
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// CrashLogDir is where crash reports are written. Set once during
// startup, before any browser work begins.
var CrashLogDir = "./logs"

// InstallCrashHandler prepares the crash report directory. Call at the
// very start of main() together with a deferred RecoverWithCrashFile.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}

	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create log directory: %v\n", err)
	}
}

// RecoverWithCrashFile is a deferred panic recovery that writes a crash
// report before exiting non-zero.
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, stackTrace(false))
		os.Exit(1)
	}
}

// WriteCrashFile writes a crash report, returning its path. The report
// goes to stderr as well when the file cannot be written; panic-path
// code stays on the standard library only.
func WriteCrashFile(panicVal interface{}, stack string) string {
	name := fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05"))
	crashPath := filepath.Join(CrashLogDir, name)

	var report bytes.Buffer
	fmt.Fprintf(&report, "=== SAKSI CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n", GetFullVersion())
	fmt.Fprintf(&report, "Runtime: %s %s/%s, %d goroutines\n\n",
		runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumGoroutine())

	fmt.Fprintf(&report, "=== PANIC ===\n%v\n\n", panicVal)
	fmt.Fprintf(&report, "=== STACK ===\n%s\n", stack)
	fmt.Fprintf(&report, "=== ALL GOROUTINES ===\n%s\n", stackTrace(true))
	fmt.Fprintf(&report, "=== END CRASH REPORT ===\n")

	if err := os.WriteFile(crashPath, report.Bytes(), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file: %v\n", err)
		fmt.Fprintf(os.Stderr, "%s", report.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\n", crashPath)
	fmt.Fprintf(os.Stderr, "Panic: %v\n", panicVal)

	return crashPath
}

// stackTrace captures the current goroutine's stack, or all goroutines
// when all is set, growing the buffer until the dump fits.
func stackTrace(all bool) string {
	size := 64 * 1024
	for {
		buf := make([]byte, size)
		n := runtime.Stack(buf, all)
		if n < len(buf) || size >= 16*1024*1024 {
			return string(buf[:n])
		}
		size *= 2
	}
}
