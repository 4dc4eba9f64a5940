// -----------------------------------------------------------------------
// Headless Chrome session management
// Scoped acquisition: one browser process per session, released exactly
// once on every exit path via Close.
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/saksi/internal/common"
)

// Session owns one launched Chrome process and the single page context
// driven by the verifier. All operations execute strictly in sequence
// on the session's tab; there is no concurrent access.
type Session struct {
	ctx             context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	logger          arbor.ILogger

	mu         sync.Mutex
	pageErrors []string

	closeOnce sync.Once
}

// NewSession launches a headless Chrome process and verifies it is
// usable with an about:blank startup probe. A launch failure is fatal
// for the whole run and is returned rather than absorbed.
func NewSession(ctx context.Context, config *common.BrowserConfig, logger arbor.ILogger) (*Session, error) {
	opts := buildAllocatorOptions(config)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, opts...)

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)

	s := &Session{
		ctx:             browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
		logger:          logger,
	}

	// Record page-side exceptions and console errors as diagnostics
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventExceptionThrown:
			s.recordPageError(fmt.Sprintf("exception: %s", e.ExceptionDetails.Error()))
		case *runtime.EventConsoleAPICalled:
			if e.Type == runtime.APITypeError {
				msg := "console error"
				if len(e.Args) > 0 && e.Args[0].Value != nil {
					msg = fmt.Sprintf("console error: %s", e.Args[0].Value)
				}
				s.recordPageError(msg)
			}
		}
	})

	logger.Debug().
		Bool("headless", config.Headless).
		Int("window_width", config.WindowWidth).
		Int("window_height", config.WindowHeight).
		Msg("Launching browser")

	probeCtx, probeCancel := context.WithTimeout(browserCtx, config.StartupTimeout)
	defer probeCancel()

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser failed startup probe: %w", err)
	}

	logger.Debug().Msg("Browser session ready")

	return s, nil
}

// buildAllocatorOptions creates Chrome allocator options
func buildAllocatorOptions(config *common.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(config.WindowWidth, config.WindowHeight),
	}

	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	if config.Headless {
		// New headless mode renders closer to headed Chrome
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	if config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	return opts
}

// Context returns the session's tab context
func (s *Session) Context() context.Context {
	return s.ctx
}

// PageErrors returns the page exceptions and console errors observed so far
func (s *Session) PageErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.pageErrors...)
}

func (s *Session) recordPageError(msg string) {
	s.mu.Lock()
	s.pageErrors = append(s.pageErrors, msg)
	s.mu.Unlock()
	s.logger.Debug().Str("detail", msg).Msg("Page error observed")
}

// Close releases the browser process. Safe to call from deferred paths
// and idempotent: the process is torn down exactly once per session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Debug().Msg("Closing browser session")
		if s.browserCancel != nil {
			s.browserCancel()
		}
		if s.allocatorCancel != nil {
			s.allocatorCancel()
		}
	})
}
