package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Every action is a single bounded blocking call: one attempt, one
// timeout, no retries. Timeouts are enforced with a context derived
// from the session's tab context so a timed-out wait never tears down
// the tab itself.

// Navigate loads the target URL
func (s *Session) Navigate(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// WaitTextVisible blocks until an element containing the given text is
// visible on the page, or the timeout elapses. The selector must
// resolve to exactly one renderable node: WaitVisible demands a box
// model from every match, and a stray match in <head> (a <title>
// echoing the text) has none and would wedge the wait forever.
func (s *Session) WaitTextVisible(text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	sel := LastMatch(ContainsTextXPath(text))
	if err := chromedp.Run(ctx, chromedp.WaitVisible(sel, chromedp.BySearch)); err != nil {
		return fmt.Errorf("text %q not visible within %s: %w", text, timeout, err)
	}
	return nil
}

// ClickLastExactText waits for the last element (in document order)
// whose text content is exactly the given string to become visible,
// then clicks it. The last-match tie-break is deliberate: the target
// label may render more than once and the later occurrence is the
// interactive one.
func (s *Session) ClickLastExactText(text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	sel := LastMatch(ExactTextXPath(text))
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(sel, chromedp.BySearch),
		chromedp.Click(sel, chromedp.BySearch),
	)
	if err != nil {
		return fmt.Errorf("click on %q failed: %w", text, err)
	}
	return nil
}

// VisibleAttribute waits for the element matching the CSS selector to
// become visible, then reads the named attribute from it.
func (s *Session) VisibleAttribute(selector, attribute string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var value string
	var ok bool
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.AttributeValue(selector, attribute, &value, &ok, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("element %q not visible within %s: %w", selector, timeout, err)
	}
	if !ok {
		return "", fmt.Errorf("element %q has no %q attribute", selector, attribute)
	}
	return value, nil
}

// Settle pauses unconditionally to let trailing animations finish
func (s *Session) Settle(d time.Duration) error {
	return chromedp.Run(s.ctx, chromedp.Sleep(d))
}

// FullScreenshot captures the entire page at the given quality
func (s *Session) FullScreenshot(quality int, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, quality)); err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return buf, nil
}

// OuterHTML returns the serialized DOM of the current page
func (s *Session) OuterHTML(timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page snapshot failed: %w", err)
	}
	return html, nil
}

// ExactTextXPath matches body elements whose own text content,
// whitespace normalized, equals the given string.
func ExactTextXPath(text string) string {
	return "//body//*[normalize-space(text())=" + XPathLiteral(text) + "]"
}

// ContainsTextXPath matches body elements with a direct text node
// containing the given string. Scoped under <body> so head-only nodes
// like <title> never match; those have no box model and can never
// satisfy a visibility wait.
func ContainsTextXPath(text string) string {
	return "//body//*[contains(text()," + XPathLiteral(text) + ")]"
}

// LastMatch wraps an XPath expression so only the last match in
// document order is selected.
func LastMatch(xpath string) string {
	return "(" + xpath + ")[last()]"
}

// XPathLiteral quotes a string for embedding in an XPath expression.
// XPath 1.0 has no escape sequences inside string literals, so strings
// holding both quote kinds are assembled with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}
