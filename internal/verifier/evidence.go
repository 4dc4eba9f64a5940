package verifier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/saksi/internal/browser"
	"github.com/ternarybob/saksi/internal/models"
)

// Quality 100 makes FullScreenshot encode PNG; any lower value
// switches the capture to JPEG, which would not match the .png
// artifact path.
const screenshotQuality = 100

// capture writes the evidence artifacts: the full-page screenshot
// always, plus the DOM snapshot and markdown digest when enabled.
// Artifacts are overwritten on every run.
func (s *Service) capture(session *browser.Session, run *models.VerificationRun) error {
	buf, err := session.FullScreenshot(screenshotQuality, captureTimeout)
	if err != nil {
		return err
	}

	path := s.config.Evidence.ScreenshotPath
	if err := writeArtifact(path, buf); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	run.ScreenshotPath = path

	s.logger.Info().Str("path", path).Int("bytes", len(buf)).Msg("Screenshot captured")

	if !s.config.Evidence.PageSnapshot {
		return nil
	}

	// Snapshot failures are diagnostic-only and never abort the run;
	// the screenshot above is the required artifact.
	if err := s.captureSnapshot(session, run); err != nil {
		s.logger.Warn().Err(err).Msg("Page snapshot skipped")
	}

	return nil
}

// captureSnapshot saves the page HTML alongside the screenshot, with a
// markdown digest for quick reading.
func (s *Service) captureSnapshot(session *browser.Session, run *models.VerificationRun) error {
	html, err := session.OuterHTML(captureTimeout)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(s.config.Evidence.ScreenshotPath, filepath.Ext(s.config.Evidence.ScreenshotPath))
	htmlPath := base + ".html"
	mdPath := base + ".md"

	if err := writeArtifact(htmlPath, []byte(html)); err != nil {
		return err
	}
	run.SnapshotPath = htmlPath

	digest, err := DigestPage(run.TargetURL, html)
	if err != nil {
		return err
	}
	if err := writeArtifact(mdPath, []byte(digest)); err != nil {
		return err
	}

	s.logger.Debug().Str("html", htmlPath).Str("digest", mdPath).Msg("Page snapshot captured")

	return nil
}

// DigestPage renders a compact markdown summary of the captured page:
// title, headings, image inventory, then the page body as markdown.
func DigestPage(pageURL, html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse page HTML: %w", err)
	}

	var b strings.Builder

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		b.WriteString("# " + title + "\n\n")
	}
	b.WriteString("URL: " + pageURL + "\n\n")

	headings := doc.Find("h1, h2, h3")
	if headings.Length() > 0 {
		b.WriteString("## Headings\n\n")
		headings.Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if text != "" {
				b.WriteString("- " + text + "\n")
			}
		})
		b.WriteString("\n")
	}

	images := doc.Find("img[src]")
	if images.Length() > 0 {
		b.WriteString("## Images\n\n")
		images.Each(func(_ int, sel *goquery.Selection) {
			if src, ok := sel.Attr("src"); ok && src != "" {
				b.WriteString("- " + src + "\n")
			}
		})
		b.WriteString("\n")
	}

	converter := md.NewConverter(pageURL, true, nil)
	body, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert page to markdown: %w", err)
	}
	if body != "" {
		b.WriteString("## Content\n\n")
		b.WriteString(body)
		b.WriteString("\n")
	}

	return b.String(), nil
}

// writeArtifact persists evidence to a fixed path, creating the parent
// directory and overwriting any previous run's file.
func writeArtifact(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create evidence directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
