// Package links discovers resume links on a loaded page and removes duplicates.
package links

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-evaluator/internal/page"
	"github.com/jonathan/resume-evaluator/internal/types"
)

// NoText is the text recorded for anchors without text content.
const NoText = "No text"

// Collector scans pages for links that start with a fixed prefix.
type Collector struct {
	prefix string
	logger *logrus.Entry
}

// NewCollector creates a Collector matching links that start with prefix (case-sensitive).
func NewCollector(prefix string, logger *logrus.Entry) *Collector {
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &Collector{prefix: prefix, logger: logger}
}

// Prefix returns the configured resume link prefix.
func (c *Collector) Prefix() string {
	return c.prefix
}

// Collect returns every matching anchor and iframe of p, followed by anchors inside
// accessible iframe documents. preview=true is normalized on every returned URL.
// An empty result is not an error.
func (c *Collector) Collect(p *page.Page) ([]types.LinkRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return nil, &ScanError{Message: "failed to parse page HTML", Cause: err}
	}
	base, _ := url.Parse(p.URL)

	var records []types.LinkRecord

	// 1. Anchors in the document
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := page.Resolve(base, href)
		if !c.matches(resolved) {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text = NoText
		}
		records = append(records, types.LinkRecord{URL: resolved, Text: text, Source: types.SourceAnchor})
	})

	// 2. Iframe sources
	doc.Find("iframe").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		resolved := page.Resolve(base, src)
		if !c.matches(resolved) {
			return
		}
		records = append(records, types.LinkRecord{
			URL:    resolved,
			Text:   "Resume from iframe: " + frameTitle(s, i),
			Source: types.SourceIframe,
		})
	})

	// 3. Anchors inside same-origin frame documents
	accessible := 0
	for i, frame := range p.Frames {
		if !frame.Accessible || strings.TrimSpace(frame.HTML) == "" {
			continue
		}
		frameIndex := accessible
		accessible++

		frameRecords, err := c.collectFrame(frame, frameIndex)
		if err != nil {
			c.logger.WithFields(logrus.Fields{"frame": i, "err": err}).Debug("error accessing links in iframe")
			continue
		}
		records = append(records, frameRecords...)
	}

	for i := range records {
		records[i].URL = NormalizePreview(records[i].URL)
	}

	c.logger.WithFields(logrus.Fields{"url": p.URL, "links": len(records)}).Debug("page scanned")
	return records, nil
}

func (c *Collector) collectFrame(frame page.Frame, frameIndex int) ([]types.LinkRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(frame.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse frame HTML: %w", err)
	}
	if doc.Find("body").Length() == 0 {
		return nil, nil
	}
	base, _ := url.Parse(frame.Src)

	var records []types.LinkRecord
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := page.Resolve(base, href)
		if !c.matches(resolved) {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text = fmt.Sprintf("Iframe %d link", frameIndex+1)
		}
		records = append(records, types.LinkRecord{URL: resolved, Text: text, Source: types.SourceIframeContent})
	})
	return records, nil
}

func (c *Collector) matches(u string) bool {
	return u != "" && strings.HasPrefix(u, c.prefix)
}

// frameTitle picks title, then name, then id, then "Frame N" (1-based).
func frameTitle(s *goquery.Selection, index int) string {
	for _, attr := range []string{"title", "name", "id"} {
		if v, ok := s.Attr(attr); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("Frame %d", index+1)
}

// NormalizePreview rewrites the first preview=true flag to preview=false.
func NormalizePreview(u string) string {
	return strings.Replace(u, "preview=true", "preview=false", 1)
}
