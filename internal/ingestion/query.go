// Package ingestion extracts the evaluation query from a job posting page.
package ingestion

import (
	"context"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-evaluator/internal/page"
)

// RichTextSelector matches the posting description editor content.
const RichTextSelector = ".af_richTextEditor_content.ck-content"

// ErrNoQuery is returned when no meaningful query text can be extracted.
var ErrNoQuery = errors.New("could not extract meaningful text from content")

var (
	requirementsWindow = regexp.MustCompile(`(?is)bring:\s*(.+?)\s*(?:What\s+success|$)`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
	spaceBeforeComma   = regexp.MustCompile(`\s,`)
	spaceBeforePeriod  = regexp.MustCompile(`\s\.`)
)

// Posting is the information read from a job posting page.
type Posting struct {
	Query string

	// ApplicationsURL is the "Active Applications" link target, empty when absent.
	ApplicationsURL string
}

// ExtractQuery reads the first rich text editor block of html and returns the text
// between "bring:" and "What success", or the whole block when the markers are
// missing, with whitespace cleaned up.
func ExtractQuery(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return queryFromDocument(doc)
}

func queryFromDocument(doc *goquery.Document) (string, error) {
	block := doc.Find(RichTextSelector).First()
	if block.Length() == 0 {
		return "", ErrNoQuery
	}

	text := block.Text()
	if m := requirementsWindow.FindStringSubmatch(text); m != nil && m[1] != "" {
		text = m[1]
	}

	query := CleanQuery(text)
	if query == "" {
		return "", ErrNoQuery
	}
	return query, nil
}

// CleanQuery collapses whitespace runs to one space and removes spaces before
// commas and periods.
func CleanQuery(text string) string {
	text = strings.TrimSpace(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = spaceBeforeComma.ReplaceAllString(text, ",")
	text = spaceBeforePeriod.ReplaceAllString(text, ".")
	return strings.TrimSpace(text)
}

// Reader loads posting pages and extracts their query.
type Reader struct {
	loader page.Loader
	logger *logrus.Entry
}

// NewReader creates a Reader that loads pages with loader.
func NewReader(loader page.Loader, logger *logrus.Entry) *Reader {
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &Reader{loader: loader, logger: logger}
}

// Read loads location and extracts the posting query. When the page has no rich
// text block it follows the "Details" link once. Accessible frame documents are
// searched after the main document.
func (r *Reader) Read(ctx context.Context, location string) (*Posting, error) {
	p, err := r.loader.Load(ctx, location)
	if err != nil {
		return nil, err
	}

	posting, err := r.fromPage(p)
	if !errors.Is(err, ErrNoQuery) {
		return posting, err
	}

	details := linkUnderTitle(p, "Details")
	if details == "" {
		return nil, ErrNoQuery
	}
	r.logger.WithField("url", details).Debug("following Details link")

	detailsPage, err := r.loader.Load(ctx, details)
	if err != nil {
		return nil, err
	}
	posting, err = r.fromPage(detailsPage)
	if err != nil {
		return nil, err
	}
	if posting.ApplicationsURL == "" {
		posting.ApplicationsURL = linkUnderTitle(p, "Active Applications")
	}
	return posting, nil
}

func (r *Reader) fromPage(p *page.Page) (*Posting, error) {
	docs := []string{p.HTML}
	for _, f := range p.Frames {
		if f.Accessible {
			docs = append(docs, f.HTML)
		}
	}

	for _, html := range docs {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			continue
		}
		query, err := queryFromDocument(doc)
		if err != nil {
			continue
		}
		r.logger.WithField("length", len(query)).Debug("extracted query")
		return &Posting{Query: query, ApplicationsURL: linkUnderTitle(p, "Active Applications")}, nil
	}
	return nil, ErrNoQuery
}

// linkUnderTitle resolves the href of the element titled title, or of the first
// anchor inside it.
func linkUnderTitle(p *page.Page, title string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return ""
	}
	el := doc.Find(`[title="` + title + `"]`).First()
	if el.Length() == 0 {
		return ""
	}
	if !el.Is("a") {
		el = el.Find("a").First()
	}
	href, ok := el.Attr("href")
	if !ok {
		return ""
	}
	base, _ := url.Parse(p.URL)
	return page.Resolve(base, href)
}
