package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SnapshotPage serves a saved HTML document as the active tab.
type SnapshotPage struct {
	path string
	url  string
}

// NewSnapshotPage creates a page over the file at path. When pageURL is empty the
// URL is read from the document's canonical link or og:url meta tag.
func NewSnapshotPage(path, pageURL string) *SnapshotPage {
	return &SnapshotPage{path: path, url: pageURL}
}

// Tab implements Page.
func (p *SnapshotPage) Tab(ctx context.Context) (Tab, error) {
	markup, err := p.HTML(ctx)
	if err != nil {
		return Tab{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Tab{}, fmt.Errorf("parse snapshot: %w", err)
	}

	tab := Tab{
		ID:    "snapshot:" + filepath.Base(p.path),
		URL:   p.url,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	if tab.URL == "" {
		tab.URL = documentURL(doc)
	}
	return tab, nil
}

// HTML implements Page. The file is re-read on every call.
func (p *SnapshotPage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}
	return string(data), nil
}

// documentURL returns the URL a saved page declares for itself, if any.
func documentURL(doc *goquery.Document) string {
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && href != "" {
		return strings.TrimSpace(href)
	}
	if content, ok := doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok && content != "" {
		return strings.TrimSpace(content)
	}
	return ""
}
