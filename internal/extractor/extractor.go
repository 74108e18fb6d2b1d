// Package extractor turns a rendered chat page into ordered message records.
// It is a pure function of the DOM snapshot: no network, no clock, no state between calls.
package extractor

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"respondo/internal/logging"
	"respondo/internal/types"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Extractor applies a selector profile to DOM snapshots.
type Extractor struct {
	sel Selectors
}

// New creates an extractor. Empty fields of sel fall back to the VK defaults.
func New(sel Selectors) *Extractor {
	return &Extractor{sel: sel.WithDefaults()}
}

// Default creates an extractor with the VK profile.
func Default() *Extractor {
	return New(DefaultSelectors())
}

// Selectors returns the effective selector profile.
func (e *Extractor) Selectors() Selectors {
	return e.sel
}

// ExtractHTML parses an HTML document and extracts its messages.
func (e *Extractor) ExtractHTML(r io.Reader) ([]types.MessageRecord, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return e.Extract(root), nil
}

// Extract returns the messages found under root in document order.
// A page with no recognizable containers yields an empty slice.
func (e *Extractor) Extract(root *html.Node) []types.MessageRecord {
	records := make([]types.MessageRecord, 0)
	if root == nil {
		return records
	}

	doc := goquery.NewDocumentFromNode(root)
	containers, strategy := e.findContainers(doc.Selection)
	if containers == nil {
		logging.ExtractorDebug("no containers matched any of %d strategies", len(e.sel.Containers))
		return records
	}
	logging.ExtractorDebug("strategy %q matched %d containers", strategy, containers.Length())

	skipped := 0
	containers.Each(func(_ int, c *goquery.Selection) {
		rec, ok := e.record(c)
		if !ok {
			skipped++
			return
		}
		records = append(records, rec)
	})

	logging.ExtractorDebug("extracted %d messages (%d empty containers skipped)", len(records), skipped)
	return records
}

// findContainers applies the container strategies in order; first match wins.
func (e *Extractor) findContainers(root *goquery.Selection) (*goquery.Selection, string) {
	for _, strategy := range e.sel.Containers {
		found := root.Find(strategy)
		if found.Length() > 0 {
			return found, strategy
		}
	}
	return nil, ""
}

func (e *Extractor) record(c *goquery.Selection) (types.MessageRecord, bool) {
	text := e.text(c)
	if text == "" {
		return types.MessageRecord{}, false
	}

	id, _ := c.Attr(e.sel.IDAttr)
	peer, _ := c.Attr(e.sel.PeerAttr)
	var ts *int64
	if raw, ok := c.Attr(e.sel.TimestampAttr); ok {
		ts = parseEpoch(raw)
	}

	return types.NewMessageRecord(id, ts, c.HasClass(e.sel.OutgoingClass), peer, text), true
}

// text returns the trimmed body of a container. The first matching text selector is
// used; when none matches, or it holds only whitespace, the whole container is used.
func (e *Extractor) text(c *goquery.Selection) string {
	for _, sel := range e.sel.Texts {
		el := c.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if t := selectionText(el); t != "" {
			return t
		}
		break
	}
	return selectionText(c)
}

func selectionText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return innerText(s.Get(0))
}

// parseEpoch reads the leading integer of raw, so "1700000000.0" and "1700000000s"
// both keep their seconds.
func parseEpoch(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[0] == '-' || raw[0] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	v, err := strconv.ParseInt(raw[:end], 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
