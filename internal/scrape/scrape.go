// Package scrape extracts typed records from fetched TUCaN documents.
//
// The portal's HTML is not an API: most fields are only reachable through
// label-anchored scans (a bold caption followed by a text node) and fixed
// class names. Every structural assumption is therefore surfaced as a typed
// *Error carrying the document URL and the missing selector or field, never
// as a panic; the documents are third-party input and drift over time.
package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Error describes a failed extraction: which document, which selector or
// labeled field was expected but absent or malformed.
type Error struct {
	URL   string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s from %s: %v", e.Field, e.URL, e.Err)
	}
	return fmt.Sprintf("extract %s from %s: expected field missing", e.Field, e.URL)
}

func (e *Error) Unwrap() error { return e.Err }

// missing builds the standard "expected field missing" error.
func missing(url, field string) *Error {
	return &Error{URL: url, Field: field}
}

// labelValue scans the elements matched by selector for one whose text is
// exactly the given caption (after trimming) and returns the text of the
// node's next sibling. This is the label-anchored field scan: captions are
// fixed German strings, and the value lives in the adjacent text node.
func labelValue(doc *goquery.Document, selector, caption string) (string, bool) {
	want := strings.TrimSpace(caption)

	var value string
	var found bool
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.TrimSpace(sel.Text()) != want {
			return true
		}
		node := sel.Get(0)
		for next := node.NextSibling; next != nil; next = next.NextSibling {
			if next.Type == html.TextNode {
				value = strings.TrimSpace(next.Data)
				found = true
				return false
			}
			if next.Type == html.ElementNode {
				break
			}
		}
		return true
	})
	return value, found
}

// innerHTML returns the inner HTML of the first matched element.
func innerHTML(sel *goquery.Selection) string {
	h, err := sel.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(h)
}
