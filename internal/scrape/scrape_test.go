package scrape_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const testURL = "/scripts/mgrqispi.dll?APPNAME=CampusNet&PRGNAME=TEST"

// parseDoc builds a goquery document from an HTML fragment.
func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}
