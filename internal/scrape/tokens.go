package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mohe2015/tucant/internal/tucanurl"
)

// UncategorizedTitle names the synthetic placeholder module that adopts
// courses listed before any module header on a module-leaf registration
// page, so no course is ever dropped.
const UncategorizedTitle = "uncategorized courses"

// rowToken classifies one row of the module-leaf course-status table.
type rowTokenKind int

const (
	tokenSeparator rowTokenKind = iota
	tokenModuleHeader
	tokenCourseLinks
)

type rowToken struct {
	kind    rowTokenKind
	id      []byte      // module id, for tokenModuleHeader
	title   string      // header text, for tokenModuleHeader
	courses []CourseRef // for tokenCourseLinks
}

// moduleEntries extracts the (module, courses) units of a module-leaf page
// in two passes: first the table rows are flattened into a sequence of
// classified tokens, then a small grammar batches each run of course-link
// tokens under the preceding module header. A run with no preceding header
// is attributed to a synthetic placeholder module derived from the menu id.
func moduleEntries(table *goquery.Selection, menuID []byte) []ModuleEntry {
	tokens := tokenizeRows(table)

	var entries []ModuleEntry
	current := -1
	for _, tok := range tokens {
		switch tok.kind {
		case tokenModuleHeader:
			entries = append(entries, ModuleEntry{ID: tok.id, Title: tok.title})
			current = len(entries) - 1
		case tokenCourseLinks:
			if current < 0 {
				entries = append(entries, ModuleEntry{
					ID:        syntheticModuleID(menuID),
					Title:     UncategorizedTitle,
					Synthetic: true,
				})
				current = len(entries) - 1
			}
			entries[current].Courses = append(entries[current].Courses, tok.courses...)
		case tokenSeparator:
			// keeps the current header open; separators carry no content
		}
	}
	return entries
}

// tokenizeRows flattens the course-status table into classified tokens: a
// row with a tbsubhead module link is a header, a row with eventLink
// anchors is a course-link run, anything else a separator.
func tokenizeRows(table *goquery.Selection) []rowToken {
	var tokens []rowToken
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if header := row.Find("td.tbsubhead a[href]").First(); header.Length() > 0 {
			href, _ := header.Attr("href")
			id, err := tucanurl.DecodeAs(href, tucanurl.ModuleDetails)
			if err != nil {
				tokens = append(tokens, rowToken{kind: tokenSeparator})
				return
			}
			tokens = append(tokens, rowToken{
				kind:  tokenModuleHeader,
				id:    id,
				title: strings.TrimSpace(header.Text()),
			})
			return
		}

		if courses := courseLinks(row); len(courses) > 0 {
			tokens = append(tokens, rowToken{kind: tokenCourseLinks, courses: courses})
			return
		}

		tokens = append(tokens, rowToken{kind: tokenSeparator})
	})
	return tokens
}

// syntheticModuleID derives a stable placeholder id from the menu id, so
// repeated crawls of the same menu reuse one placeholder row. The portal
// never issues ids with this trailing marker byte.
func syntheticModuleID(menuID []byte) []byte {
	id := make([]byte, 0, len(menuID)+1)
	id = append(id, menuID...)
	return append(id, 0x00)
}
