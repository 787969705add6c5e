package scrape

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mohe2015/tucant/internal/tucanurl"
)

// contentLeft is the portal's main content column; labeled fields and the
// description blob live inside it.
const contentLeft = "#contentlayoutleft"

// CourseRef is a hyperlink to a course discovered inside another document.
// Title and CourseID may be empty when the source page does not render them.
type CourseRef struct {
	ID       []byte
	CourseID string
	Title    string
}

// ModuleDoc is the extraction result of a module details page.
type ModuleDoc struct {
	ModuleID string
	Title    string
	Credits  int32
	Content  string
	Courses  []CourseRef
}

// Module extracts a module details page. The h1 heading carries the module
// code and title separated by a non-breaking space; credits come from the
// "Credits: " label; the course list from the eventLink anchors.
func Module(doc *goquery.Document, url string) (*ModuleDoc, error) {
	heading := doc.Find("h1").First()
	if heading.Length() == 0 {
		return nil, missing(url, "h1")
	}

	code, title, ok := strings.Cut(strings.TrimSpace(heading.Text()), "\u00a0")
	if !ok {
		return nil, missing(url, "module heading code\u00a0title separator")
	}

	creditsText, ok := labelValue(doc, contentLeft+" b", "Credits: ")
	if !ok {
		return nil, missing(url, `label "Credits: "`)
	}
	credits := parseCredits(creditsText)

	content := doc.Find(contentLeft + " tr.tbdata").First()
	if content.Length() == 0 {
		return nil, missing(url, contentLeft+" tr.tbdata")
	}

	return &ModuleDoc{
		ModuleID: strings.TrimSpace(code),
		Title:    strings.TrimSpace(title),
		Credits:  credits,
		Content:  innerHTML(content),
		Courses:  courseLinks(doc.Selection),
	}, nil
}

// parseCredits parses the credits label value. The portal renders a ",0"
// decimal tail ("6,0"); values that do not parse fall back to 0, matching
// the pages that render footnote text instead of a number.
func parseCredits(s string) int32 {
	s = strings.TrimSuffix(strings.TrimSpace(s), ",0")
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

// courseLinks collects course references from eventLink anchors, grouped by
// their enclosing table row. Within one row consecutive anchors pair up as
// (code link, title link) for the same course; rows are deduplicated by node
// identity so nested selections never yield a course twice. Anchors whose
// href does not decode as a course address are skipped: they are untrusted
// links and a single stray one must not abort the extraction.
func courseLinks(root *goquery.Selection) []CourseRef {
	seen := make(map[*html.Node]bool)
	var refs []CourseRef

	root.Find(`a[name="eventLink"]`).Each(func(_ int, link *goquery.Selection) {
		row := link.Closest("tr")
		if row.Length() == 0 || seen[row.Get(0)] {
			return
		}
		seen[row.Get(0)] = true

		anchors := row.Find(`a[name="eventLink"]`)
		for i := 0; i < anchors.Length(); i += 2 {
			first := anchors.Eq(i)
			href, _ := first.Attr("href")
			id, err := tucanurl.DecodeAs(href, tucanurl.CourseDetails)
			if err != nil {
				continue
			}

			ref := CourseRef{ID: id, CourseID: strings.TrimSpace(first.Text())}
			if i+1 < anchors.Length() {
				ref.Title = strings.TrimSpace(anchors.Eq(i + 1).Text())
			} else {
				ref.Title = ref.CourseID
			}
			refs = append(refs, ref)
		}
	})

	return refs
}
