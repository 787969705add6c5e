package scrape

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mohe2015/tucant/internal/tucanurl"
)

// GroupRef is a hyperlink to a course group discovered on its parent course
// page. Groups share the course program kind, so the ref is just id + title.
type GroupRef struct {
	ID    []byte
	Title string
}

// EventDoc is one extracted schedule entry.
type EventDoc struct {
	Start    time.Time
	End      time.Time
	Room     string
	Teachers string
}

// CourseDoc is the extraction result of a course details page.
type CourseDoc struct {
	CourseID string
	Title    string
	SWS      int16
	Content  string
	Groups   []GroupRef
	Events   []EventDoc
}

// CourseGroupDoc is the extraction result of a course group page.
type CourseGroupDoc struct {
	Title  string
	Events []EventDoc
}

// IsCourseGroup reports whether a document fetched from a course address is
// actually a course group page. The portal serves both under the same
// program; group pages carry a "Kleingruppe" h2 heading. This heuristic is
// checked once per fetch and has no fallback if it misclassifies.
func IsCourseGroup(doc *goquery.Document) bool {
	found := false
	doc.Find("h2").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.HasPrefix(strings.TrimSpace(sel.Text()), "Kleingruppe") {
			found = true
			return false
		}
		return true
	})
	return found
}

// Course extracts a course details page. The h1 heading carries the course
// code and title on separate lines; weekly hours come from the
// "Semesterwochenstunden: " label and default to 0 when the label is absent,
// which the portal does for block courses.
func Course(doc *goquery.Document, url string) (*CourseDoc, error) {
	heading := doc.Find("h1").First()
	if heading.Length() == 0 {
		return nil, missing(url, "h1")
	}

	code, title, ok := splitCourseHeading(heading.Text())
	if !ok {
		return nil, missing(url, "course heading code/title lines")
	}

	var sws int16
	if text, found := labelValue(doc, contentLeft+" b", "Semesterwochenstunden: "); found {
		if n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 16); err == nil {
			sws = int16(n)
		}
	}

	content := doc.Find(contentLeft + " td.tbdata").First()
	if content.Length() == 0 {
		return nil, missing(url, contentLeft+" td.tbdata")
	}

	events, err := scheduleEvents(doc, url)
	if err != nil {
		return nil, err
	}

	return &CourseDoc{
		CourseID: code,
		Title:    title,
		SWS:      sws,
		Content:  innerHTML(content),
		Groups:   groupLinks(doc),
		Events:   events,
	}, nil
}

// CourseGroup extracts a course group page: title from the h1 heading plus
// the group's own schedule.
func CourseGroup(doc *goquery.Document, url string) (*CourseGroupDoc, error) {
	heading := doc.Find("h1").First()
	if heading.Length() == 0 {
		return nil, missing(url, "h1")
	}

	events, err := scheduleEvents(doc, url)
	if err != nil {
		return nil, err
	}

	return &CourseGroupDoc{
		Title:  strings.TrimSpace(heading.Text()),
		Events: events,
	}, nil
}

// splitCourseHeading splits the course h1 text into code and title lines.
func splitCourseHeading(text string) (code, title string, ok bool) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return "", "", false
	}
	return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1]), true
}

// groupLinks collects course group references from the group list on a
// course page. Undecodable hrefs are skipped per-link.
func groupLinks(doc *goquery.Document) []GroupRef {
	var refs []GroupRef
	doc.Find(contentLeft + " ul.dl-ul-listview a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		id, err := tucanurl.DecodeAs(href, tucanurl.CourseDetails)
		if err != nil {
			return
		}
		refs = append(refs, GroupRef{ID: id, Title: strings.TrimSpace(link.Text())})
	})
	return refs
}

// scheduleEvents extracts the rows of the "Termine" schedule table. A row
// that no longer parses is a hard extraction error so selector drift is
// noticed rather than silently dropping dates; starred (irregular) events
// are discarded, matching the portal's own calendar export.
func scheduleEvents(doc *goquery.Document, url string) ([]EventDoc, error) {
	var events []EventDoc
	var extractErr error

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		caption := strings.TrimSpace(table.Find("caption").First().Text())
		if !strings.Contains(caption, "Termine") {
			return true
		}

		table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td.tbdata")
			if cells.Length() < 3 {
				return true
			}

			parsed, err := ParseEventTime(cells.Eq(0).Text())
			if err != nil {
				extractErr = &Error{URL: url, Field: "schedule row", Err: err}
				return false
			}
			if parsed.Starred {
				return true
			}

			events = append(events, EventDoc{
				Start:    parsed.Start,
				End:      parsed.End,
				Room:     strings.TrimSpace(cells.Eq(1).Text()),
				Teachers: strings.TrimSpace(cells.Eq(2).Text()),
			})
			return true
		})
		return extractErr == nil
	})

	if extractErr != nil {
		return nil, extractErr
	}
	return events, nil
}
