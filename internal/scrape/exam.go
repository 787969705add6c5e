package scrape

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ExamDoc is the extraction result of an exam details page.
type ExamDoc struct {
	ExamType       string
	Semester       string
	ExamStart      *time.Time
	ExamEnd        *time.Time
	RegisterFrom   *time.Time
	RegisterTo     *time.Time
	UnregisterFrom *time.Time
	UnregisterTo   *time.Time
	Examiner       string
	Room           string
}

// Exam extracts an exam details page. Type and semester are required; the
// schedule, the registration and unregistration windows, examiner and room
// are optional labels that many exam offerings simply do not render.
func Exam(doc *goquery.Document, url string) (*ExamDoc, error) {
	heading := doc.Find("h1").First()
	if heading.Length() == 0 {
		return nil, missing(url, "h1")
	}

	semester, ok := labelValue(doc, contentLeft+" b", "Semester: ")
	if !ok {
		return nil, missing(url, `label "Semester: "`)
	}

	out := &ExamDoc{
		ExamType: strings.TrimSpace(heading.Text()),
		Semester: semester,
	}

	if text, found := labelValue(doc, contentLeft+" b", "Termin: "); found {
		parsed, err := ParseEventTime(text)
		if err != nil {
			return nil, &Error{URL: url, Field: `label "Termin: "`, Err: err}
		}
		out.ExamStart, out.ExamEnd = &parsed.Start, &parsed.End
	}

	var err error
	out.RegisterFrom, out.RegisterTo, err = optionalWindow(doc, url, "Anmeldezeitraum")
	if err != nil {
		return nil, err
	}
	out.UnregisterFrom, out.UnregisterTo, err = optionalWindow(doc, url, "Abmeldezeitraum")
	if err != nil {
		return nil, err
	}

	if text, found := labelValue(doc, contentLeft+" b", "Prüfer: "); found {
		out.Examiner = text
	}
	if text, found := labelValue(doc, contentLeft+" b", "Raum: "); found {
		out.Room = text
	}

	return out, nil
}

// optionalWindow reads a "from - to" window label; absence is fine, an
// unparseable value is not.
func optionalWindow(doc *goquery.Document, url, caption string) (*time.Time, *time.Time, error) {
	text, found := labelValue(doc, contentLeft+" b", caption)
	if !found {
		return nil, nil, nil
	}
	from, to, err := ParseWindow(text)
	if err != nil {
		return nil, nil, &Error{URL: url, Field: `label "` + caption + `"`, Err: err}
	}
	return &from, &to, nil
}
