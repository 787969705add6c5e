package scrape

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/mohe2015/tucant/internal/tucanurl"
)

// listingTable is the table class the portal uses for the my-modules,
// my-courses and my-exams listings. The table is present even when the
// listing is empty, so its absence means selector drift, not an empty list.
const listingTable = "table.nb"

// MyModules extracts the module ids linked from the my-modules listing.
func MyModules(doc *goquery.Document, url string) ([][]byte, error) {
	return listingIDs(doc, url, tucanurl.ModuleDetails)
}

// MyCourses extracts the course ids linked from the my-courses listing.
// Courses and course groups share a program kind, so the ids returned here
// may resolve to either; the caller disambiguates after fetching.
func MyCourses(doc *goquery.Document, url string) ([][]byte, error) {
	return listingIDs(doc, url, tucanurl.CourseDetails)
}

// MyExams extracts the exam ids linked from the my-exams listing.
func MyExams(doc *goquery.Document, url string) ([][]byte, error) {
	return listingIDs(doc, url, tucanurl.ExamDetails)
}

// listingIDs collects every listing-table hyperlink that decodes to the
// wanted program kind, deduplicated in discovery order. Links to other
// programs (navigation, sorting, detail toggles) are skipped per-link.
func listingIDs(doc *goquery.Document, url string, want tucanurl.ProgramKind) ([][]byte, error) {
	table := doc.Find(listingTable)
	if table.Length() == 0 {
		return nil, missing(url, listingTable)
	}

	ids := make([][]byte, 0)
	seen := make(map[string]bool)

	table.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		id, err := tucanurl.DecodeAs(href, want)
		if err != nil {
			return
		}
		key := string(id)
		if seen[key] {
			return
		}
		seen[key] = true
		ids = append(ids, id)
	})
	return ids, nil
}
