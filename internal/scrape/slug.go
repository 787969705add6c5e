package scrape

import (
	"regexp"
	"strings"
)

var slugSeparators = regexp.MustCompile(`[ /)(.]+`)

// Slugify turns a free-text label into a stable, URL-safe identifier:
// lowercased, with runs of separator characters collapsed to single hyphens
// and leading and trailing hyphens removed.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugSeparators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
