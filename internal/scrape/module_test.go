package scrape_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohe2015/tucant/internal/scrape"
	"github.com/mohe2015/tucant/internal/tucanurl"
)

// courseHref builds an encoded course-details href for fixtures.
func courseHref(id []byte) string {
	return tucanurl.Encode(tucanurl.Program{Kind: tucanurl.CourseDetails, ID: id}, 1)
}

func modulePage() string {
	return fmt.Sprintf(`<html><body>
		<h1>MOD-101&nbsp;Intro to Systems</h1>
		<div id="contentlayoutleft">
			<b>Credits: </b>6,0<br>
			<table>
				<tr class="tbdata"><td><p>Learning goals.</p></td></tr>
			</table>
			<table>
				<tr>
					<td><a name="eventLink" href="%s">20-00-0001-iv</a></td>
					<td><a name="eventLink" href="%s">Intro Lecture</a></td>
				</tr>
				<tr>
					<td><a name="eventLink" href="%s">20-00-0002-ue</a></td>
					<td><a name="eventLink" href="%s">Intro Exercise</a></td>
				</tr>
			</table>
		</div>
	</body></html>`,
		courseHref([]byte{0xB1}), courseHref([]byte{0xB1}),
		courseHref([]byte{0xB2}), courseHref([]byte{0xB2}))
}

func TestModule(t *testing.T) {
	doc := parseDoc(t, modulePage())

	got, err := scrape.Module(doc, testURL)
	require.NoError(t, err)

	assert.Equal(t, "MOD-101", got.ModuleID)
	assert.Equal(t, "Intro to Systems", got.Title)
	assert.Equal(t, int32(6), got.Credits)
	assert.Contains(t, got.Content, "Learning goals.")

	require.Len(t, got.Courses, 2)
	assert.Equal(t, []byte{0xB1}, got.Courses[0].ID)
	assert.Equal(t, "20-00-0001-iv", got.Courses[0].CourseID)
	assert.Equal(t, "Intro Lecture", got.Courses[0].Title)
	assert.Equal(t, []byte{0xB2}, got.Courses[1].ID)
}

func TestModule_SkipsUndecodableCourseLinks(t *testing.T) {
	doc := parseDoc(t, fmt.Sprintf(`<html><body>
		<h1>MOD-102&nbsp;Other</h1>
		<div id="contentlayoutleft">
			<b>Credits: </b>3,0
			<table><tr class="tbdata"><td>x</td></tr></table>
			<table>
				<tr><td><a name="eventLink" href="/external/page">Bad</a></td></tr>
				<tr>
					<td><a name="eventLink" href="%s">20-00-0003-vl</a></td>
					<td><a name="eventLink" href="%s">Good</a></td>
				</tr>
			</table>
		</div>
	</body></html>`, courseHref([]byte{0xB3}), courseHref([]byte{0xB3})))

	got, err := scrape.Module(doc, testURL)
	require.NoError(t, err)

	require.Len(t, got.Courses, 1)
	assert.Equal(t, []byte{0xB3}, got.Courses[0].ID)
}

func TestModule_MissingHeading(t *testing.T) {
	doc := parseDoc(t, `<html><body><div id="contentlayoutleft"></div></body></html>`)

	_, err := scrape.Module(doc, testURL)
	require.Error(t, err)

	var extractErr *scrape.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, testURL, extractErr.URL)
	assert.Equal(t, "h1", extractErr.Field)
}

func TestModule_MissingCreditsLabel(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<h1>MOD-103&nbsp;No Credits</h1>
		<div id="contentlayoutleft">
			<table><tr class="tbdata"><td>x</td></tr></table>
		</div>
	</body></html>`)

	_, err := scrape.Module(doc, testURL)
	require.Error(t, err)

	var extractErr *scrape.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Contains(t, extractErr.Field, "Credits")
}
