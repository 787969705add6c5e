package scrape_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohe2015/tucant/internal/scrape"
	"github.com/mohe2015/tucant/internal/tucanurl"
)

func examHref(id []byte) string {
	return tucanurl.Encode(tucanurl.Program{Kind: tucanurl.ExamDetails, ID: id}, 1)
}

func TestMyModules(t *testing.T) {
	doc := parseDoc(t, fmt.Sprintf(`<html><body>
		<table class="nb">
			<tr><td><a href="%s">Intro to Systems</a></td></tr>
			<tr><td><a href="%s">Algorithms</a></td></tr>
			<tr><td><a href="%s">Intro to Systems (details)</a></td></tr>
			<tr><td><a href="/nav?x=1">next page</a></td></tr>
		</table>
	</body></html>`,
		moduleHref([]byte{0xA1}), moduleHref([]byte{0xA2}), moduleHref([]byte{0xA1})))

	got, err := scrape.MyModules(doc, testURL)
	require.NoError(t, err)

	// duplicate and foreign links are dropped, order preserved
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0xA1}, got[0])
	assert.Equal(t, []byte{0xA2}, got[1])
}

func TestMyModules_EmptyListing(t *testing.T) {
	doc := parseDoc(t, `<html><body><table class="nb"></table></body></html>`)

	got, err := scrape.MyModules(doc, testURL)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMyModules_MissingTable(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>layout changed</p></body></html>`)

	_, err := scrape.MyModules(doc, testURL)
	require.Error(t, err)

	var extractErr *scrape.Error
	assert.ErrorAs(t, err, &extractErr)
}

func TestMyCourses(t *testing.T) {
	doc := parseDoc(t, fmt.Sprintf(`<html><body>
		<table class="nb">
			<tr><td><a href="%s">Intro Lecture</a></td></tr>
			<tr><td><a href="%s">Intro Lecture Gruppe 1</a></td></tr>
		</table>
	</body></html>`, courseHref([]byte{0xB1}), courseHref([]byte{0xC1})))

	got, err := scrape.MyCourses(doc, testURL)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0xB1}, got[0])
	assert.Equal(t, []byte{0xC1}, got[1])
}

func TestMyExams(t *testing.T) {
	doc := parseDoc(t, fmt.Sprintf(`<html><body>
		<table class="nb">
			<tr><td><a href="%s">Modulabschlussprüfung</a></td></tr>
		</table>
	</body></html>`, examHref([]byte{0xD1})))

	got, err := scrape.MyExams(doc, testURL)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte{0xD1}, got[0])
}
