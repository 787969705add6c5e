package scrape_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohe2015/tucant/internal/scrape"
)

func TestExam(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<h1>Modulabschlussprüfung</h1>
		<div id="contentlayoutleft">
			<b>Semester: </b>SoSe 2023<br>
			<b>Termin: </b>Mo, 17. Jul. 2023 10:00-12:00<br>
			<b>Anmeldezeitraum</b>1. Mär. 2023 08:00 - 30. Apr. 2023 23:59<br>
			<b>Abmeldezeitraum</b>1. Mär. 2023 08:00 - 10. Jul. 2023 23:59<br>
			<b>Prüfer: </b>Prof. Example<br>
			<b>Raum: </b>S101/A1
		</div>
	</body></html>`)

	got, err := scrape.Exam(doc, testURL)
	require.NoError(t, err)

	assert.Equal(t, "Modulabschlussprüfung", got.ExamType)
	assert.Equal(t, "SoSe 2023", got.Semester)

	require.NotNil(t, got.ExamStart)
	assert.Equal(t, time.Date(2023, time.July, 17, 10, 0, 0, 0, time.UTC), *got.ExamStart)
	require.NotNil(t, got.ExamEnd)
	assert.Equal(t, time.Date(2023, time.July, 17, 12, 0, 0, 0, time.UTC), *got.ExamEnd)

	require.NotNil(t, got.RegisterFrom)
	assert.Equal(t, time.Date(2023, time.March, 1, 8, 0, 0, 0, time.UTC), *got.RegisterFrom)
	require.NotNil(t, got.UnregisterTo)
	assert.Equal(t, time.Date(2023, time.July, 10, 23, 59, 0, 0, time.UTC), *got.UnregisterTo)

	assert.Equal(t, "Prof. Example", got.Examiner)
	assert.Equal(t, "S101/A1", got.Room)
}

func TestExam_MinimalPage(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<h1>Klausur</h1>
		<div id="contentlayoutleft">
			<b>Semester: </b>WiSe 2023/24
		</div>
	</body></html>`)

	got, err := scrape.Exam(doc, testURL)
	require.NoError(t, err)

	assert.Equal(t, "Klausur", got.ExamType)
	assert.Nil(t, got.ExamStart)
	assert.Nil(t, got.RegisterFrom)
	assert.Empty(t, got.Examiner)
}

func TestExam_MissingSemester(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<h1>Klausur</h1>
		<div id="contentlayoutleft"></div>
	</body></html>`)

	_, err := scrape.Exam(doc, testURL)
	require.Error(t, err)

	var extractErr *scrape.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Contains(t, extractErr.Field, "Semester")
}

func TestExam_BadWindow(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<h1>Klausur</h1>
		<div id="contentlayoutleft">
			<b>Semester: </b>SoSe 2023<br>
			<b>Anmeldezeitraum</b>whenever
		</div>
	</body></html>`)

	_, err := scrape.Exam(doc, testURL)
	require.Error(t, err)

	var extractErr *scrape.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Contains(t, extractErr.Field, "Anmeldezeitraum")
}
