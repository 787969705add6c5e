package scrape_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohe2015/tucant/internal/domain"
	"github.com/mohe2015/tucant/internal/scrape"
	"github.com/mohe2015/tucant/internal/tucanurl"
)

func registrationHref(id []byte) string {
	return tucanurl.Encode(tucanurl.Program{Kind: tucanurl.Registration, ID: id}, 1)
}

func moduleHref(id []byte) string {
	return tucanurl.Encode(tucanurl.Program{Kind: tucanurl.ModuleDetails, ID: id}, 1)
}

const breadcrumb = `<h2><a href="#"><!--$MG_DESCNAVI--></a></h2>
	<h2><a href="#">Pflichtbereich</a></h2>`

func TestRegistration_SubmenuLevel(t *testing.T) {
	doc := parseDoc(t, fmt.Sprintf(`<html><body>
		%s
		<div id="contentSpacer_IE">
			<ul>
				<li><a href="%s">Grundstudium</a></li>
				<li><a href="%s">Hauptstudium</a></li>
				<li><a href="/external">skip me</a></li>
			</ul>
		</div>
	</body></html>`, breadcrumb, registrationHref([]byte{0x11}), registrationHref([]byte{0x12})))

	got, err := scrape.Registration(doc, testURL, []byte{0x10})
	require.NoError(t, err)

	assert.Equal(t, "Pflichtbereich", got.Name)
	assert.Equal(t, domain.MenuChildMenus, got.ChildType)
	assert.Empty(t, got.Modules)

	require.Len(t, got.Menus, 2)
	assert.Equal(t, []byte{0x11}, got.Menus[0].ID)
	assert.Equal(t, "Grundstudium", got.Menus[0].Name)
	assert.Equal(t, []byte{0x12}, got.Menus[1].ID)
}

func TestRegistration_ModuleLevel(t *testing.T) {
	doc := parseDoc(t, fmt.Sprintf(`<html><body>
		%s
		<table class="tbcoursestatus">
			<tr><td class="tbsubhead dl-inner"><a href="%s">MOD-101 Intro to Systems</a></td></tr>
			<tr>
				<td><a name="eventLink" href="%s">20-00-0001-iv</a></td>
				<td><a name="eventLink" href="%s">Intro Lecture</a></td>
			</tr>
			<tr><td class="tbdata">Anmeldung bis 30.09.</td></tr>
			<tr><td class="tbsubhead dl-inner"><a href="%s">MOD-102 Algorithms</a></td></tr>
		</table>
	</body></html>`,
		breadcrumb,
		moduleHref([]byte{0xA1}),
		courseHref([]byte{0xB1}), courseHref([]byte{0xB1}),
		moduleHref([]byte{0xA2})))

	got, err := scrape.Registration(doc, testURL, []byte{0x10})
	require.NoError(t, err)

	assert.Equal(t, domain.MenuChildModules, got.ChildType)
	assert.Empty(t, got.Menus)

	require.Len(t, got.Modules, 2)
	assert.Equal(t, []byte{0xA1}, got.Modules[0].ID)
	assert.Equal(t, "MOD-101 Intro to Systems", got.Modules[0].Title)
	require.Len(t, got.Modules[0].Courses, 1)
	assert.Equal(t, []byte{0xB1}, got.Modules[0].Courses[0].ID)

	assert.Equal(t, []byte{0xA2}, got.Modules[1].ID)
	assert.Empty(t, got.Modules[1].Courses)
}

func TestRegistration_UncategorizedCourses(t *testing.T) {
	doc := parseDoc(t, fmt.Sprintf(`<html><body>
		%s
		<table class="tbcoursestatus">
			<tr>
				<td><a name="eventLink" href="%s">20-00-0009-se</a></td>
				<td><a name="eventLink" href="%s">Orphan Seminar</a></td>
			</tr>
			<tr><td class="tbsubhead dl-inner"><a href="%s">MOD-103 Later</a></td></tr>
		</table>
	</body></html>`,
		breadcrumb,
		courseHref([]byte{0xB9}), courseHref([]byte{0xB9}),
		moduleHref([]byte{0xA3})))

	got, err := scrape.Registration(doc, testURL, []byte{0x10})
	require.NoError(t, err)

	require.Len(t, got.Modules, 2)
	assert.True(t, got.Modules[0].Synthetic)
	assert.Equal(t, scrape.UncategorizedTitle, got.Modules[0].Title)
	assert.Equal(t, []byte{0x10, 0x00}, got.Modules[0].ID)
	require.Len(t, got.Modules[0].Courses, 1)
	assert.Equal(t, []byte{0xB9}, got.Modules[0].Courses[0].ID)

	assert.False(t, got.Modules[1].Synthetic)
	assert.Empty(t, got.Modules[1].Courses)
}

func TestRegistration_NeitherMarker(t *testing.T) {
	doc := parseDoc(t, `<html><body>`+breadcrumb+`<p>nothing here</p></body></html>`)

	_, err := scrape.Registration(doc, testURL, []byte{0x10})
	require.Error(t, err)

	var extractErr *scrape.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Contains(t, extractErr.Field, "neither")
}

func TestRegistration_BothMarkers(t *testing.T) {
	doc := parseDoc(t, `<html><body>`+breadcrumb+`
		<div id="contentSpacer_IE"><ul></ul></div>
		<table class="tbcoursestatus"></table>
	</body></html>`)

	_, err := scrape.Registration(doc, testURL, []byte{0x10})
	require.Error(t, err)

	var extractErr *scrape.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Contains(t, extractErr.Field, "both")
}

func TestRegistration_MissingBreadcrumb(t *testing.T) {
	doc := parseDoc(t, `<html><body><table class="tbcoursestatus"></table></body></html>`)

	_, err := scrape.Registration(doc, testURL, []byte{0x10})
	assert.Error(t, err)
}

func TestRootRegistration(t *testing.T) {
	doc := parseDoc(t, fmt.Sprintf(`<html><body>
		<h2><a href="#"><!--$MG_DESCNAVI--></a></h2>
		<h2><a href="%s">M.Sc. Informatik (2015)</a></h2>
	</body></html>`, registrationHref([]byte{0x01, 0x02})))

	got, err := scrape.RootRegistration(doc, testURL)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x01, 0x02}, got.ID)
	assert.Equal(t, "M.Sc. Informatik (2015)", got.Name)
}

func TestRootRegistration_NoLink(t *testing.T) {
	doc := parseDoc(t, `<html><body><h2><a href="/elsewhere">Nope</a></h2></body></html>`)

	_, err := scrape.RootRegistration(doc, testURL)
	assert.Error(t, err)
}
