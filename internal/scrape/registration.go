package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mohe2015/tucant/internal/domain"
	"github.com/mohe2015/tucant/internal/tucanurl"
)

// Registration page markers. Exactly one of the two must be present: a menu
// node either lists submenus or lists modules, never both.
const (
	submenuListSelector = "#contentSpacer_IE ul"
	moduleListSelector  = "table.tbcoursestatus"
)

// descNaviPlaceholder is the unexpanded template comment the portal leaves
// in the breadcrumb h2 of some pages; it must not be mistaken for the name.
const descNaviPlaceholder = "<!--$MG_DESCNAVI-->"

// MenuRef is a hyperlink to a registration submenu.
type MenuRef struct {
	ID   []byte
	Name string
}

// ModuleEntry is one module offered on a module-leaf registration page,
// together with the courses listed directly beneath its header.
type ModuleEntry struct {
	ID        []byte
	Title     string
	Synthetic bool
	Courses   []CourseRef
}

// RegistrationDoc is the extraction result of one registration menu page.
// Exactly one of Menus and Modules is populated, according to ChildType.
type RegistrationDoc struct {
	Name      string
	ChildType int16
	Menus     []MenuRef
	Modules   []ModuleEntry
}

// Registration extracts a registration menu page and classifies the node as
// submenu-level or module-level. menuID is the id of the page itself; it
// seeds the synthetic placeholder for courses listed without a module
// header.
func Registration(doc *goquery.Document, url string, menuID []byte) (*RegistrationDoc, error) {
	name, ok := breadcrumbName(doc)
	if !ok {
		return nil, missing(url, "h2 a breadcrumb")
	}

	submenuList := doc.Find(submenuListSelector)
	moduleList := doc.Find(moduleListSelector)

	switch {
	case submenuList.Length() > 0 && moduleList.Length() > 0:
		return nil, &Error{URL: url, Field: "registration page with both submenu and module lists"}
	case moduleList.Length() > 0:
		return &RegistrationDoc{
			Name:      name,
			ChildType: domain.MenuChildModules,
			Modules:   moduleEntries(moduleList.First(), menuID),
		}, nil
	case submenuList.Length() > 0:
		return &RegistrationDoc{
			Name:      name,
			ChildType: domain.MenuChildMenus,
			Menus:     submenuRefs(submenuList.First()),
		}, nil
	default:
		return nil, &Error{URL: url, Field: "registration page with neither submenu nor module list"}
	}
}

// RootRegistration extracts the entry point of the registration tree: the
// last breadcrumb anchor names the root menu node and links to it.
func RootRegistration(doc *goquery.Document, url string) (*MenuRef, error) {
	var root *MenuRef
	doc.Find("h2 a").Each(func(_ int, sel *goquery.Selection) {
		if innerHTML(sel) == descNaviPlaceholder {
			return
		}
		href, _ := sel.Attr("href")
		id, err := tucanurl.DecodeAs(href, tucanurl.Registration)
		if err != nil {
			return
		}
		root = &MenuRef{ID: id, Name: strings.TrimSpace(sel.Text())}
	})
	if root == nil {
		return nil, missing(url, "h2 a root menu link")
	}
	return root, nil
}

// breadcrumbName returns the text of the last h2 anchor that is not the
// unexpanded navigation placeholder; that anchor names the current node.
func breadcrumbName(doc *goquery.Document) (string, bool) {
	var name string
	var found bool
	doc.Find("h2 a").Each(func(_ int, sel *goquery.Selection) {
		if innerHTML(sel) == descNaviPlaceholder {
			return
		}
		name = strings.TrimSpace(sel.Text())
		found = true
	})
	return name, found
}

// submenuRefs collects the child menu links of a submenu-level page.
// Undecodable hrefs are skipped per-link.
func submenuRefs(list *goquery.Selection) []MenuRef {
	var refs []MenuRef
	list.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		id, err := tucanurl.DecodeAs(href, tucanurl.Registration)
		if err != nil {
			return
		}
		refs = append(refs, MenuRef{ID: id, Name: strings.TrimSpace(link.Text())})
	})
	return refs
}
