// Package domain provides the entity model for the TUCaN cache.
package domain

import "time"

// ModuleMenu child type constants. A menu node's child type is unknown until
// the node has been fetched once; after that it is fixed and must never flip
// between submenu and module.
const (
	MenuChildUnknown int16 = 0
	MenuChildMenus   int16 = 1
	MenuChildModules int16 = 2
)

// Session identifies an authenticated TUCaN session. The portal hands out a
// numeric session number (embedded in every URL) and a session id cookie.
type Session struct {
	Nr int64
	ID string
}

// Module represents a study module as cached from its details page.
// Done=false rows are forward-reference stubs discovered inside a parent
// document; only a direct fetch of the module page sets Done=true.
type Module struct {
	TucanID     []byte    `db:"tucan_id"     json:"tucan_id"`
	LastChecked time.Time `db:"last_checked" json:"last_checked"`
	Title       string    `db:"title"        json:"title"`
	ModuleID    string    `db:"module_id"    json:"module_id"`
	Credits     *int32    `db:"credits"      json:"credits,omitempty"`
	Content     string    `db:"content"      json:"content"`
	Done        bool      `db:"done"         json:"done"`
}

// Course represents a course (Lehrveranstaltung).
type Course struct {
	TucanID     []byte    `db:"tucan_id"     json:"tucan_id"`
	LastChecked time.Time `db:"last_checked" json:"last_checked"`
	Title       string    `db:"title"        json:"title"`
	CourseID    string    `db:"course_id"    json:"course_id"`
	SWS         int16     `db:"sws"          json:"sws"`
	Content     string    `db:"content"      json:"content"`
	Done        bool      `db:"done"         json:"done"`
}

// CourseGroup is a sub-section of a course (Kleingruppe). The portal serves
// both courses and course groups under the same program kind; only the
// fetched document tells them apart.
type CourseGroup struct {
	TucanID []byte `db:"tucan_id" json:"tucan_id"`
	Course  []byte `db:"course"   json:"course"`
	Title   string `db:"title"    json:"title"`
	Done    bool   `db:"done"     json:"done"`
}

// CourseEvent is one schedule entry of a course. Uniqueness is
// (course, start, end, room); re-extraction only updates the teachers.
type CourseEvent struct {
	Course   []byte    `db:"course"   json:"course"`
	Start    time.Time `db:"start_at" json:"start"`
	End      time.Time `db:"end_at"   json:"end"`
	Room     string    `db:"room"     json:"room"`
	Teachers string    `db:"teachers" json:"teachers"`
}

// CourseGroupEvent is one schedule entry of a course group.
type CourseGroupEvent struct {
	Group    []byte    `db:"course_group" json:"course_group"`
	Start    time.Time `db:"start_at"     json:"start"`
	End      time.Time `db:"end_at"       json:"end"`
	Room     string    `db:"room"         json:"room"`
	Teachers string    `db:"teachers"     json:"teachers"`
}

// Exam represents an exam offering. An exam can belong to modules, courses
// or both, so it carries no owner column of its own.
type Exam struct {
	TucanID        []byte     `db:"tucan_id"        json:"tucan_id"`
	ExamType       string     `db:"exam_type"       json:"exam_type"`
	Semester       string     `db:"semester"        json:"semester"`
	ExamStart      *time.Time `db:"exam_start"      json:"exam_start,omitempty"`
	ExamEnd        *time.Time `db:"exam_end"        json:"exam_end,omitempty"`
	RegisterFrom   *time.Time `db:"register_from"   json:"register_from,omitempty"`
	RegisterTo     *time.Time `db:"register_to"     json:"register_to,omitempty"`
	UnregisterFrom *time.Time `db:"unregister_from" json:"unregister_from,omitempty"`
	UnregisterTo   *time.Time `db:"unregister_to"   json:"unregister_to,omitempty"`
	Examiner       string     `db:"examiner"        json:"examiner"`
	Room           string     `db:"room"            json:"room"`
	Done           bool       `db:"done"            json:"done"`
}

// ModuleMenu is one node of the registration tree. The tree is discovered
// lazily, one fetch per node; Parent is nil for the root and for stubs whose
// parent is not yet known.
type ModuleMenu struct {
	TucanID        []byte    `db:"tucan_id"        json:"tucan_id"`
	LastChecked    time.Time `db:"last_checked"    json:"last_checked"`
	Name           string    `db:"name"            json:"name"`
	NormalizedName string    `db:"normalized_name" json:"normalized_name"`
	ChildType      int16     `db:"child_type"      json:"child_type"`
	Parent         []byte    `db:"parent"          json:"parent,omitempty"`
	Done           bool      `db:"done"            json:"done"`
}

// MenuPathPart is one breadcrumb step from a module up to the tree root.
type MenuPathPart struct {
	TucanID []byte `db:"tucan_id" json:"tucan_id"`
	Name    string `db:"name"     json:"name"`
	Parent  []byte `db:"parent"   json:"parent,omitempty"`
	Leaf    bool   `db:"leaf"     json:"leaf"`
}

// User association kinds, used for the per-user per-kind "last checked"
// marker of the my-modules / my-courses / my-exams listings.
const (
	UserCheckedModules = "modules"
	UserCheckedCourses = "courses"
	UserCheckedExams   = "exams"
)
