// Package tucanurl implements the codec for TUCaN's proprietary URL scheme.
//
// Every page of the portal is addressed through a single CGI endpoint with a
// query string of the form
//
//	?APPNAME=CampusNet&PRGNAME=<program>&ARGUMENTS=-N<session>,-N<magic>,<id args>
//
// where ARGUMENTS is a comma-separated list of sign-prefixed values: "-N"
// prefixes a decimal number, "-A" prefixes a string. Entity identifiers are
// opaque byte strings assigned by the portal; the codec packs them into
// 8-byte big-endian "-N" chunks with a trailing "-A"-prefixed hex chunk for
// any remainder, so identifiers of every length round-trip byte for byte.
package tucanurl

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DispatcherPath is the path of the portal's single CGI dispatcher.
const DispatcherPath = "/scripts/mgrqispi.dll"

// appName is the fixed APPNAME query parameter.
const appName = "CampusNet"

// rootMarker is the ARGUMENTS tail that distinguishes the registration root
// page from a concrete registration menu node.
const rootMarker = "-A"

// ProgramKind identifies which portal page a URL addresses.
type ProgramKind int

// The closed set of program kinds the crawler understands.
const (
	ModuleDetails ProgramKind = iota
	CourseDetails
	ExamDetails
	Registration
	RootRegistration
	MyModules
	MyCourses
	MyExams
	PersonalAddress
)

// String returns the portal's PRGNAME for the kind.
func (k ProgramKind) String() string {
	if name, ok := prgNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ProgramKind(%d)", int(k))
}

// prgNames maps program kinds to the portal's PRGNAME parameter.
// Registration and RootRegistration share a PRGNAME; they are told apart by
// the rootMarker argument.
var prgNames = map[ProgramKind]string{
	ModuleDetails:    "MODULEDETAILS",
	CourseDetails:    "COURSEDETAILS",
	ExamDetails:      "EXAMDETAILS",
	Registration:     "REGISTRATION",
	RootRegistration: "REGISTRATION",
	MyModules:        "MYMODULES",
	MyCourses:        "MYCOURSES",
	MyExams:          "MYEXAMS",
	PersonalAddress:  "PERSADDRESS",
}

// prgMagic maps program kinds to the fixed second ARGUMENTS number the
// portal expects for that page.
var prgMagic = map[ProgramKind]int64{
	ModuleDetails:    275,
	CourseDetails:    274,
	ExamDetails:      318,
	Registration:     311,
	RootRegistration: 311,
	MyModules:        280,
	MyCourses:        281,
	MyExams:          318,
	PersonalAddress:  279,
}

// Program is a typed portal address: which page, and for detail pages, the
// opaque identifier of the addressed entity.
type Program struct {
	Kind ProgramKind
	ID   []byte
}

// ErrUnexpectedProgram is wrapped by DecodeError when a URL decodes to a
// different program kind than the caller expected. Hyperlinks inside fetched
// documents are untrusted input, so this is a recoverable condition.
var ErrUnexpectedProgram = errors.New("unexpected program kind")

// ErrMalformedURL is wrapped by DecodeError when a URL does not follow the
// dispatcher scheme at all.
var ErrMalformedURL = errors.New("malformed tucan url")

// DecodeError describes why a URL could not be decoded.
type DecodeError struct {
	URL    string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %s", e.URL, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode builds the query URL for a program, relative to the dispatcher
// path. sessionNr is the numeric session embedded as the first argument.
func Encode(p Program, sessionNr int64) string {
	args := []string{
		"-N" + strconv.FormatInt(sessionNr, 10),
		fmt.Sprintf("-N%06d", prgMagic[p.Kind]),
	}
	if p.Kind == RootRegistration {
		args = append(args, rootMarker)
	} else {
		args = append(args, encodeID(p.ID)...)
	}

	q := url.Values{}
	q.Set("APPNAME", appName)
	q.Set("PRGNAME", prgNames[p.Kind])
	q.Set("ARGUMENTS", strings.Join(args, ","))
	return DispatcherPath + "?" + q.Encode()
}

// encodeID packs an identifier into ARGUMENTS chunks: full 8-byte chunks as
// zero-padded big-endian "-N" decimals, a trailing partial chunk as "-A" hex.
func encodeID(id []byte) []string {
	var args []string
	for len(id) >= 8 {
		n := binary.BigEndian.Uint64(id[:8])
		args = append(args, fmt.Sprintf("-N%020d", n))
		id = id[8:]
	}
	if len(id) > 0 {
		args = append(args, "-A"+hex.EncodeToString(id))
	}
	return args
}

// Decode parses a dispatcher URL (absolute or relative) into a Program.
func Decode(rawURL string) (Program, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Program{}, &DecodeError{URL: rawURL, Reason: "not a url", Err: ErrMalformedURL}
	}
	if !strings.HasSuffix(u.Path, DispatcherPath) {
		return Program{}, &DecodeError{URL: rawURL, Reason: "not a dispatcher url", Err: ErrMalformedURL}
	}

	q := u.Query()
	if q.Get("APPNAME") != appName {
		return Program{}, &DecodeError{URL: rawURL, Reason: "unknown APPNAME", Err: ErrMalformedURL}
	}

	prgName := q.Get("PRGNAME")
	kind, ok := kindForName(prgName)
	if !ok {
		return Program{}, &DecodeError{
			URL:    rawURL,
			Reason: fmt.Sprintf("unknown PRGNAME %q", prgName),
			Err:    ErrUnexpectedProgram,
		}
	}

	args := strings.Split(q.Get("ARGUMENTS"), ",")
	if len(args) < 2 || !strings.HasPrefix(args[0], "-N") || !strings.HasPrefix(args[1], "-N") {
		return Program{}, &DecodeError{URL: rawURL, Reason: "missing session arguments", Err: ErrMalformedURL}
	}
	idArgs := args[2:]

	if kind == Registration && len(idArgs) == 1 && idArgs[0] == rootMarker {
		return Program{Kind: RootRegistration}, nil
	}

	id, err := decodeID(idArgs)
	if err != nil {
		return Program{}, &DecodeError{URL: rawURL, Reason: err.Error(), Err: ErrMalformedURL}
	}
	return Program{Kind: kind, ID: id}, nil
}

// DecodeAs decodes a URL and checks it addresses the expected program kind.
// A mismatch is reported as a DecodeError wrapping ErrUnexpectedProgram, not
// a panic: hyperlinks found in fetched documents can point anywhere.
func DecodeAs(rawURL string, want ProgramKind) ([]byte, error) {
	p, err := Decode(rawURL)
	if err != nil {
		return nil, err
	}
	if p.Kind != want {
		return nil, &DecodeError{
			URL:    rawURL,
			Reason: fmt.Sprintf("expected %s, got %s", want, p.Kind),
			Err:    ErrUnexpectedProgram,
		}
	}
	return p.ID, nil
}

// kindForName resolves a PRGNAME. REGISTRATION resolves to Registration; the
// root variant is recognized later by its argument shape.
func kindForName(name string) (ProgramKind, bool) {
	for kind, prg := range prgNames {
		if prg == name && kind != RootRegistration {
			return kind, true
		}
	}
	return 0, false
}

// decodeID reverses encodeID.
func decodeID(args []string) ([]byte, error) {
	id := make([]byte, 0, len(args)*8)
	for i, arg := range args {
		switch {
		case strings.HasPrefix(arg, "-N"):
			n, err := strconv.ParseUint(arg[2:], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad numeric argument %q", arg)
			}
			var chunk [8]byte
			binary.BigEndian.PutUint64(chunk[:], n)
			id = append(id, chunk[:]...)
		case strings.HasPrefix(arg, "-A"):
			if i != len(args)-1 {
				return nil, fmt.Errorf("binary argument %q before end of list", arg)
			}
			rest, err := hex.DecodeString(arg[2:])
			if err != nil {
				return nil, fmt.Errorf("bad binary argument %q", arg)
			}
			id = append(id, rest...)
		default:
			return nil, fmt.Errorf("unknown argument prefix %q", arg)
		}
	}
	return id, nil
}
