package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// LineKind tags what a statement line means to the importer.
type LineKind int

const (
	// LineContinuation wraps the description of the record above it.
	LineContinuation LineKind = iota
	// LineHeader is page furniture: titles, column labels, footers.
	LineHeader
	// LineRecordStart opens a new transaction row.
	LineRecordStart
)

func (k LineKind) String() string {
	switch k {
	case LineHeader:
		return "header"
	case LineRecordStart:
		return "record"
	default:
		return "continuation"
	}
}

// Line is a classified statement line. Date is set only for
// LineRecordStart; Text holds the remainder after the receipt, date and
// time columns, or the whole line for a continuation.
type Line struct {
	Kind LineKind
	Date string
	Text string
}

// headerMarkers are matched case-sensitively anywhere in a line.
var headerMarkers = []string{
	"MPESA FULL STATEMENT",
	"Receipt No",
	"Completion Time",
	"Disclaimer",
	"Page ",
}

// Classify tags a single trimmed line. It looks only at the line itself.
//
// A record starts with a receipt number (8-12 uppercase letters or digits),
// a date (YYYY-MM-DD or DD/MM/YYYY), a time (HH:MM:SS) and at least one
// character of details, all separated by whitespace:
//
//	QA12BC34DE 2024-03-01 09:15:00 Pay Bill to KPLC 0.00 1,200.00 8,800.00
func Classify(line string) Line {
	for _, marker := range headerMarkers {
		if strings.Contains(line, marker) {
			return Line{Kind: LineHeader}
		}
	}

	s := scanner{s: line}
	receipt := s.field()
	if !isReceipt(receipt) || !s.space() {
		return Line{Kind: LineContinuation, Text: line}
	}
	date := s.field()
	if !isDate(date) || !s.space() {
		return Line{Kind: LineContinuation, Text: line}
	}
	clock := s.field()
	if !isClock(clock) || !s.space() {
		return Line{Kind: LineContinuation, Text: line}
	}
	rest := s.rest()
	if rest == "" {
		return Line{Kind: LineContinuation, Text: line}
	}
	return Line{Kind: LineRecordStart, Date: date, Text: rest}
}

// scanner walks a line one whitespace-separated field at a time.
type scanner struct {
	s   string
	pos int
}

// field returns the run of non-space characters at the cursor.
func (sc *scanner) field() string {
	start := sc.pos
	for sc.pos < len(sc.s) {
		r, size := utf8.DecodeRuneInString(sc.s[sc.pos:])
		if unicode.IsSpace(r) {
			break
		}
		sc.pos += size
	}
	return sc.s[start:sc.pos]
}

// space skips a whitespace run and reports whether there was one.
func (sc *scanner) space() bool {
	start := sc.pos
	for sc.pos < len(sc.s) {
		r, size := utf8.DecodeRuneInString(sc.s[sc.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		sc.pos += size
	}
	return sc.pos > start
}

func (sc *scanner) rest() string {
	return sc.s[sc.pos:]
}

func isReceipt(s string) bool {
	if len(s) < 8 || len(s) > 12 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !isDigit(c) {
			return false
		}
	}
	return true
}

// isDate accepts YYYY-MM-DD and DD/MM/YYYY by shape only; 2024-13-45 passes.
func isDate(s string) bool {
	return matchShape(s, "dddd-dd-dd") || matchShape(s, "dd/dd/dddd")
}

func isClock(s string) bool {
	return matchShape(s, "dd:dd:dd")
}

// matchShape compares s to a template where 'd' stands for an ASCII digit
// and every other byte must match literally.
func matchShape(s, shape string) bool {
	if len(s) != len(shape) {
		return false
	}
	for i := 0; i < len(shape); i++ {
		if shape[i] == 'd' {
			if !isDigit(s[i]) {
				return false
			}
		} else if s[i] != shape[i] {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
