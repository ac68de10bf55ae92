package landing

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a landing pipeline failure that aborts the whole operation.
// Per-row business validation problems are not Kinds; they travel as
// ErrorEntry values on the rows themselves.
type Kind string

const (
	KindEmptyUpload          Kind = "empty-upload"
	KindTooManyRows          Kind = "too-many-rows"
	KindColumnMismatch       Kind = "column-mismatch"
	KindMalformedCSV         Kind = "malformed-csv"
	KindNoValidRows          Kind = "no-valid-rows"
	KindLandingLimitExceeded Kind = "landing-limit-exceeded"
	KindInvalidLanding       Kind = "invalid-landing"
)

// ErrIncompleteValidation is returned when the reference service marks a row
// valid but it lacks product data or carries a date or weight that cannot be
// converted.
var ErrIncompleteValidation = errors.New("reference service returned an unusable valid row")

// Error is a fatal landing pipeline failure.
type Error struct {
	Kind  Kind
	Limit int   // Configured limit for TooManyRows and LandingLimitExceeded
	Row   int   // 1-based row for structural errors
	Cells int   // Cell count seen on Row
	Err   error // Underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindEmptyUpload:
		b.WriteString("empty file: no landings found in upload")
	case KindTooManyRows:
		fmt.Fprintf(&b, "too many landings: upload exceeds limit of %d", e.Limit)
	case KindColumnMismatch:
		fmt.Fprintf(&b, "column mismatch on row %d: got %d columns, expected one of %s",
			e.Row, e.Cells, joinInts(acceptedCellCounts()))
	case KindMalformedCSV:
		fmt.Fprintf(&b, "invalid csv on row %d", e.Row)
	case KindNoValidRows:
		b.WriteString("no valid landings to save")
	case KindLandingLimitExceeded:
		fmt.Fprintf(&b, "landing limit exceeded: a document may hold at most %d landings", e.Limit)
	case KindInvalidLanding:
		b.WriteString("invalid landing: correct the highlighted fields")
	default:
		b.WriteString(string(e.Kind))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so callers can write
// errors.Is(err, &landing.Error{Kind: landing.KindNoValidRows}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of a landing error, or "" for anything else.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// LimitOf returns the configured limit carried by a landing error, or 0.
func LimitOf(err error) int {
	var le *Error
	if errors.As(err, &le) {
		return le.Limit
	}
	return 0
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
