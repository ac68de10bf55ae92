package landing

// parser.go turns uploaded landings CSV text into UploadedLanding rows.
//
// Uploads carry no header row. Which optional columns a row contains is
// inferred from its cell count (and, where two layouts share a count, from
// whether the cell in the landing-date position looks like a date). The
// decision is made per row by inferLayout, which either names a concrete
// layout or fails the whole parse.
//
// Business validation (date ranges, FAO whitelist, vessel lookups) is the
// reference service's job, not the parser's.

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Column is one canonical upload column.
type Column struct {
	Name     string
	Optional bool
}

// Canonical column names.
const (
	ColProductID    = "productId"
	ColStartDate    = "startDate"
	ColLandingDate  = "landingDate"
	ColFaoArea      = "faoArea"
	ColHighSeasArea = "highSeasArea"
	ColRfmoCode     = "rfmoCode"
	ColEezCode      = "eezCode"
	ColVesselPLN    = "vesselPln"
	ColGearCode     = "gearCode"
	ColExportWeight = "exportWeight"
)

// CanonicalColumns is the full upload layout in file order.
var CanonicalColumns = []Column{
	{Name: ColProductID},
	{Name: ColStartDate, Optional: true},
	{Name: ColLandingDate},
	{Name: ColFaoArea},
	{Name: ColHighSeasArea, Optional: true},
	{Name: ColRfmoCode, Optional: true},
	{Name: ColEezCode, Optional: true},
	{Name: ColVesselPLN},
	{Name: ColGearCode, Optional: true},
	{Name: ColExportWeight},
}

// Layout names a recognised row shape.
type Layout int

const (
	LayoutMandatoryOnly Layout = iota
	LayoutMandatoryWithStartDate
	LayoutMandatoryWithGear
	LayoutAllButGear
	LayoutAllButStartDate
	LayoutFull
)

func (l Layout) String() string {
	switch l {
	case LayoutMandatoryOnly:
		return "mandatory-only"
	case LayoutMandatoryWithStartDate:
		return "mandatory+startDate"
	case LayoutMandatoryWithGear:
		return "mandatory+gearCode"
	case LayoutAllButGear:
		return "all-but-gearCode"
	case LayoutAllButStartDate:
		return "all-but-startDate"
	case LayoutFull:
		return "full"
	default:
		return "unknown"
	}
}

// Headers returns the column names a row with this layout carries, in order.
func (l Layout) Headers() []string {
	switch l {
	case LayoutMandatoryOnly:
		return columnNames(func(c Column) bool { return !c.Optional })
	case LayoutMandatoryWithStartDate:
		return columnNames(func(c Column) bool { return !c.Optional || c.Name == ColStartDate })
	case LayoutMandatoryWithGear:
		return columnNames(func(c Column) bool { return !c.Optional || c.Name == ColGearCode })
	case LayoutAllButGear:
		return columnNames(func(c Column) bool { return c.Name != ColGearCode })
	case LayoutAllButStartDate:
		return columnNames(func(c Column) bool { return c.Name != ColStartDate })
	default:
		return columnNames(func(Column) bool { return true })
	}
}

func columnNames(keep func(Column) bool) []string {
	var names []string
	for _, c := range CanonicalColumns {
		if keep(c) {
			names = append(names, c.Name)
		}
	}
	return names
}

func mandatoryCount() int {
	n := 0
	for _, c := range CanonicalColumns {
		if !c.Optional {
			n++
		}
	}
	return n
}

// landingDatePos is the landing-date index when startDate is present.
func landingDatePos() int {
	for i, c := range CanonicalColumns {
		if c.Name == ColLandingDate {
			return i
		}
	}
	return -1
}

func acceptedCellCounts() []int {
	m := mandatoryCount()
	all := len(CanonicalColumns)
	return []int{m, m + 1, all - 1, all}
}

var dateLike = regexp.MustCompile(`^\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}$`)

// looksLikeDate is the heuristic used to tell layouts of equal width apart.
func looksLikeDate(s string) bool {
	return dateLike.MatchString(strings.TrimSpace(s))
}

// inferLayout is the decision table for row shapes. Rows matching no
// branch are rejected here rather than falling through to the full layout.
func inferLayout(cells []string, row int) (Layout, error) {
	m := mandatoryCount()
	all := len(CanonicalColumns)
	pos := landingDatePos()
	dateAtLandingPos := pos >= 0 && pos < len(cells) && looksLikeDate(cells[pos])

	switch n := len(cells); {
	case n == m:
		return LayoutMandatoryOnly, nil
	case n == m+1 && dateAtLandingPos:
		return LayoutMandatoryWithStartDate, nil
	case n == m+1:
		return LayoutMandatoryWithGear, nil
	case n == all-1 && dateAtLandingPos:
		return LayoutAllButGear, nil
	case n == all-1:
		return LayoutAllButStartDate, nil
	case n == all:
		return LayoutFull, nil
	default:
		return 0, &Error{Kind: KindColumnMismatch, Row: row, Cells: n}
	}
}

// ParseLandingRows parses uploaded landings text into rows with empty
// error lists. It fails as a whole: either every row parses or none do.
func ParseLandingRows(text string, limits Limits) ([]UploadedLanding, error) {
	text = strings.TrimSpace(normalizeText(text))
	if text == "" {
		return nil, &Error{Kind: KindEmptyUpload}
	}

	lines := usableLines(text)
	if len(lines) == 0 {
		return nil, &Error{Kind: KindEmptyUpload}
	}
	if limits.Exceeds(len(lines)) {
		return nil, &Error{Kind: KindTooManyRows, Limit: limits.MaxLandings}
	}

	rows := make([]UploadedLanding, 0, len(lines))
	for i, line := range lines {
		rowNumber := i + 1

		cells, err := splitCells(line)
		if err != nil {
			return nil, &Error{Kind: KindMalformedCSV, Row: rowNumber, Err: err}
		}

		layout, err := inferLayout(cells, rowNumber)
		if err != nil {
			return nil, err
		}

		rows = append(rows, buildRow(rowNumber, line, layout.Headers(), cells))
	}

	return rows, nil
}

// usableLines splits text into upper-cased lines, dropping lines that hold
// nothing but commas and spaces.
func usableLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		stripped := strings.NewReplacer(",", "", " ", "").Replace(line)
		if stripped == "" {
			continue
		}
		lines = append(lines, strings.ToUpper(line))
	}
	return lines
}

func splitCells(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	record, err := r.Read()
	if err != nil {
		return nil, err
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	return record, nil
}

func buildRow(rowNumber int, line string, headers, cells []string) UploadedLanding {
	values := make(map[string]string, len(headers))
	for i, h := range headers {
		values[h] = cells[i]
	}
	return UploadedLanding{
		RowNumber:    rowNumber,
		OriginalRow:  line,
		ProductID:    values[ColProductID],
		StartDate:    values[ColStartDate],
		LandingDate:  values[ColLandingDate],
		FaoArea:      values[ColFaoArea],
		HighSeasArea: values[ColHighSeasArea],
		RfmoCode:     values[ColRfmoCode],
		EezCode:      values[ColEezCode],
		VesselPLN:    values[ColVesselPLN],
		GearCode:     values[ColGearCode],
		ExportWeight: values[ColExportWeight],
		Errors:       []ErrorEntry{},
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeText strips a UTF-8 BOM and replaces invalid UTF-8 sequences with
// the Unicode replacement character. Spreadsheet exports on Windows commonly
// carry both.
func normalizeText(text string) string {
	data := bytes.TrimPrefix([]byte(text), utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.WriteRune(r)
		}
		data = data[size:]
	}
	return buf.String()
}
