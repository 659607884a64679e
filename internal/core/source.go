package core

// source.go decodes uploaded spreadsheets into RawTables.
//
// Supported inputs:
//   - .xlsx / .xlsm workbooks (first sheet), read with excelize
//   - legacy .xls (BIFF8) workbooks (first sheet), read with extrame/xls;
//     cells arrive as formatted text and go through the same inference
//   - .csv files, with a UTF-8 BOM stripped and invalid UTF-8 replaced
//
// Files without a recognized extension are sniffed with mimetype. The first
// non-empty record is the header. Short rows are padded with nulls and cells
// beyond the header width are dropped.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SourceFormat identifies how a source file is decoded.
type SourceFormat string

const (
	FormatCSV  SourceFormat = "csv"
	FormatXLSX SourceFormat = "xlsx"
	FormatXLS  SourceFormat = "xls"
)

const (
	xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	xlsMIME  = "application/vnd.ms-excel"
	oleMIME  = "application/x-ole-storage"
)

// oleMagic opens every OLE2 compound file, the container of BIFF8 workbooks.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ErrEmptyFile is returned when a source has no header row.
var ErrEmptyFile = errors.New("empty file")

// Source is a named file supplied by the upload collaborator.
type Source struct {
	Name string
	Data []byte
}

// DetectFormat picks a decoder from the file extension, falling back to
// content sniffing when the extension is missing or unknown.
func DetectFormat(name string, data []byte) (SourceFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is(xlsxMIME):
		return FormatXLSX, nil
	case mt.Is(xlsMIME), mt.Is(oleMIME):
		return FormatXLS, nil
	case mt.Is("text/csv"), mt.Is("text/plain"):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported file type %q", mt.String())
	}
}

// ReadSource decodes a source file into a RawTable.
func ReadSource(src Source) (*RawTable, error) {
	format, err := DetectFormat(src.Name, src.Data)
	if err != nil {
		return nil, &PipelineError{Kind: KindRead, File: src.Name, Err: err}
	}

	var records [][]Cell
	switch format {
	case FormatXLSX:
		records, err = readXLSX(src.Data)
	case FormatXLS:
		records, err = readXLS(src.Data)
	default:
		records, err = readCSV(bytes.NewReader(src.Data))
	}
	if err != nil {
		return nil, &PipelineError{Kind: KindRead, File: src.Name, Err: err}
	}

	table, err := buildTable(records)
	if err != nil {
		return nil, &PipelineError{Kind: KindRead, File: src.Name, Err: err}
	}

	return &RawTable{Name: src.Name, Table: *table}, nil
}

// readCSV parses CSV data into text cells. The decoder strips a UTF-8 BOM and
// replaces invalid byte sequences with U+FFFD.
func readCSV(r io.Reader) ([][]Cell, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}

	out := make([][]Cell, len(records))
	for i, rec := range records {
		row := make([]Cell, len(rec))
		for j, v := range rec {
			row[j] = TextCell(v)
		}
		out[i] = row
	}
	return out, nil
}

// readXLSX reads the first sheet of a workbook. Values are read raw so that
// numbers keep full precision; numeric cells with a date number format become
// time cells.
func readXLSX(data []byte) ([][]Cell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	dateStyles := make(map[int]bool)
	isDateStyle := func(cell string) bool {
		styleID, err := f.GetCellStyle(sheet, cell)
		if err != nil {
			return false
		}
		if v, ok := dateStyles[styleID]; ok {
			return v
		}
		style, err := f.GetStyle(styleID)
		v := err == nil && isDateNumFmt(style.NumFmt, style.CustomNumFmt)
		dateStyles[styleID] = v
		return v
	}

	out := make([][]Cell, len(rows))
	for r, row := range rows {
		cells := make([]Cell, len(row))
		for c, v := range row {
			cells[c] = TextCell(v)
			if v == "" {
				cells[c] = NullCell()
				continue
			}
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil || !isDateStyle(name) {
				continue
			}
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				cells[c] = TimeCell(t)
			}
		}
		out[r] = cells
	}
	return out, nil
}

// readXLS reads the first sheet of a BIFF8 workbook. The decoder panics on
// some malformed files, so panics are turned into read errors.
func readXLS(data []byte) (records [][]Cell, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("open workbook: malformed xls: %v", r)
		}
	}()

	if !bytes.HasPrefix(data, oleMagic) {
		return nil, errors.New("open workbook: not an OLE2 compound file")
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrEmptyFile
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyFile
	}

	rows := make([][]string, int(sheet.MaxRow)+1)
	for i := range rows {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		values := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			values[c] = row.Col(c)
		}
		rows[i] = values
	}
	return xlsRecords(rows), nil
}

// xlsRecords converts formatted sheet text into cells; blank values are null.
func xlsRecords(rows [][]string) [][]Cell {
	out := make([][]Cell, len(rows))
	for r, row := range rows {
		cells := make([]Cell, len(row))
		for c, v := range row {
			if v == "" {
				cells[c] = NullCell()
				continue
			}
			cells[c] = TextCell(v)
		}
		out[r] = cells
	}
	return out
}

// isDateNumFmt reports whether an Excel number format renders dates or times.
func isDateNumFmt(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return customFormatHasDate(*custom)
	}
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// customFormatHasDate looks for date/time tokens outside quoted literals and
// bracketed sections such as colors.
func customFormatHasDate(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(b.String(), "ydhs")
}

// buildTable turns records into columns. The first non-empty record is the
// header; empty cells in it keep their position so column counts line up.
func buildTable(records [][]Cell) (*Table, error) {
	start := -1
	for i, rec := range records {
		if !isEmptyRecord(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrEmptyFile
	}

	header := records[start]
	data := records[start+1:]

	table := &Table{Columns: make([]Column, len(header))}
	for j, h := range header {
		name := ""
		if h.Kind != CellNull {
			name = h.String()
		}
		cells := make([]Cell, len(data))
		for i, rec := range data {
			if j < len(rec) {
				cells[i] = rec[j]
			} else {
				cells[i] = NullCell()
			}
		}
		table.Columns[j] = inferColumn(Column{Header: name, Cells: cells})
	}

	return table, nil
}

func isEmptyRecord(rec []Cell) bool {
	for _, c := range rec {
		if !isNullCell(c) {
			return false
		}
	}
	return true
}

// inferColumn assigns a declared type. A column whose non-null values are all
// times is TypeDateTime; all decimals is TypeNumber and its cells are parsed
// but keep their source text.
// Mixed columns are text, with stray time cells rendered as naive timestamps so
// that detection can still sample them.
func inferColumn(col Column) Column {
	var nonNull, times, numbers int
	for _, c := range col.Cells {
		if isNullCell(c) {
			continue
		}
		nonNull++
		switch c.Kind {
		case CellTime:
			times++
		case CellText:
			if _, err := decimal.NewFromString(strings.TrimSpace(c.Text)); err == nil {
				numbers++
			}
		}
	}

	switch {
	case nonNull == 0:
		col.Type = TypeText
	case times == nonNull:
		col.Type = TypeDateTime
	case numbers == nonNull:
		col.Type = TypeNumber
		for i, c := range col.Cells {
			if isNullCell(c) {
				continue
			}
			col.Cells[i] = ParsedNumberCell(decimal.RequireFromString(strings.TrimSpace(c.Text)), c.Text)
		}
	default:
		col.Type = TypeText
		for i, c := range col.Cells {
			if c.Kind == CellTime {
				col.Cells[i] = TextCell(c.Time.Format("2006-01-02 15:04:05"))
			}
		}
	}

	return col
}
