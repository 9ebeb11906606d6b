package metanote

import (
	"strconv"
)

// exportColumns is the fixed projection order. The first column is the
// file path, then the canonical fields in model order, then the file
// size; changing this order breaks downstream spreadsheets, so it is
// frozen.
var exportColumns = []string{
	"path",
	"title",
	"artist",
	"album",
	"year",
	"track",
	"genre",
	"comment",
	"lyrics",
	"fileSizeBytes",
}

// Columns returns the header row matching Project's column order.
func Columns() []string {
	cols := make([]string, len(exportColumns))
	copy(cols, exportColumns)
	return cols
}

// Project flattens records into rows for tabular export, one row per
// file in input order, columns as returned by Columns.
//
// Absent fields render as empty strings, never as a placeholder. Cell
// text is not escaped or quoted here: newlines and commas in free-text
// fields pass through verbatim, and proper CSV quoting is the job of
// encoding/csv in the caller.
func Project(files []*File) [][]string {
	rows := make([][]string, len(files))
	for i, file := range files {
		row := make([]string, 0, len(exportColumns))
		row = append(row, file.Path)
		for _, field := range Fields() {
			value, _ := file.Tags.Get(field)
			row = append(row, value)
		}
		row = append(row, strconv.FormatInt(file.Size, 10))
		rows[i] = row
	}
	return rows
}
