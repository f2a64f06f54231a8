// Package sheet converts spreadsheets and CSV files into header-plus-rows
// tables and writes tables back out as CSV.
//
// CSV output is UTF-8 with a byte order mark so spreadsheet editors detect the
// encoding. CSV input tolerates the mark and falls back to Big5 when the bytes
// are not valid UTF-8.
package sheet
