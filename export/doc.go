// Package export parses Apple-Health-style XML export files into ordered
// record sequences.
//
// Parsing is streaming and tolerant of individually broken records, which
// are skipped with a logged warning; structural problems fail the whole
// parse with a typed error.
package export
