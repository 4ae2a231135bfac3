package core

import (
	"strings"
	"unicode"
)

// RecordTimeLayout renders record timestamps in formatted lines.
// The line format is the literal text handed to the embedding provider,
// so this layout must stay stable across releases.
const RecordTimeLayout = "2006-01-02 15:04:05"

// Substitutes for absent optional record fields in formatted lines.
const (
	UnknownSource = "Unknown Source"
	UnknownDevice = "Unknown Device"
)

// healthTypePrefixes are the known category prefixes stripped from raw
// metric identifiers before human-readable formatting.
var healthTypePrefixes = []string{
	"HKQuantityTypeIdentifier",
	"HKCategoryTypeIdentifier",
	"HKCorrelationTypeIdentifier",
	"HKClinicalTypeIdentifier",
	"HKCharacteristicTypeIdentifier",
	"HKWorkoutTypeIdentifier",
	"HKDataType",
}

// FormatHealthType converts a raw metric identifier into a human-readable
// name: the known category prefix is stripped, a space is inserted before
// each internal capital letter, and the result is trimmed and lowercased.
//
// "HKQuantityTypeIdentifierHeartRate" becomes "heart rate".
func FormatHealthType(metricType string) string {
	name := metricType
	for _, prefix := range healthTypePrefixes {
		if strings.HasPrefix(name, prefix) {
			name = strings.TrimPrefix(name, prefix)
			break
		}
	}

	var b strings.Builder
	b.Grow(len(name) + 8)
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}

	return strings.ToLower(strings.TrimSpace(b.String()))
}

// FormatRecord renders a record as a single line:
//
//	"<type>: <value> <unit> recorded from <start> to <end> via <source> on <device>"
//
// Absent optional fields are substituted with "Unknown Source" and
// "Unknown Device". When the record carried no explicit end date the
// trailing "on <device>" clause is omitted.
//
// This exact format is both the human display form and the embedding
// input, so changes here directly affect retrieval quality.
func FormatRecord(record *Record) string {
	var b strings.Builder

	b.WriteString(FormatHealthType(record.MetricType))
	b.WriteString(": ")
	b.WriteString(record.Value)
	if record.Unit != "" {
		b.WriteString(" ")
		b.WriteString(record.Unit)
	}

	b.WriteString(" recorded from ")
	b.WriteString(record.StartDate.Format(RecordTimeLayout))
	b.WriteString(" to ")
	b.WriteString(record.EndDate.Format(RecordTimeLayout))

	source := record.SourceName
	if source == "" {
		source = UnknownSource
	}
	b.WriteString(" via ")
	b.WriteString(source)

	if record.HasEndDate {
		device := record.Device
		if device == "" {
			device = UnknownDevice
		}
		b.WriteString(" on ")
		b.WriteString(device)
	}

	return b.String()
}

// FormatChunk renders a chunk as newline-joined record lines. The result
// is the text submitted to the embedding provider for this chunk.
func FormatChunk(chunk *Chunk) string {
	lines := make([]string, len(chunk.Records))
	for i := range chunk.Records {
		lines[i] = FormatRecord(&chunk.Records[i])
	}
	return strings.Join(lines, "\n")
}
