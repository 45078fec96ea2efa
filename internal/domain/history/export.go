package history

import (
	"context"
	"strings"
	"time"
)

// ExportContentType is the media type of generated files.
const ExportContentType = "text/csv; charset=utf-8"

const (
	csvDelimiter = ";"
	csvNewline   = "\n"
	csvBOM       = "\ufeff"
	placeholder  = "-"
	// dd/mm/yyyy, hh:mm as rendered by pt-BR short date and time styles.
	exportTimeLayout = "02/01/2006, 15:04"
)

var exportHeader = []string{
	"Data/hora do evento",
	"Cliente",
	"Veículo",
	"Chassi (últimos 8)",
	"DTC",
	"Descrição",
	"Status",
}

// Export is a generated CSV document.
type Export struct {
	Filename string
	Content  []byte
	Rows     int
}

// ExportArchive keeps a copy of generated exports and returns the key the
// copy was stored under.
type ExportArchive interface {
	Save(ctx context.Context, owner string, exp Export) (string, error)
}

// BuildExport serializes rows as a semicolon delimited, fully quoted CSV
// with a UTF-8 byte order mark. Timestamps are rendered in loc. It reports
// false and produces nothing when rows is empty.
func BuildExport(rows []EventRow, now time.Time, loc *time.Location) (Export, bool) {
	if len(rows) == 0 {
		return Export{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString(csvBOM)
	writeRecord(&b, exportHeader)
	for _, row := range rows {
		b.WriteString(csvNewline)
		writeRecord(&b, []string{
			FormatTimestamp(row.Timestamp, loc),
			deref(row.CustomerName),
			VehicleLabel(row),
			deref(row.ChassiLast8),
			deref(row.DTCCode),
			deref(row.DTCDescription),
			deref(row.Status),
		})
	}

	return Export{
		Filename: ExportFilename(now),
		Content:  []byte(b.String()),
		Rows:     len(rows),
	}, true
}

// ExportFilename embeds an ISO-8601 UTC timestamp with milliseconds.
func ExportFilename(now time.Time) string {
	return "historico-dtc-" + now.UTC().Format("2006-01-02T15:04:05.000Z") + ".csv"
}

// VehicleLabel prefers "plate • chassi", then whichever is present.
func VehicleLabel(row EventRow) string {
	plate, chassi := deref(row.Plate), deref(row.Chassi)
	switch {
	case plate != "" && chassi != "":
		return plate + " • " + chassi
	case plate != "":
		return plate
	case chassi != "":
		return chassi
	default:
		return placeholder
	}
}

// FormatTimestamp renders t in loc, or a dash when t is missing.
func FormatTimestamp(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return placeholder
	}
	return t.In(loc).Format(exportTimeLayout)
}

func writeRecord(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteString(csvDelimiter)
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
