package appointments

import (
	"bufio"
	"io"
	"strings"
	"time"
)

const csvHeader = "ID,Patient Name,Appointment Time,Status,Clinic,Triage Summary,Created At"

// WriteCSV renders export rows with every field quoted. Rows are separated
// by newlines with no trailing newline.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(csvHeader)
	for _, r := range rows {
		bw.WriteByte('\n')
		fields := []string{
			r.ID,
			r.PatientName,
			r.AppointmentTime.UTC().Format(time.RFC3339),
			string(r.Status),
			r.ClinicName,
			r.TriageSummary,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quoteField(f))
		}
	}
	return bw.Flush()
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
