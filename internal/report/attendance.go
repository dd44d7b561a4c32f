// Package report renders printable summaries of ledger data.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"agriledger/internal/ledger"
	"agriledger/internal/model"
)

// AttendanceOptions controls what an attendance report contains.
type AttendanceOptions struct {
	Title       string
	Worker      string // empty means all workers
	GeneratedAt time.Time
}

// column widths in mm, A4 portrait with 15mm margins
var attendanceColumns = []struct {
	header string
	width  float64
	align  string
}{
	{"Date", 45, "L"},
	{"Worker", 75, "L"},
	{"Duration", 60, "L"},
}

// WriteAttendancePDF writes a table of records, newest first, followed by
// per-worker totals.
func WriteAttendancePDF(w io.Writer, records []model.AttendanceRecord, summaries []ledger.WorkerSummary, opts AttendanceOptions) error {
	rows := filterRecords(records, opts.Worker)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(title(opts), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, title(opts), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	subtitle := fmt.Sprintf("%d entries", len(rows))
	if !opts.GeneratedAt.IsZero() {
		subtitle += ", generated " + opts.GeneratedAt.Format("2006-01-02 15:04")
	}
	pdf.CellFormat(0, 6, subtitle, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	tableHeader(pdf)
	pdf.SetFont("Arial", "", 10)
	for i, r := range rows {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			tableHeader(pdf)
			pdf.SetFont("Arial", "", 10)
		}
		fill := i%2 == 1
		pdf.SetFillColor(240, 240, 240)
		cells := []string{r.Date.Format("2006-01-02"), r.WorkerName, r.Duration}
		for j, c := range attendanceColumns {
			pdf.CellFormat(c.width, 7, cells[j], "", 0, c.align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if totals := filterSummaries(summaries, opts.Worker); len(totals) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Totals", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, s := range totals {
			line := fmt.Sprintf("%s: %d full, %d half, %d overtime, %.1f hours",
				s.Worker, s.FullDays, s.HalfDays, s.Overtime, s.Hours)
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering attendance report: %w", err)
	}
	return nil
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 220, 200)
	for _, c := range attendanceColumns {
		pdf.CellFormat(c.width, 8, c.header, "B", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
}

func title(opts AttendanceOptions) string {
	t := opts.Title
	if t == "" {
		t = "Attendance Report"
	}
	if opts.Worker != "" {
		t += ": " + opts.Worker
	}
	return t
}

func filterRecords(records []model.AttendanceRecord, worker string) []model.AttendanceRecord {
	out := make([]model.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if worker == "" || r.WorkerName == worker {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func filterSummaries(summaries []ledger.WorkerSummary, worker string) []ledger.WorkerSummary {
	if worker == "" {
		return summaries
	}
	var out []ledger.WorkerSummary
	for _, s := range summaries {
		if s.Worker == worker {
			out = append(out, s)
		}
	}
	return out
}
