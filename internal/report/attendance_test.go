package report

import (
	"bytes"
	"testing"
	"time"

	"agriledger/internal/ledger"
	"agriledger/internal/model"
)

func testRecords() []model.AttendanceRecord {
	day := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	return []model.AttendanceRecord{
		{ID: "1", WorkerName: "Ravi", Duration: model.DurationFullDay, Date: day},
		{ID: "2", WorkerName: "Asha", Duration: model.DurationHalfDay, Date: day.AddDate(0, 0, 1)},
		{ID: "3", WorkerName: "Ravi", Duration: "Overtime (+2h)", Date: day.AddDate(0, 0, 2)},
	}
}

func TestWriteAttendancePDF(t *testing.T) {
	summaries := []ledger.WorkerSummary{
		{Worker: "Asha", Entries: 1, HalfDays: 1, Hours: 4},
		{Worker: "Ravi", Entries: 2, FullDays: 1, Overtime: 1, Hours: 10},
	}

	tests := []struct {
		name    string
		records []model.AttendanceRecord
		opts    AttendanceOptions
	}{
		{"all workers", testRecords(), AttendanceOptions{GeneratedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)}},
		{"one worker", testRecords(), AttendanceOptions{Worker: "Ravi"}},
		{"empty", nil, AttendanceOptions{Title: "January"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteAttendancePDF(&buf, tt.records, summaries, tt.opts); err != nil {
				t.Fatalf("WriteAttendancePDF() error = %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
				t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:min(8, buf.Len())])
			}
		})
	}
}

func TestFilterRecords(t *testing.T) {
	got := filterRecords(testRecords(), "Ravi")
	if len(got) != 2 {
		t.Fatalf("filterRecords() = %d records, want 2", len(got))
	}
	if got[0].ID != "3" || got[1].ID != "1" {
		t.Errorf("filterRecords() order = %s,%s, want newest first", got[0].ID, got[1].ID)
	}

	if all := filterRecords(testRecords(), ""); len(all) != 3 || all[0].ID != "3" {
		t.Errorf("filterRecords(all) = %+v", all)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		opts AttendanceOptions
		want string
	}{
		{AttendanceOptions{}, "Attendance Report"},
		{AttendanceOptions{Worker: "Asha"}, "Attendance Report: Asha"},
		{AttendanceOptions{Title: "January", Worker: "Asha"}, "January: Asha"},
	}
	for _, tt := range tests {
		if got := title(tt.opts); got != tt.want {
			t.Errorf("title(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}
