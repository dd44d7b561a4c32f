package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"agriledger/internal/model"
)

// AttendanceInput is one entry of the attendance form.
type AttendanceInput struct {
	Worker   string
	Duration string
	Date     time.Time // zero means now
}

// WorkerSummary aggregates a worker's attendance records.
type WorkerSummary struct {
	Worker    string
	Entries   int
	FullDays  int
	HalfDays  int
	Overtime  int
	Hours     float64
	LastEntry time.Time
}

// LogAttendance records a day's presence for an existing worker.
func (s *LedgerService) LogAttendance(ctx context.Context, in AttendanceInput) (*model.AttendanceRecord, error) {
	if strings.TrimSpace(in.Duration) == "" {
		return nil, fmt.Errorf("%w: duration is required", ErrInvalidInput)
	}
	workers, err := s.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(workers, in.Worker) {
		return nil, fmt.Errorf("%w: worker %q", ErrNotFound, in.Worker)
	}

	date := in.Date
	if date.IsZero() {
		date = s.clock.Now()
	}
	record := model.AttendanceRecord{
		ID:         s.idgen.New(),
		WorkerName: in.Worker,
		Duration:   in.Duration,
		Date:       date,
	}

	if _, err := NewCollection[model.AttendanceRecord](s.documents, model.Attendance).Prepend(ctx, record); err != nil {
		return nil, fmt.Errorf("saving attendance record: %w", err)
	}
	s.logger.Info("attendance logged", "id", record.ID, "worker", record.WorkerName, "duration", record.Duration)
	return &record, nil
}

// ListAttendance returns attendance records, newest first. An empty worker
// lists everyone.
func (s *LedgerService) ListAttendance(ctx context.Context, worker string) ([]model.AttendanceRecord, error) {
	items, err := s.documents.GetCollection(ctx, model.Attendance)
	if err != nil {
		return nil, fmt.Errorf("reading attendance: %w", err)
	}

	var out []model.AttendanceRecord
	for _, r := range decodeAll[model.AttendanceRecord](s.logger, model.Attendance, items) {
		if worker == "" || r.WorkerName == worker {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// DeleteAttendance removes a single record.
func (s *LedgerService) DeleteAttendance(ctx context.Context, id string) error {
	items, err := s.documents.GetCollection(ctx, model.Attendance)
	if err != nil {
		return fmt.Errorf("reading attendance: %w", err)
	}
	if !containsID(items, id) {
		return fmt.Errorf("%w: attendance record %q", ErrNotFound, id)
	}
	if _, err := s.documents.RemoveByID(ctx, model.Attendance, "id", id); err != nil {
		return fmt.Errorf("deleting attendance record: %w", err)
	}
	s.logger.Info("attendance deleted", "id", id)
	return nil
}

// ClearWorkerAttendance drops every record of a worker and returns how many
// were removed. The worker stays in the worker list.
func (s *LedgerService) ClearWorkerAttendance(ctx context.Context, worker string) (int, error) {
	var removed int
	err := s.documents.Mutate(ctx, func(doc *model.Document) error {
		records, n := dropMatching(doc.Collection(model.Attendance), "workerName", worker)
		if n == 0 {
			return errNoChange
		}
		doc.SetCollection(model.Attendance, records)
		removed = n
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return 0, fmt.Errorf("clearing attendance: %w", err)
	}
	s.logger.Info("attendance cleared", "worker", worker, "removed", removed)
	return removed, nil
}

// AttendanceSummary aggregates records per worker name, sorted by name.
// Names come from the records, so workers that were deleted without a
// purge still show up.
func (s *LedgerService) AttendanceSummary(ctx context.Context) ([]WorkerSummary, error) {
	records, err := s.ListAttendance(ctx, "")
	if err != nil {
		return nil, err
	}

	byWorker := map[string]*WorkerSummary{}
	for _, r := range records {
		sum, ok := byWorker[r.WorkerName]
		if !ok {
			sum = &WorkerSummary{Worker: r.WorkerName}
			byWorker[r.WorkerName] = sum
		}
		sum.Entries++
		sum.Hours += r.Hours()
		switch {
		case r.Duration == model.DurationFullDay:
			sum.FullDays++
		case r.Duration == model.DurationHalfDay:
			sum.HalfDays++
		case r.IsOvertime():
			sum.Overtime++
		}
		if r.Date.After(sum.LastEntry) {
			sum.LastEntry = r.Date
		}
	}

	out := make([]WorkerSummary, 0, len(byWorker))
	for _, sum := range byWorker {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Worker < out[j].Worker })
	return out, nil
}
