package ledger

import (
	"context"
	"fmt"
	"slices"

	"agriledger/internal/model"
)

// ListWorkers returns worker names in stored order.
func (s *LedgerService) ListWorkers(ctx context.Context) ([]string, error) {
	result := s.documents.Load(ctx)
	if result.Status == LoadFatal {
		return nil, fmt.Errorf("loading document: %w", result.Err)
	}
	return stringSet(result.Doc, model.Workers)
}

// AddWorker appends a worker name.
func (s *LedgerService) AddWorker(ctx context.Context, name string) ([]string, error) {
	name, err := cleanName("worker", name)
	if err != nil {
		return nil, err
	}

	var updated []string
	err = s.documents.Mutate(ctx, func(doc *model.Document) error {
		workers, err := stringSet(doc, model.Workers)
		if err != nil {
			return err
		}
		if slices.Contains(workers, name) {
			return fmt.Errorf("%w: worker %q", ErrDuplicate, name)
		}
		updated = append(workers, name)
		doc.SetStrings(model.Workers, updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("worker added", "name", name)
	return updated, nil
}

// RenameWorker renames a worker and rewrites the name copied into their
// attendance records. It returns the number of records changed.
func (s *LedgerService) RenameWorker(ctx context.Context, oldName, newName string) (int, error) {
	newName, err := cleanName("worker", newName)
	if err != nil {
		return 0, err
	}

	var changed int
	err = s.documents.Mutate(ctx, func(doc *model.Document) error {
		workers, err := stringSet(doc, model.Workers)
		if err != nil {
			return err
		}
		renamed, err := renameInList("worker", workers, oldName, newName)
		if err != nil {
			return err
		}
		records, n, err := cascadeField(doc.Collection(model.Attendance), "workerName", oldName, newName)
		if err != nil {
			return err
		}
		doc.SetStrings(model.Workers, renamed)
		if n > 0 {
			doc.SetCollection(model.Attendance, records)
		}
		changed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("worker renamed", "from", oldName, "to", newName, "records", changed)
	return changed, nil
}

// DeleteWorker removes a worker from the list. With purgeAttendance their
// attendance records are dropped in the same write; otherwise they stay
// behind under the old name. It returns the number of records dropped.
func (s *LedgerService) DeleteWorker(ctx context.Context, name string, purgeAttendance bool) (int, error) {
	var purged int
	err := s.documents.Mutate(ctx, func(doc *model.Document) error {
		workers, err := stringSet(doc, model.Workers)
		if err != nil {
			return err
		}
		idx := slices.Index(workers, name)
		if idx < 0 {
			return fmt.Errorf("%w: worker %q", ErrNotFound, name)
		}
		doc.SetStrings(model.Workers, slices.Delete(slices.Clone(workers), idx, idx+1))

		if purgeAttendance {
			records, n := dropMatching(doc.Collection(model.Attendance), "workerName", name)
			doc.SetCollection(model.Attendance, records)
			purged = n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("worker deleted", "name", name, "purged", purged)
	return purged, nil
}
