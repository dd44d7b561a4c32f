package ledger

import (
	"context"
	"fmt"
	"slices"

	"agriledger/internal/model"
)

// Taxonomy names one of the two user-editable payment lists.
type Taxonomy string

const (
	TaxonomyTypes      Taxonomy = model.PaymentTypes
	TaxonomyCategories Taxonomy = model.PaymentCategories
)

// ParseTaxonomy maps a CLI noun to a Taxonomy.
func ParseTaxonomy(s string) (Taxonomy, error) {
	switch s {
	case "type", "types", model.PaymentTypes:
		return TaxonomyTypes, nil
	case "category", "categories", model.PaymentCategories:
		return TaxonomyCategories, nil
	}
	return "", fmt.Errorf("%w: unknown taxonomy %q", ErrInvalidInput, s)
}

func (t Taxonomy) label() string {
	if t == TaxonomyTypes {
		return "payment type"
	}
	return "payment category"
}

// paymentField is the payment key that copies a value from this list.
func (t Taxonomy) paymentField() string {
	if t == TaxonomyTypes {
		return "type"
	}
	return "category"
}

// ListTaxonomy returns the entries of a taxonomy list in stored order.
func (s *LedgerService) ListTaxonomy(ctx context.Context, t Taxonomy) ([]string, error) {
	result := s.documents.Load(ctx)
	if result.Status == LoadFatal {
		return nil, fmt.Errorf("loading document: %w", result.Err)
	}
	return stringSet(result.Doc, string(t))
}

// AddTaxonomyEntry appends name to the list.
func (s *LedgerService) AddTaxonomyEntry(ctx context.Context, t Taxonomy, name string) ([]string, error) {
	name, err := cleanName(t.label(), name)
	if err != nil {
		return nil, err
	}

	var updated []string
	err = s.documents.Mutate(ctx, func(doc *model.Document) error {
		values, err := stringSet(doc, string(t))
		if err != nil {
			return err
		}
		if slices.Contains(values, name) {
			return fmt.Errorf("%w: %s %q", ErrDuplicate, t.label(), name)
		}
		updated = append(values, name)
		doc.SetStrings(string(t), updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("taxonomy entry added", "list", string(t), "name", name)
	return updated, nil
}

// RenameTaxonomyEntry renames an entry and rewrites every payment that
// copied the old name, in one write. It returns the number of payments
// changed.
func (s *LedgerService) RenameTaxonomyEntry(ctx context.Context, t Taxonomy, oldName, newName string) (int, error) {
	newName, err := cleanName(t.label(), newName)
	if err != nil {
		return 0, err
	}

	var changed int
	err = s.documents.Mutate(ctx, func(doc *model.Document) error {
		values, err := stringSet(doc, string(t))
		if err != nil {
			return err
		}
		renamed, err := renameInList(t.label(), values, oldName, newName)
		if err != nil {
			return err
		}
		payments, n, err := cascadeField(doc.Collection(model.Payments), t.paymentField(), oldName, newName)
		if err != nil {
			return err
		}
		doc.SetStrings(string(t), renamed)
		if n > 0 {
			doc.SetCollection(model.Payments, payments)
		}
		changed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("taxonomy entry renamed", "list", string(t), "from", oldName, "to", newName, "payments", changed)
	return changed, nil
}

// DeleteTaxonomyEntry removes an entry. Payments that still use it keep
// the dangling name unless reassignTo names another existing entry, in
// which case they are moved to it in the same write. It returns the number
// of payments reassigned.
func (s *LedgerService) DeleteTaxonomyEntry(ctx context.Context, t Taxonomy, name, reassignTo string) (int, error) {
	var changed int
	err := s.documents.Mutate(ctx, func(doc *model.Document) error {
		values, err := stringSet(doc, string(t))
		if err != nil {
			return err
		}
		idx := slices.Index(values, name)
		if idx < 0 {
			return fmt.Errorf("%w: %s %q", ErrNotFound, t.label(), name)
		}
		remaining := slices.Delete(slices.Clone(values), idx, idx+1)

		if reassignTo != "" {
			if reassignTo == name || !slices.Contains(remaining, reassignTo) {
				return fmt.Errorf("%w: cannot reassign to %s %q", ErrInvalidInput, t.label(), reassignTo)
			}
			payments, n, err := cascadeField(doc.Collection(model.Payments), t.paymentField(), name, reassignTo)
			if err != nil {
				return err
			}
			if n > 0 {
				doc.SetCollection(model.Payments, payments)
			}
			changed = n
		}
		doc.SetStrings(string(t), remaining)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("taxonomy entry deleted", "list", string(t), "name", name, "reassigned", changed)
	return changed, nil
}
