package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"agriledger/internal/model"
)

// PaymentInput is what the entry form collects for a new payment.
type PaymentInput struct {
	Amount       float64
	Type         string
	Category     string
	Date         time.Time // zero means now
	ImageSources []string
	AudioSources []string
}

// PaymentPatch holds the fields of an edit. Nil fields are left unchanged.
// Attachment slices replace the existing list when set.
type PaymentPatch struct {
	Amount       *float64
	Type         *string
	Category     *string
	Date         *time.Time
	ImageSources *[]string
	AudioSources *[]string
}

// PaymentFilter narrows ListPayments. Zero values match everything.
type PaymentFilter struct {
	Type     string
	Category string
	From     time.Time
	To       time.Time // exclusive
}

func (f PaymentFilter) match(p model.Payment) bool {
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && p.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !p.Date.Before(f.To) {
		return false
	}
	return true
}

// AddPayment validates the input, copies attachments into the media store
// and prepends the payment to the ledger.
func (s *LedgerService) AddPayment(ctx context.Context, in PaymentInput) (*model.Payment, error) {
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := s.checkTaxonomy(ctx, in.Type, in.Category); err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.clock.Now()
	}

	p := model.Payment{
		ID:        s.idgen.New(),
		Amount:    in.Amount,
		Type:      in.Type,
		Category:  in.Category,
		Date:      date,
		Images:    s.saveMedia(ctx, in.ImageSources),
		AudioURIs: s.saveMedia(ctx, in.AudioSources),
	}

	if _, err := NewCollection[model.Payment](s.documents, model.Payments).Prepend(ctx, p); err != nil {
		return nil, fmt.Errorf("saving payment: %w", err)
	}

	s.logger.Info("payment added", "id", p.ID, "type", p.Type, "category", p.Category, "attachments", len(p.Attachments()))
	return &p, nil
}

// ListPayments returns payments matching filter, newest first.
func (s *LedgerService) ListPayments(ctx context.Context, filter PaymentFilter) ([]model.Payment, error) {
	items, err := s.documents.GetCollection(ctx, model.Payments)
	if err != nil {
		return nil, fmt.Errorf("reading payments: %w", err)
	}

	var out []model.Payment
	for _, p := range decodeAll[model.Payment](s.logger, model.Payments, items) {
		if filter.match(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// GetPayment returns the payment with the given id.
func (s *LedgerService) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	items, err := s.documents.GetCollection(ctx, model.Payments)
	if err != nil {
		return nil, fmt.Errorf("reading payments: %w", err)
	}
	for _, raw := range items {
		if key, ok := model.ItemKey(raw, "id"); !ok || key != id {
			continue
		}
		var p model.Payment
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding payment %s: %w", id, err)
		}
		return &p, nil
	}
	return nil, fmt.Errorf("%w: payment %q", ErrNotFound, id)
}

// EditPayment applies patch to an existing payment and returns the result.
func (s *LedgerService) EditPayment(ctx context.Context, id string, patch PaymentPatch) (*model.Payment, error) {
	current, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return nil, err
		}
		fields["amount"] = *patch.Amount
	}

	typ, category := current.Type, current.Category
	if patch.Type != nil {
		typ = *patch.Type
		fields["type"] = typ
	}
	if patch.Category != nil {
		category = *patch.Category
		fields["category"] = category
	}
	if patch.Type != nil || patch.Category != nil {
		if err := s.checkTaxonomy(ctx, typ, category); err != nil {
			return nil, err
		}
	}

	if patch.Date != nil {
		fields["date"] = *patch.Date
	}
	if patch.ImageSources != nil {
		fields["images"] = s.saveMedia(ctx, *patch.ImageSources)
	}
	if patch.AudioSources != nil {
		fields["audioUris"] = s.saveMedia(ctx, *patch.AudioSources)
	}
	if len(fields) == 0 {
		return current, nil
	}

	if _, err := s.documents.UpdateByID(ctx, model.Payments, "id", id, fields); err != nil {
		return nil, fmt.Errorf("updating payment: %w", err)
	}
	s.logger.Info("payment updated", "id", id, "fields", len(fields))
	return s.GetPayment(ctx, id)
}

// DeletePayment removes a payment. Its media files stay in the media
// directory; nothing garbage-collects them.
func (s *LedgerService) DeletePayment(ctx context.Context, id string) error {
	if _, err := s.GetPayment(ctx, id); err != nil {
		return err
	}
	if _, err := s.documents.RemoveByID(ctx, model.Payments, "id", id); err != nil {
		return fmt.Errorf("deleting payment: %w", err)
	}
	s.logger.Info("payment deleted", "id", id)
	return nil
}

// PaymentAttachments returns the absolute paths of a payment's media.
func (s *LedgerService) PaymentAttachments(ctx context.Context, id string) ([]string, error) {
	p, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	refs := p.Attachments()
	paths := make([]string, 0, len(refs))
	for _, ref := range refs {
		paths = append(paths, s.media.Resolve(ref))
	}
	return paths, nil
}

// saveMedia copies each source into the media store. Sources that cannot
// be saved are logged and left out; the payment is still recorded.
func (s *LedgerService) saveMedia(ctx context.Context, sources []string) []string {
	ids := []string{}
	for _, src := range sources {
		id, err := s.media.Save(ctx, src)
		if err != nil {
			if errors.Is(err, ErrSourceNotFound) {
				s.logger.Warn("media source missing, skipping", "source", src)
			} else {
				s.logger.Error("saving media failed", "source", src, "error", err)
			}
			continue
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *LedgerService) checkTaxonomy(ctx context.Context, typ, category string) error {
	if typ == "" || category == "" {
		return fmt.Errorf("%w: payment type and category are required", ErrInvalidInput)
	}

	result := s.documents.Load(ctx)
	if result.Status == LoadFatal {
		return fmt.Errorf("loading document: %w", result.Err)
	}
	types, err := stringSet(result.Doc, model.PaymentTypes)
	if err != nil {
		return err
	}
	if !slices.Contains(types, typ) {
		return fmt.Errorf("%w: unknown payment type %q", ErrInvalidInput, typ)
	}
	categories, err := stringSet(result.Doc, model.PaymentCategories)
	if err != nil {
		return err
	}
	if !slices.Contains(categories, category) {
		return fmt.Errorf("%w: unknown payment category %q", ErrInvalidInput, category)
	}
	return nil
}

func validateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: amount must be a positive number", ErrInvalidInput)
	}
	return nil
}
