package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Document is the root object persisted as db.json.
//
// Every top-level array is a collection. Any other key except "meta" is
// kept verbatim in Extra so that keys written by other app generations
// survive a load/save cycle.
type Document struct {
	Meta        Meta
	Collections map[string][]json.RawMessage
	Extra       map[string]json.RawMessage
}

// NewDocument returns an empty document with the given meta.
func NewDocument(meta Meta) *Document {
	return &Document{
		Meta:        meta,
		Collections: make(map[string][]json.RawMessage),
		Extra:       make(map[string]json.RawMessage),
	}
}

// DefaultDocument returns the document written on first start: empty
// collections, the seeded taxonomy and a fresh meta stamp.
func DefaultDocument(now time.Time, seed Seed) *Document {
	doc := NewDocument(Meta{Version: SchemaVersion, CreatedAt: now.UTC()})
	doc.SetStrings(PaymentTypes, seed.PaymentTypes)
	doc.SetStrings(PaymentCategories, seed.PaymentCategories)
	doc.Collections[Payments] = []json.RawMessage{}
	doc.Collections[Workers] = []json.RawMessage{}
	doc.Collections[Attendance] = []json.RawMessage{}
	return doc
}

// Collection returns the named collection; an absent key is an empty one.
func (d *Document) Collection(name string) []json.RawMessage {
	if d.Collections == nil {
		return []json.RawMessage{}
	}
	items, ok := d.Collections[name]
	if !ok || items == nil {
		return []json.RawMessage{}
	}
	return items
}

// HasKey reports whether the document carries the top-level key at all,
// as a collection or otherwise.
func (d *Document) HasKey(name string) bool {
	if _, ok := d.Collections[name]; ok {
		return true
	}
	_, ok := d.Extra[name]
	return ok
}

// SetCollection replaces the named collection.
func (d *Document) SetCollection(name string, items []json.RawMessage) {
	if d.Collections == nil {
		d.Collections = make(map[string][]json.RawMessage)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	delete(d.Extra, name)
	d.Collections[name] = items
}

// Strings decodes a collection of plain strings.
func (d *Document) Strings(name string) ([]string, error) {
	return DecodeItems[string](d.Collection(name))
}

// SetStrings replaces a string collection.
func (d *Document) SetStrings(name string, values []string) {
	items, _ := EncodeItems(values)
	d.SetCollection(name, items)
}

// CollectionNames returns the collection keys in sorted order.
func (d *Document) CollectionNames() []string {
	names := make([]string, 0, len(d.Collections))
	for name := range d.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := NewDocument(d.Meta)
	for name, items := range d.Collections {
		cp := make([]json.RawMessage, len(items))
		for i, item := range items {
			cp[i] = append(json.RawMessage(nil), item...)
		}
		out.Collections[name] = cp
	}
	for key, raw := range d.Extra {
		out.Extra[key] = append(json.RawMessage(nil), raw...)
	}
	return out
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}
	if root == nil {
		return fmt.Errorf("document root is not an object")
	}

	*d = *NewDocument(Meta{})
	for key, raw := range root {
		if key == "meta" {
			if err := json.Unmarshal(raw, &d.Meta); err != nil {
				return fmt.Errorf("decoding meta: %w", err)
			}
			continue
		}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(trimmed, &items); err != nil {
				return fmt.Errorf("decoding collection %s: %w", key, err)
			}
			if items == nil {
				items = []json.RawMessage{}
			}
			d.Collections[key] = items
			continue
		}
		d.Extra[key] = raw
	}
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	root := make(map[string]any, len(d.Collections)+len(d.Extra)+1)
	for key, raw := range d.Extra {
		root[key] = raw
	}
	for name, items := range d.Collections {
		if items == nil {
			items = []json.RawMessage{}
		}
		root[name] = items
	}
	if !d.Meta.IsZero() {
		root["meta"] = d.Meta
	}
	return json.Marshal(root)
}

// DecodeItems decodes every item of a collection into T.
func DecodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeItems encodes values as collection items.
func EncodeItems[T any](values []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(values))
	for i, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding item %d: %w", i, err)
		}
		out = append(out, raw)
	}
	return out, nil
}
