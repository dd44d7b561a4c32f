package ledger

import (
	"encoding/json"

	"agriledger/internal/model"
)

// MergeStats counts what a merge took from the imported document.
type MergeStats struct {
	Added   map[string]int // collection -> items appended
	Skipped map[string]int // collection -> imported items already present or without identity
}

func newMergeStats() MergeStats {
	return MergeStats{Added: map[string]int{}, Skipped: map[string]int{}}
}

// TotalAdded sums Added across collections.
func (m MergeStats) TotalAdded() int {
	n := 0
	for _, v := range m.Added {
		n += v
	}
	return n
}

type mergeStrategy int

const (
	mergeByID mergeStrategy = iota
	mergeByValue
)

// strategies fixes how the known collections merge. Anything else is
// classified by content.
var strategies = map[string]mergeStrategy{
	model.PaymentTypes:      mergeByValue,
	model.PaymentCategories: mergeByValue,
	model.Workers:           mergeByValue,
	model.Payments:          mergeByID,
	model.Attendance:        mergeByID,
}

// MergeDocuments folds imported into live and returns a new document.
// Nothing in live is lost or rewritten: live items keep their
// position and imported items are appended after them.
//
//   - string collections are unioned by value and de-duplicated;
//   - object collections are unioned by "id", live wins on conflict, and
//     imported items without an id are skipped;
//   - live meta and non-collection keys win, imported-only keys are added.
func MergeDocuments(live, imported *model.Document) (*model.Document, MergeStats) {
	out := live.Clone()
	stats := newMergeStats()

	if out.Meta.IsZero() {
		out.Meta = imported.Meta
	}

	for _, name := range imported.CollectionNames() {
		if _, ok := out.Extra[name]; ok {
			// Live holds a non-array value under this key.
			stats.Skipped[name] += len(imported.Collection(name))
			continue
		}

		current := out.Collection(name)
		incoming := imported.Collection(name)

		var merged []json.RawMessage
		var added, skipped int
		switch strategyFor(name, current, incoming) {
		case mergeByValue:
			merged, added, skipped = unionByKey(current, incoming, "", true)
		default:
			merged, added, skipped = unionByKey(current, incoming, "id", false)
		}

		out.SetCollection(name, merged)
		if added > 0 {
			stats.Added[name] = added
		}
		if skipped > 0 {
			stats.Skipped[name] = skipped
		}
	}

	for key, raw := range imported.Extra {
		if !out.HasKey(key) {
			out.Extra[key] = append(json.RawMessage(nil), raw...)
		}
	}
	return out, stats
}

func strategyFor(name string, live, imported []json.RawMessage) mergeStrategy {
	if s, ok := strategies[name]; ok {
		return s
	}
	for _, items := range [][]json.RawMessage{live, imported} {
		for _, raw := range items {
			if model.KindOf(raw) != model.KindString {
				return mergeByID
			}
		}
	}
	return mergeByValue
}

// unionByKey appends incoming items whose key is not yet present. Live
// items keep their order, including ones without a usable key; with
// dedupeLive, repeated live keys collapse to their first occurrence.
func unionByKey(live, incoming []json.RawMessage, idField string, dedupeLive bool) (merged []json.RawMessage, added, skipped int) {
	merged = make([]json.RawMessage, 0, len(live)+len(incoming))
	seen := make(map[string]struct{}, len(live)+len(incoming))
	for _, raw := range live {
		key, ok := model.IdentityKey(raw, idField)
		if ok {
			if _, dup := seen[key]; dup && dedupeLive {
				continue
			}
			seen[key] = struct{}{}
		}
		merged = append(merged, raw)
	}
	for _, raw := range incoming {
		key, ok := model.IdentityKey(raw, idField)
		if !ok {
			skipped++
			continue
		}
		if _, dup := seen[key]; dup {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, raw)
		added++
	}
	return merged, added, skipped
}
