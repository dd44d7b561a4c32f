package ledger

import (
	"encoding/json"
	"sort"

	"agriledger/internal/model"
)

// legacyWorkerLogs is the attendance collection name used by an earlier
// generation of the app.
const legacyWorkerLogs = "worker_logs"

// legacyTypeGroups are the sub-lists of the object-shaped payment_types
// written by the same generation, in the order they are flattened.
var legacyTypeGroups = []string{"expenses", "incomes"}

// NormalizeGeneration rewrites structures written by older app generations
// into the current shape, in place. It reports whether anything changed.
//
//   - payment_types as {"expenses": [...], "incomes": [...]} becomes a flat
//     string set (expenses first, then incomes, then any other group);
//   - worker_logs items are folded into attendance by id.
func NormalizeGeneration(doc *model.Document) bool {
	changed := false

	if raw, ok := doc.Extra[model.PaymentTypes]; ok {
		if flat, ok := flattenTypeGroups(raw); ok {
			doc.SetStrings(model.PaymentTypes, flat)
			changed = true
		}
	}

	if logs, ok := doc.Collections[legacyWorkerLogs]; ok {
		merged, _, _ := unionByKey(doc.Collection(model.Attendance), logs, "id", false)
		doc.SetCollection(model.Attendance, merged)
		delete(doc.Collections, legacyWorkerLogs)
		changed = true
	}

	return changed
}

func flattenTypeGroups(raw json.RawMessage) ([]string, bool) {
	var groups map[string][]string
	if err := json.Unmarshal(raw, &groups); err != nil || groups == nil {
		return nil, false
	}

	order := append([]string(nil), legacyTypeGroups...)
	var rest []string
	for name := range groups {
		if name != "expenses" && name != "incomes" {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	flat := []string{}
	seen := map[string]bool{}
	for _, name := range order {
		for _, v := range groups[name] {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			flat = append(flat, v)
		}
	}
	return flat, true
}
