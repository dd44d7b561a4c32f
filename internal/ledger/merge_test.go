package ledger_test

import (
	"encoding/json"
	"slices"
	"testing"

	"agriledger/internal/ledger"
	"agriledger/internal/model"
)

func parseDoc(t *testing.T, content string) *model.Document {
	t.Helper()
	var doc model.Document
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	return &doc
}

func ids(t *testing.T, doc *model.Document, name string) []string {
	t.Helper()
	var out []string
	for _, raw := range doc.Collection(name) {
		key, ok := model.ItemKey(raw, "id")
		if !ok {
			t.Fatalf("%s item without id: %s", name, raw)
		}
		out = append(out, key)
	}
	return out
}

func amountOf(t *testing.T, doc *model.Document, id string) float64 {
	t.Helper()
	payments, err := model.DecodeItems[model.Payment](doc.Collection(model.Payments))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range payments {
		if p.ID == id {
			return p.Amount
		}
	}
	t.Fatalf("payment %s not found", id)
	return 0
}

func TestMergeDocuments_LocalWins(t *testing.T) {
	live := parseDoc(t, `{"payment_types":["General"],"payments":[{"id":"A","amount":50}]}`)
	imported := parseDoc(t, `{"payment_types":["General"],"payments":[{"id":"A","amount":999},{"id":"B","amount":10}]}`)

	merged, stats := ledger.MergeDocuments(live, imported)

	if got := ids(t, merged, model.Payments); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("payments = %v, want [A B]", got)
	}
	if a := amountOf(t, merged, "A"); a != 50 {
		t.Errorf("A amount = %v, want 50 (local wins)", a)
	}
	if b := amountOf(t, merged, "B"); b != 10 {
		t.Errorf("B amount = %v, want 10", b)
	}
	if stats.Added[model.Payments] != 1 || stats.Skipped[model.Payments] != 1 {
		t.Errorf("stats = %+v, want 1 added 1 skipped", stats)
	}
	if len(live.Collection(model.Payments)) != 1 {
		t.Error("MergeDocuments modified its input")
	}
}

func TestMergeDocuments_NumericAndStringIDsAreDistinct(t *testing.T) {
	live := parseDoc(t, `{"payment_types":["General"],"attendance":[{"id":1,"workerName":"Ravi"}]}`)
	imported := parseDoc(t, `{"payment_types":["General"],"attendance":[{"id":"1","workerName":"Asha"},{"id":1,"workerName":"Asha"}]}`)

	merged, stats := ledger.MergeDocuments(live, imported)

	if got := len(merged.Collection(model.Attendance)); got != 2 {
		t.Fatalf("attendance = %d items, want 2", got)
	}
	if stats.Added[model.Attendance] != 1 || stats.Skipped[model.Attendance] != 1 {
		t.Errorf("stats = %+v, want 1 added 1 skipped", stats)
	}
}

func TestMergeDocuments_StringSets(t *testing.T) {
	live := parseDoc(t, `{"payment_types":["General","Expense"],"workers":["Ravi","Ravi"],"payment_categories":["Seeds"]}`)
	imported := parseDoc(t, `{"payment_types":["Income","General"],"workers":["Asha"],"payment_categories":["Seeds","Labor"]}`)

	merged, stats := ledger.MergeDocuments(live, imported)

	tests := []struct {
		name string
		want []string
	}{
		{model.PaymentTypes, []string{"General", "Expense", "Income"}},
		{model.Workers, []string{"Ravi", "Asha"}},
		{model.PaymentCategories, []string{"Seeds", "Labor"}},
	}
	for _, tt := range tests {
		got, err := merged.Strings(tt.name)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
	if stats.TotalAdded() != 3 {
		t.Errorf("TotalAdded() = %d, want 3", stats.TotalAdded())
	}
}

func TestMergeDocuments_ItemsWithoutID(t *testing.T) {
	live := parseDoc(t, `{"payment_types":[],"attendance":[{"workerName":"local-no-id"}]}`)
	imported := parseDoc(t, `{"payment_types":[],"attendance":[{"workerName":"x"},{"id":"","workerName":"y"},{"id":"r1","workerName":"z"}]}`)

	merged, stats := ledger.MergeDocuments(live, imported)
	items := merged.Collection(model.Attendance)
	if len(items) != 2 {
		t.Fatalf("attendance = %d items, want local item kept plus r1", len(items))
	}
	if key, _ := model.ItemKey(items[1], "id"); key != "r1" {
		t.Errorf("appended item = %s, want r1", items[1])
	}
	if stats.Skipped[model.Attendance] != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped[model.Attendance])
	}
}

func TestMergeDocuments_ExtraAndMeta(t *testing.T) {
	live := parseDoc(t, `{"meta":{"version":1,"created_at":"2024-01-01T00:00:00Z"},"payment_types":[],"settings":{"theme":"dark"}}`)
	imported := parseDoc(t, `{"meta":{"version":1,"created_at":"2020-01-01T00:00:00Z"},"payment_types":[],"settings":{"theme":"light"},"pin":"1234","crops":[{"id":"c1"}]}`)

	merged, _ := ledger.MergeDocuments(live, imported)

	if got := merged.Meta.CreatedAt.Year(); got != 2024 {
		t.Errorf("meta created_at year = %d, want live 2024", got)
	}
	if string(merged.Extra["settings"]) != `{"theme":"dark"}` {
		t.Errorf("settings = %s, want live value", merged.Extra["settings"])
	}
	if string(merged.Extra["pin"]) != `"1234"` {
		t.Errorf("imported-only key not added: %v", merged.Extra)
	}
	if got := ids(t, merged, "crops"); !slices.Equal(got, []string{"c1"}) {
		t.Errorf("unknown collection = %v, want [c1]", got)
	}

	t.Run("imported meta fills an absent one", func(t *testing.T) {
		bare := parseDoc(t, `{"payment_types":[]}`)
		merged, _ := ledger.MergeDocuments(bare, imported)
		if merged.Meta.CreatedAt.Year() != 2020 {
			t.Errorf("meta = %+v, want imported meta", merged.Meta)
		}
	})
}

func TestMergeDocuments_Properties(t *testing.T) {
	base := `{"payment_types":["General"],"payments":[{"id":"L1","amount":1},{"id":"L2","amount":2}],"workers":["Ravi"]}`

	t.Run("self merge is a no-op", func(t *testing.T) {
		live := parseDoc(t, base)
		merged, stats := ledger.MergeDocuments(live, parseDoc(t, base))
		if stats.TotalAdded() != 0 {
			t.Errorf("TotalAdded() = %d, want 0", stats.TotalAdded())
		}
		if got := ids(t, merged, model.Payments); !slices.Equal(got, []string{"L1", "L2"}) {
			t.Errorf("payments = %v", got)
		}
	})

	t.Run("never drops local data", func(t *testing.T) {
		live := parseDoc(t, base)
		merged, _ := ledger.MergeDocuments(live, parseDoc(t, `{"payment_types":[],"payments":[]}`))
		for _, name := range live.CollectionNames() {
			if len(merged.Collection(name)) < len(live.Collection(name)) {
				t.Errorf("%s shrank from %d to %d", name, len(live.Collection(name)), len(merged.Collection(name)))
			}
		}
	})

	t.Run("commutative on disjoint ids", func(t *testing.T) {
		a := `{"payment_types":["General"],"payments":[{"id":"a1"},{"id":"a2"}]}`
		b := `{"payment_types":["General"],"payments":[{"id":"b1"}]}`
		ab, _ := ledger.MergeDocuments(parseDoc(t, a), parseDoc(t, b))
		ba, _ := ledger.MergeDocuments(parseDoc(t, b), parseDoc(t, a))

		gotAB := ids(t, ab, model.Payments)
		gotBA := ids(t, ba, model.Payments)
		slices.Sort(gotAB)
		slices.Sort(gotBA)
		if !slices.Equal(gotAB, gotBA) {
			t.Errorf("merge(a,b) ids = %v, merge(b,a) ids = %v", gotAB, gotBA)
		}
	})
}

func TestNormalizeGeneration(t *testing.T) {
	t.Run("flattens grouped payment types", func(t *testing.T) {
		doc := parseDoc(t, `{"payment_types":{"incomes":["Sale","General"],"expenses":["General","Seeds"],"loans":["Bank"]}}`)
		if !ledger.NormalizeGeneration(doc) {
			t.Fatal("NormalizeGeneration() = false, want true")
		}
		got, err := doc.Strings(model.PaymentTypes)
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{"General", "Seeds", "Sale", "Bank"}; !slices.Equal(got, want) {
			t.Errorf("payment_types = %v, want %v", got, want)
		}
		if _, ok := doc.Extra[model.PaymentTypes]; ok {
			t.Error("object form left in Extra")
		}
	})

	t.Run("folds worker_logs into attendance", func(t *testing.T) {
		doc := parseDoc(t, `{"payment_types":[],"attendance":[{"id":"r1"}],"worker_logs":[{"id":"r1"},{"id":"r2"}]}`)
		if !ledger.NormalizeGeneration(doc) {
			t.Fatal("NormalizeGeneration() = false, want true")
		}
		if got := ids(t, doc, model.Attendance); !slices.Equal(got, []string{"r1", "r2"}) {
			t.Errorf("attendance = %v, want [r1 r2]", got)
		}
		if doc.HasKey("worker_logs") {
			t.Error("worker_logs not removed")
		}
	})

	t.Run("current shape untouched", func(t *testing.T) {
		doc := parseDoc(t, `{"payment_types":["General"],"attendance":[]}`)
		if ledger.NormalizeGeneration(doc) {
			t.Error("NormalizeGeneration() = true for a current document")
		}
	})
}
