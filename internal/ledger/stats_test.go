package ledger_test

import (
	"context"
	"testing"
	"time"

	"agriledger/internal/ledger"
	"agriledger/internal/model"
	"agriledger/internal/testutil"
)

func TestPeriod_Bounds(t *testing.T) {
	at := time.Date(2024, 3, 15, 17, 45, 0, 0, time.UTC)

	tests := []struct {
		period    ledger.Period
		wantStart time.Time
		wantEnd   time.Time
	}{
		{ledger.PeriodDay, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)},
		{ledger.PeriodMonth, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{ledger.PeriodYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			start, end := tt.period.Bounds(at)
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("Bounds() = [%v, %v), want [%v, %v)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"day", "month", "year"} {
		if _, err := ledger.ParsePeriod(s); err != nil {
			t.Errorf("ParsePeriod(%q) error = %v", s, err)
		}
	}
	if _, err := ledger.ParsePeriod("week"); err == nil {
		t.Error("ParsePeriod(week) expected error")
	}
}

func TestLedgerService_ExpenseSummary(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, testutil.WithSeed(model.Seed{
		PaymentTypes:      []string{"Expense", "Income"},
		PaymentCategories: []string{"Seeds", "Labor", "Fuel"},
	}))
	svc := env.Service
	now := env.Clock.Now() // 2024-01-15

	inputs := []ledger.PaymentInput{
		{Amount: 0.1, Type: "Expense", Category: "Seeds", Date: now},
		{Amount: 0.2, Type: "Expense", Category: "Seeds", Date: now.AddDate(0, 0, -3)},
		{Amount: 5, Type: "Expense", Category: "Labor", Date: now.AddDate(0, 0, -1)},
		{Amount: 100, Type: "Income", Category: "Seeds", Date: now},
		{Amount: 50, Type: "Expense", Category: "Fuel", Date: now.AddDate(0, -1, 0)},
	}
	for _, in := range inputs {
		if _, err := svc.AddPayment(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("month", func(t *testing.T) {
		sum, err := svc.ExpenseSummary(ctx, ledger.PeriodMonth, "")
		if err != nil {
			t.Fatalf("ExpenseSummary() error = %v", err)
		}
		if sum.Type != ledger.DefaultSummaryType || sum.Count != 3 {
			t.Errorf("summary = type %q count %d, want Expense 3", sum.Type, sum.Count)
		}
		if got := sum.Total.String(); got != "5.3" {
			t.Errorf("Total = %s, want 5.3", got)
		}
		if len(sum.Categories) != 2 {
			t.Fatalf("Categories = %+v, want 2 rows", sum.Categories)
		}
		labor, seeds := sum.Categories[0], sum.Categories[1]
		if labor.Category != "Labor" || seeds.Category != "Seeds" {
			t.Errorf("order = %s, %s, want largest total first", labor.Category, seeds.Category)
		}
		if got := seeds.Total.String(); got != "0.3" {
			t.Errorf("Seeds total = %s, want exactly 0.3", got)
		}
		if share := sum.Share(labor); share < 0.94 || share > 0.95 {
			t.Errorf("Share(Labor) = %v, want ~0.943", share)
		}
	})

	t.Run("day", func(t *testing.T) {
		sum, err := svc.ExpenseSummary(ctx, ledger.PeriodDay, "Expense")
		if err != nil {
			t.Fatal(err)
		}
		if sum.Count != 1 || sum.Total.String() != "0.1" {
			t.Errorf("day summary = count %d total %s", sum.Count, sum.Total)
		}
	})

	t.Run("year of income", func(t *testing.T) {
		sum, err := svc.ExpenseSummary(ctx, ledger.PeriodYear, "Income")
		if err != nil {
			t.Fatal(err)
		}
		if sum.Count != 1 || sum.Total.String() != "100" {
			t.Errorf("income summary = count %d total %s", sum.Count, sum.Total)
		}
	})

	t.Run("empty period", func(t *testing.T) {
		env.Clock.Set(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))
		defer env.Clock.Set(now)
		sum, err := svc.ExpenseSummary(ctx, ledger.PeriodMonth, "Expense")
		if err != nil {
			t.Fatal(err)
		}
		if sum.Count != 0 || !sum.Total.IsZero() || len(sum.Categories) != 0 {
			t.Errorf("empty summary = %+v", sum)
		}
		if sum.Share(ledger.CategoryTotal{}) != 0 {
			t.Error("Share() on zero total should be 0")
		}
	})
}
