package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"agriledger/internal/model"
)

// Period is the window of an expense summary.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod accepts day, month or year.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodMonth, PeriodYear:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: unknown period %q (want day, month or year)", ErrInvalidInput, s)
}

// Bounds returns the [start, end) interval of the period containing t, in
// t's location.
func (p Period) Bounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	loc := t.Location()
	switch p {
	case PeriodDay:
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 1)
	case PeriodYear:
		start := time.Date(y, 1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	}
}

// DefaultSummaryType is the payment type the stats screen summarizes.
const DefaultSummaryType = "Expense"

// CategoryTotal is one row of an expense summary.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// Summary totals payments of one type per category over a period.
type Summary struct {
	Period     Period
	Type       string
	Start      time.Time
	End        time.Time
	Total      decimal.Decimal
	Count      int
	Categories []CategoryTotal
}

// Share returns the fraction of the total a category accounts for.
func (s *Summary) Share(c CategoryTotal) float64 {
	if s.Total.IsZero() {
		return 0
	}
	f, _ := c.Total.Div(s.Total).Float64()
	return f
}

// ExpenseSummary totals payments of paymentType per category for the
// period containing the current time. Categories are ordered by total,
// largest first.
func (s *LedgerService) ExpenseSummary(ctx context.Context, period Period, paymentType string) (*Summary, error) {
	if paymentType == "" {
		paymentType = DefaultSummaryType
	}
	start, end := period.Bounds(s.clock.Now())

	payments, err := s.ListPayments(ctx, PaymentFilter{Type: paymentType, From: start, To: end})
	if err != nil {
		return nil, err
	}
	return summarize(period, paymentType, start, end, payments), nil
}

func summarize(period Period, paymentType string, start, end time.Time, payments []model.Payment) *Summary {
	sum := &Summary{Period: period, Type: paymentType, Start: start, End: end, Total: decimal.Zero}

	byCategory := map[string]*CategoryTotal{}
	for _, p := range payments {
		amount := decimal.NewFromFloat(p.Amount)
		row, ok := byCategory[p.Category]
		if !ok {
			row = &CategoryTotal{Category: p.Category, Total: decimal.Zero}
			byCategory[p.Category] = row
		}
		row.Total = row.Total.Add(amount)
		row.Count++
		sum.Total = sum.Total.Add(amount)
		sum.Count++
	}

	for _, row := range byCategory {
		sum.Categories = append(sum.Categories, *row)
	}
	sort.Slice(sum.Categories, func(i, j int) bool {
		a, b := sum.Categories[i], sum.Categories[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		return a.Category < b.Category
	})
	return sum
}
