package domain

import "github.com/shopspring/decimal"

// Totals are summary figures over a record set. They are recomputed from
// the full current projection on every change and never persisted.
type Totals struct {
	Wage       decimal.Decimal `json:"wage"`
	Commission decimal.Decimal `json:"commission"`
	Sales      decimal.Decimal `json:"sales"`
}

// Earnings returns wage plus commission.
func (t Totals) Earnings() decimal.Decimal {
	return t.Wage.Add(t.Commission)
}

// Aggregate sums wage, commission and sales over records in a single pass.
// Zero-valued fields on partially written records contribute nothing, and
// the result is independent of record order.
func Aggregate(records []Record) Totals {
	t := Totals{Wage: decimal.Zero, Commission: decimal.Zero, Sales: decimal.Zero}
	for _, r := range records {
		t.Wage = t.Wage.Add(r.Wage)
		t.Commission = t.Commission.Add(r.Commission)
		t.Sales = t.Sales.Add(r.Sales)
	}
	return t
}
