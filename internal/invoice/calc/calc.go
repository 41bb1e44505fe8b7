// Package calc holds the pure monetary math for invoice lines.
package calc

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineInput is a raw charge. The caller validates ranges (unit price >= 0,
// percentages within 0..100); these functions trust their inputs.
type LineInput struct {
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal

	ApplyTax bool
	TaxPct   decimal.Decimal

	ApplyRetention bool
	RetentionPct   decimal.Decimal
}

// LineAmounts are the derived monetary fields of a single line.
type LineAmounts struct {
	Taxable   decimal.Decimal
	Tax       decimal.Decimal
	Retention decimal.Decimal
	Total     decimal.Decimal
}

// ComputeLine derives the monetary amounts of one charge line:
//
//	taxable   = unitPrice * (1 - discount/100)
//	tax       = taxable * taxPct/100        (0 when not applicable)
//	retention = taxable * retentionPct/100  (0 when not applicable)
//	total     = taxable + tax - retention
//
// Each component is rounded to 2 decimal places, half up, at the point of
// computation so stored totals match displayed totals exactly. The function
// is deterministic: identical input always yields identical output.
func ComputeLine(in LineInput) LineAmounts {
	taxable := in.UnitPrice.
		Mul(hundred.Sub(in.DiscountPct)).
		Div(hundred).
		Round(2)

	tax := decimal.Zero
	if in.ApplyTax {
		tax = taxable.Mul(in.TaxPct).Div(hundred).Round(2)
	}

	retention := decimal.Zero
	if in.ApplyRetention {
		retention = taxable.Mul(in.RetentionPct).Div(hundred).Round(2)
	}

	return LineAmounts{
		Taxable:   taxable,
		Tax:       tax,
		Retention: retention,
		Total:     taxable.Add(tax).Sub(retention),
	}
}

// Totals are the invoice-level aggregates over all lines.
type Totals struct {
	Taxable   decimal.Decimal
	Tax       decimal.Decimal
	Retention decimal.Decimal
	Total     decimal.Decimal
}

// SumLines aggregates each derived field across lines. Pure and
// idempotent; summing already-rounded 2dp amounts needs no extra rounding.
func SumLines(lines []LineAmounts) Totals {
	totals := Totals{
		Taxable:   decimal.Zero,
		Tax:       decimal.Zero,
		Retention: decimal.Zero,
		Total:     decimal.Zero,
	}
	for _, line := range lines {
		totals.Taxable = totals.Taxable.Add(line.Taxable)
		totals.Tax = totals.Tax.Add(line.Tax)
		totals.Retention = totals.Retention.Add(line.Retention)
		totals.Total = totals.Total.Add(line.Total)
	}
	return totals
}
