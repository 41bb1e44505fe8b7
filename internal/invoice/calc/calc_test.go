package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeLine(t *testing.T) {
	tests := []struct {
		name          string
		in            LineInput
		wantTaxable   string
		wantTax       string
		wantRetention string
		wantTotal     string
	}{
		{
			name: "rent with standard tax",
			in: LineInput{
				UnitPrice: d("1000.00"),
				ApplyTax:  true,
				TaxPct:    d("21"),
			},
			wantTaxable:   "1000.00",
			wantTax:       "210.00",
			wantRetention: "0.00",
			wantTotal:     "1210.00",
		},
		{
			name: "discount before tax",
			in: LineInput{
				UnitPrice:   d("1000.00"),
				DiscountPct: d("10"),
				ApplyTax:    true,
				TaxPct:      d("21"),
			},
			wantTaxable:   "900.00",
			wantTax:       "189.00",
			wantRetention: "0.00",
			wantTotal:     "1089.00",
		},
		{
			name: "retention subtracts from total",
			in: LineInput{
				UnitPrice:      d("1000.00"),
				ApplyTax:       true,
				TaxPct:         d("21"),
				ApplyRetention: true,
				RetentionPct:   d("19"),
			},
			wantTaxable:   "1000.00",
			wantTax:       "210.00",
			wantRetention: "190.00",
			wantTotal:     "1020.00",
		},
		{
			name: "tax flag off ignores tax pct",
			in: LineInput{
				UnitPrice: d("500.00"),
				ApplyTax:  false,
				TaxPct:    d("21"),
			},
			wantTaxable:   "500.00",
			wantTax:       "0.00",
			wantRetention: "0.00",
			wantTotal:     "500.00",
		},
		{
			name: "retention flag off ignores retention pct",
			in: LineInput{
				UnitPrice:      d("500.00"),
				ApplyRetention: false,
				RetentionPct:   d("15"),
			},
			wantTaxable:   "500.00",
			wantTax:       "0.00",
			wantRetention: "0.00",
			wantTotal:     "500.00",
		},
		{
			name: "half up rounding on taxable",
			in: LineInput{
				// 33.33 * 0.965 = 32.16345 -> 32.16
				UnitPrice:   d("33.33"),
				DiscountPct: d("3.5"),
			},
			wantTaxable:   "32.16",
			wantTax:       "0.00",
			wantRetention: "0.00",
			wantTotal:     "32.16",
		},
		{
			name: "half up rounding on tax",
			in: LineInput{
				// 10.25 * 0.10 = 1.025 -> 1.03, not 1.02
				UnitPrice: d("10.25"),
				ApplyTax:  true,
				TaxPct:    d("10"),
			},
			wantTaxable:   "10.25",
			wantTax:       "1.03",
			wantRetention: "0.00",
			wantTotal:     "11.28",
		},
		{
			name: "zero unit price",
			in: LineInput{
				UnitPrice: d("0"),
				ApplyTax:  true,
				TaxPct:    d("21"),
			},
			wantTaxable:   "0.00",
			wantTax:       "0.00",
			wantRetention: "0.00",
			wantTotal:     "0.00",
		},
		{
			name: "full discount",
			in: LineInput{
				UnitPrice:   d("250.00"),
				DiscountPct: d("100"),
				ApplyTax:    true,
				TaxPct:      d("21"),
			},
			wantTaxable:   "0.00",
			wantTax:       "0.00",
			wantRetention: "0.00",
			wantTotal:     "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLine(tt.in)
			assert.Equal(t, tt.wantTaxable, got.Taxable.StringFixed(2))
			assert.Equal(t, tt.wantTax, got.Tax.StringFixed(2))
			assert.Equal(t, tt.wantRetention, got.Retention.StringFixed(2))
			assert.Equal(t, tt.wantTotal, got.Total.StringFixed(2))
		})
	}
}

func TestComputeLineDeterministic(t *testing.T) {
	in := LineInput{
		UnitPrice:      d("847.33"),
		DiscountPct:    d("7.5"),
		ApplyTax:       true,
		TaxPct:         d("21"),
		ApplyRetention: true,
		RetentionPct:   d("15"),
	}

	first := ComputeLine(in)
	for i := 0; i < 100; i++ {
		again := ComputeLine(in)
		assert.True(t, first.Total.Equal(again.Total))
		assert.True(t, first.Tax.Equal(again.Tax))
	}
}

func TestSumLines(t *testing.T) {
	lines := []LineAmounts{
		ComputeLine(LineInput{UnitPrice: d("1000.00"), ApplyTax: true, TaxPct: d("21")}),
		ComputeLine(LineInput{UnitPrice: d("59.90"), ApplyTax: true, TaxPct: d("10")}),
		ComputeLine(LineInput{UnitPrice: d("100.00"), ApplyRetention: true, RetentionPct: d("19")}),
	}

	totals := SumLines(lines)
	assert.Equal(t, "1159.90", totals.Taxable.StringFixed(2))
	assert.Equal(t, "215.99", totals.Tax.StringFixed(2))
	assert.Equal(t, "19.00", totals.Retention.StringFixed(2))
	assert.Equal(t, "1356.89", totals.Total.StringFixed(2))
}

func TestSumLinesEmpty(t *testing.T) {
	totals := SumLines(nil)
	assert.True(t, totals.Total.IsZero())
	assert.True(t, totals.Taxable.IsZero())
}
