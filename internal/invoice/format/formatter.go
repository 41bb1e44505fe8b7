// Package format renders legal invoice numbers.
package format

import (
	"fmt"

	"github.com/inmoflow/inmoflow/internal/invoice/domain"
)

// DefaultPadWidth is the zero-padded width of the correlative suffix.
const DefaultPadWidth = 6

// LegalNumber formats a legal invoice number as
// {prefix}{year}/{n zero-padded to padWidth}.
//
// This function is PURE: no side effects, no DB access, fully
// deterministic.
func LegalNumber(prefix string, year int, n int64, padWidth int) (string, error) {
	if year <= 0 {
		return "", fmt.Errorf("invalid fiscal year: %d", year)
	}
	if n <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", n)
	}
	if padWidth <= 0 {
		padWidth = DefaultPadWidth
	}
	return fmt.Sprintf("%s%d/%0*d", prefix, year, padWidth, n), nil
}

// SeriesForType returns the numbering series prefix for an invoice type.
// Rectificative documents get their own stream; everything else numbers
// from the default (empty prefix) series.
func SeriesForType(t domain.InvoiceType, rectificativePrefix string) string {
	if t == domain.InvoiceTypeRectificative {
		return rectificativePrefix
	}
	return ""
}
