// Package fingerprint provides the default tamper-evidence digest for
// emitted invoices: a SHA-256 chain over the frozen document content and
// the previous emitted fingerprint of the same tenant.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/inmoflow/inmoflow/internal/invoice/domain"
)

type chainer struct{}

// NewChainer returns the default SHA-256 chain implementation of
// domain.Chainer.
func NewChainer() domain.Chainer {
	return chainer{}
}

// Fingerprint digests the frozen invoice. The rendering is canonical so
// the digest is deterministic: same content and previous link, same hash.
// It is computed once at emission and never recomputed.
func (chainer) Fingerprint(invoice domain.Invoice, previous string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s|%s|%s|", invoice.TenantID, invoice.NumberOrEmpty(), invoice.Type)
	fmt.Fprintf(&b, "%s|", invoice.IssueDate.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "%s|%s|%s|%s|",
		invoice.TaxableAmount.StringFixed(2),
		invoice.TaxAmount.StringFixed(2),
		invoice.RetentionAmount.StringFixed(2),
		invoice.TotalAmount.StringFixed(2),
	)

	for _, item := range invoice.Items {
		fmt.Fprintf(&b, "%s;%s;%s;%s;", item.Category, item.Description,
			item.UnitPrice.StringFixed(2), item.TotalAmount.StringFixed(2))
	}

	fmt.Fprintf(&b, "|%s", previous)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
