package domain

import "errors"

// Validation errors: the request is malformed and must be fixed by the
// caller before resubmitting. Nothing is persisted.
var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidInvoiceID   = errors.New("invalid_invoice_id")
	ErrInvalidInvoiceType = errors.New("invalid_invoice_type")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidIssueDate   = errors.New("invalid_issue_date")
	ErrEmptyItems         = errors.New("empty_items")
	ErrInvalidUnitPrice   = errors.New("invalid_unit_price")
	ErrInvalidPercent     = errors.New("invalid_percent")
	ErrInvalidPeriod      = errors.New("invalid_period")
	ErrInvalidInstallment = errors.New("invalid_installment")
)

// State errors: the invoice exists but its status forbids the requested
// transition. Never auto-corrected.
var (
	ErrInvoiceNotFound   = errors.New("invoice_not_found")
	ErrInvoiceNotDraft   = errors.New("invoice_not_draft")
	ErrInvoiceNotEmitted = errors.New("invoice_not_emitted")
)

// Conflict errors. ErrDuplicateCharge is permanent (change the input);
// ErrSequenceBusy is transient (retry the whole emission).
var (
	ErrDuplicateCharge = errors.New("duplicate_charge")
	ErrSequenceBusy    = errors.New("sequence_busy")
)

var validationErrors = []error{
	ErrInvalidTenant,
	ErrInvalidInvoiceID,
	ErrInvalidInvoiceType,
	ErrInvalidClient,
	ErrInvalidIssueDate,
	ErrEmptyItems,
	ErrInvalidUnitPrice,
	ErrInvalidPercent,
	ErrInvalidPeriod,
	ErrInvalidInstallment,
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	for _, candidate := range validationErrors {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

// IsState reports whether err is a forbidden lifecycle transition.
func IsState(err error) bool {
	return errors.Is(err, ErrInvoiceNotDraft) || errors.Is(err, ErrInvoiceNotEmitted)
}

// IsConflict reports whether err is a duplicate charge or a transient
// sequence contention failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateCharge) || errors.Is(err, ErrSequenceBusy)
}

// IsRetryable reports whether the caller may retry the same call unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSequenceBusy)
}
