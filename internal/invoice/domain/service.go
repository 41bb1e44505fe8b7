package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// LineItemInput is a raw charge as supplied by the caller. Derived amounts
// are computed by the calculator, never accepted from outside.
type LineItemInput struct {
	Category    string `json:"category"`
	Description string `json:"description"`

	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`

	ApplyTax bool            `json:"apply_tax"`
	TaxPct   decimal.Decimal `json:"tax_pct"`

	ApplyRetention bool            `json:"apply_retention"`
	RetentionPct   decimal.Decimal `json:"retention_pct"`

	PeriodMonth *int `json:"period_month,omitempty"`
	PeriodYear  *int `json:"period_year,omitempty"`

	Installment      int `json:"installment"`
	InstallmentTotal int `json:"installment_total"`
}

type CreateInvoiceRequest struct {
	Type          InvoiceType    `json:"type"`
	IssueDate     time.Time      `json:"issue_date"`
	OperationDate *time.Time     `json:"operation_date,omitempty"`
	ClientID      snowflake.ID   `json:"client_id"`
	PropertyID    *snowflake.ID  `json:"property_id,omitempty"`
	ContractID    *snowflake.ID  `json:"contract_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`

	Items []LineItemInput `json:"items"`
}

// UpdateDraftRequest replaces the draft wholesale. A nil Items slice keeps
// the existing lines; an empty one is a validation error.
type UpdateDraftRequest struct {
	IssueDate     *time.Time    `json:"issue_date,omitempty"`
	OperationDate *time.Time    `json:"operation_date,omitempty"`
	ClientID      *snowflake.ID `json:"client_id,omitempty"`
	PropertyID    *snowflake.ID `json:"property_id,omitempty"`

	Items []LineItemInput `json:"items,omitempty"`
}

type ListInvoicesRequest struct {
	Status     *InvoiceStatus `form:"status"`
	Type       *InvoiceType   `form:"type"`
	ClientID   *snowflake.ID  `form:"client_id"`
	IssuedFrom *time.Time     `form:"issued_from" time_format:"2006-01-02"`
	IssuedTo   *time.Time     `form:"issued_to" time_format:"2006-01-02"`
	Limit      int            `form:"limit"`
}

type ListInvoicesResponse struct {
	Invoices []Invoice `json:"invoices"`
}

// Service is the invoice lifecycle engine.
//
// Emit assigns legal numbers in commit order, not call order: under
// contention the order in which emission transactions commit decides the
// correlative order, and callers must not assume numbers reflect request
// arrival order.
type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	UpdateDraft(ctx context.Context, id string, req UpdateDraftRequest) (Invoice, error)
	Emit(ctx context.Context, id string) (Invoice, error)
	Cancel(ctx context.Context, id string) (Invoice, error)
	Remove(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) (ListInvoicesResponse, error)
}

// Chainer computes the tamper-evidence fingerprint of a frozen invoice,
// chained to the previous emitted fingerprint for the same tenant. The
// implementation must be pure and deterministic; it is a collaborator the
// core does not prescribe.
type Chainer interface {
	Fingerprint(invoice Invoice, previous string) string
}
