// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states. Transitions are
// strictly one-way: DRAFT -> EMITTED -> CANCELLED.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusEmitted   InvoiceStatus = "EMITTED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// InvoiceType distinguishes ordinary documents from corrective ones.
// Rectificative invoices number from their own series.
type InvoiceType string

const (
	InvoiceTypeOrdinary      InvoiceType = "ORDINARY"
	InvoiceTypeSimplified    InvoiceType = "SIMPLIFIED"
	InvoiceTypeRectificative InvoiceType = "RECTIFICATIVE"
)

// Charge categories for invoice line items.
const (
	CategoryRent      = "RENT"
	CategoryUtilities = "UTILITIES"
	CategoryDeposit   = "DEPOSIT"
	CategoryPenalty   = "PENALTY"
	CategoryOther     = "OTHER"
)

// Invoice is the billing aggregate root. Once emitted it carries a legal
// number and a tamper-evidence fingerprint and its economic content is
// frozen; only the cancellation transition remains.
type Invoice struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_invoices_tenant_number" json:"tenant_id"`

	Type   InvoiceType   `gorm:"type:text;not null;default:'ORDINARY'" json:"type"`
	Status InvoiceStatus `gorm:"type:text;not null;default:'DRAFT'" json:"status"`

	ClientID   snowflake.ID  `gorm:"not null;index" json:"client_id"`
	PropertyID *snowflake.ID `gorm:"index" json:"property_id,omitempty"`
	ContractID *snowflake.ID `gorm:"index" json:"contract_id,omitempty"`

	IssueDate     time.Time  `gorm:"not null" json:"issue_date"`
	OperationDate *time.Time `gorm:"" json:"operation_date,omitempty"`

	// InvoiceNumber and Fingerprint are assigned exactly once, at emission.
	InvoiceNumber *string `gorm:"uniqueIndex:ux_invoices_tenant_number" json:"invoice_number,omitempty"`
	Fingerprint   *string `gorm:"type:text" json:"fingerprint,omitempty"`

	TaxableAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"taxable_amount"`
	TaxAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	RetentionAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"retention_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	EmittedAt   *time.Time `gorm:"" json:"emitted_at,omitempty"`
	CancelledAt *time.Time `gorm:"" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// The tenant scope is part of the number uniqueness: two tenants may both
// hold "2026/000001".
func (i Invoice) NumberOrEmpty() string {
	if i.InvoiceNumber == nil {
		return ""
	}
	return *i.InvoiceNumber
}

// InvoiceItem is a charge line. Monetary derived fields are computed by the
// calculator at write time and never recomputed after emission.
type InvoiceItem struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`

	Category    string `gorm:"type:text;not null" json:"category"`
	Description string `gorm:"type:text" json:"description"`

	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	DiscountPct decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"discount_pct"`

	ApplyTax bool            `gorm:"not null" json:"apply_tax"`
	TaxPct   decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_pct"`

	ApplyRetention bool            `gorm:"not null" json:"apply_retention"`
	RetentionPct   decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"retention_pct"`

	PeriodMonth *int `gorm:"" json:"period_month,omitempty"`
	PeriodYear  *int `gorm:"" json:"period_year,omitempty"`

	Installment      int `gorm:"not null;default:1" json:"installment"`
	InstallmentTotal int `gorm:"not null;default:1" json:"installment_total"`

	TaxableAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"taxable_amount"`
	TaxAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	RetentionAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"retention_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// InvoiceSequence holds the last assigned correlative number for one
// (tenant, fiscal year, series prefix) stream. Rows are created lazily on
// the first emission for the stream and never deleted; last_number is
// monotonically non-decreasing and numbers are never reused, even when the
// invoice that consumed one is later cancelled.
type InvoiceSequence struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	TenantID   snowflake.ID `gorm:"not null;uniqueIndex:ux_invoice_sequences_scope"`
	Year       int          `gorm:"not null;uniqueIndex:ux_invoice_sequences_scope"`
	Prefix     string       `gorm:"type:text;not null;default:'';uniqueIndex:ux_invoice_sequences_scope"`
	LastNumber int64        `gorm:"not null;default:0"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceSequence) TableName() string { return "invoice_sequences" }
