// Package domain holds the rental contract model read by the recurring
// billing scheduler. Contract management itself lives outside this
// service; rows arrive through migrations or external tooling.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "ACTIVE"
	ContractStatusTerminated ContractStatus = "TERMINATED"
)

// Contract describes a recurring rental agreement: who to bill, for which
// property, how much per month, and which tax/retention policy applies.
type Contract struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	TenantID snowflake.ID `gorm:"not null;index"`

	ClientID   snowflake.ID `gorm:"not null;index"`
	PropertyID snowflake.ID `gorm:"not null;index"`

	Status ContractStatus `gorm:"type:text;not null;default:'ACTIVE'"`

	MonthlyRent decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	ApplyTax bool            `gorm:"not null"`
	TaxPct   decimal.Decimal `gorm:"type:numeric(5,2);not null"`

	ApplyRetention bool            `gorm:"not null"`
	RetentionPct   decimal.Decimal `gorm:"type:numeric(5,2);not null"`

	StartDate time.Time  `gorm:"not null"`
	EndDate   *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Contract) TableName() string { return "contracts" }
