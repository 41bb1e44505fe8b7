package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog is an append-only record of lifecycle events. Rows are never
// updated or deleted.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	TenantID   snowflake.ID      `gorm:"not null;index"`
	Action     string            `gorm:"type:text;not null"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   string            `gorm:"type:text;not null;index"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

type Service interface {
	Record(ctx context.Context, tenantID snowflake.ID, action, targetType, targetID string, metadata map[string]any) error
}
