package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/inmoflow/inmoflow/internal/audit/domain"
	"github.com/inmoflow/inmoflow/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[auditdomain.AuditLog]
}

func NewService(p ServiceParam) auditdomain.Service {
	return &Service{
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[auditdomain.AuditLog](p.DB),
	}
}

// Record appends an audit entry. Callers treat audit as best-effort; a
// storage failure is returned for logging but must not abort the
// operation that triggered it.
func (s *Service) Record(ctx context.Context, tenantID snowflake.ID, action, targetType, targetID string, metadata map[string]any) error {
	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   datatypes.JSONMap(metadata),
		CreatedAt:  time.Now().UTC(),
	}
	return s.repo.Create(ctx, &entry)
}
