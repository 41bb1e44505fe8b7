package repository

import (
	"context"

	"github.com/inmoflow/inmoflow/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a thin generic data-access layer over gorm. Services that
// need transactional semantics obtain a scoped copy through WithTrx.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T) (int64, error)
}
