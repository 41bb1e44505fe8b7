// Package sequence owns the per-(tenant, year, prefix) legal-number
// counters. It is the single mutual-exclusion point of the invoicing core.
package sequence

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/inmoflow/inmoflow/internal/config"
	"github.com/inmoflow/inmoflow/internal/invoice/domain"
	"github.com/inmoflow/inmoflow/internal/invoice/format"
	obsmetrics "github.com/inmoflow/inmoflow/internal/observability/metrics"
	"github.com/inmoflow/inmoflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AllocatorParam struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Invoicing *config.InvoicingConfigHolder
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// Allocator issues the next correlative legal number for a numbering
// stream. It must run inside the caller's transaction so the increment and
// the invoice's number stamp commit or roll back atomically; on rollback
// the increment is not observed and no number is skipped.
type Allocator struct {
	log       *zap.Logger
	genID     *snowflake.Node
	invoicing *config.InvoicingConfigHolder
	metrics   *obsmetrics.Metrics
}

func NewAllocator(p AllocatorParam) *Allocator {
	return &Allocator{
		log:       p.Log.Named("invoice.sequence"),
		genID:     p.GenID,
		invoicing: p.Invoicing,
		metrics:   p.Metrics,
	}
}

// Next locks the (tenantID, year, prefix) sequence row, increments it by
// exactly one, and returns the formatted legal number together with the
// raw correlative. The row is created lazily with last_number = 0 and then
// re-fetched under the lock so a concurrent creator cannot race the lock
// acquisition.
//
// Two concurrent emissions for the same stream never observe the same
// number; the lock-wait bound is the ctx deadline, and a timed-out wait
// surfaces domain.ErrSequenceBusy so the caller can retry the whole
// emission transaction.
func (a *Allocator) Next(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, year int, prefix string) (string, int64, error) {
	if tx == nil {
		return "", 0, errors.New("sequence allocator requires a transaction")
	}
	if year <= 0 {
		return "", 0, domain.ErrInvalidIssueDate
	}

	seq, err := a.lockRow(ctx, tx, tenantID, year, prefix)
	if err != nil {
		return "", 0, err
	}

	next := seq.LastNumber + 1
	result := tx.WithContext(ctx).
		Model(&domain.InvoiceSequence{}).
		Where("id = ? AND last_number = ?", seq.ID, seq.LastNumber).
		Updates(map[string]any{
			"last_number": next,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return "", 0, a.classify(result.Error)
	}
	// The guarded WHERE makes the increment safe even on a backend that
	// silently ignores the lock clause: a lost race shows up as zero rows.
	if result.RowsAffected == 0 {
		return "", 0, domain.ErrSequenceBusy
	}

	padWidth := format.DefaultPadWidth
	if a.invoicing != nil {
		padWidth = a.invoicing.Get().NumberPadWidth
	}
	formatted, err := format.LegalNumber(prefix, year, next, padWidth)
	if err != nil {
		return "", 0, err
	}

	a.log.Debug("sequence advanced",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("year", year),
		zap.String("prefix", prefix),
		zap.Int64("number", next),
	)

	return formatted, next, nil
}

func (a *Allocator) lockRow(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, year int, prefix string) (*domain.InvoiceSequence, error) {
	lockStart := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.ObserveSequenceLockWait(time.Since(lockStart))
		}
	}()

	seq, err := a.fetchLocked(ctx, tx, tenantID, year, prefix)
	if err != nil {
		return nil, err
	}
	if seq != nil {
		return seq, nil
	}

	// Lazily create the stream, then re-fetch under the lock: the insert
	// may lose to a concurrent creator, which is fine because only the
	// locked re-read decides whose row wins.
	created := domain.InvoiceSequence{
		ID:         a.genID.Generate(),
		TenantID:   tenantID,
		Year:       year,
		Prefix:     prefix,
		LastNumber: 0,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&created).Error; err != nil && !db.IsDuplicateKeyErr(err) {
		return nil, a.classify(err)
	}

	seq, err = a.fetchLocked(ctx, tx, tenantID, year, prefix)
	if err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, errors.New("sequence row missing after create")
	}
	return seq, nil
}

func (a *Allocator) fetchLocked(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, year int, prefix string) (*domain.InvoiceSequence, error) {
	stmt := tx.WithContext(ctx)
	if db.SupportsRowLocking(tx) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var seq domain.InvoiceSequence
	err := stmt.
		Where("tenant_id = ? AND year = ? AND prefix = ?", tenantID, year, prefix).
		First(&seq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, a.classify(err)
	}
	return &seq, nil
}

func (a *Allocator) classify(err error) error {
	if db.IsLockTimeoutErr(err) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrSequenceBusy
	}
	return err
}
