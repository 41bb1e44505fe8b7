// Package scheduler drives recurring rent billing: one DRAFT invoice per
// active contract per monthly period. The invoice core's duplicate-charge
// check is the backstop; the period query here is the primary guard.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inmoflow/inmoflow/internal/clock"
	"github.com/inmoflow/inmoflow/internal/config"
	contractdomain "github.com/inmoflow/inmoflow/internal/contract/domain"
	invoicedomain "github.com/inmoflow/inmoflow/internal/invoice/domain"
	obsmetrics "github.com/inmoflow/inmoflow/internal/observability/metrics"
	"github.com/inmoflow/inmoflow/pkg/tenantctx"
)

var ErrInvalidConfig = errors.New("scheduler: missing required dependency")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	InvoiceSvc invoicedomain.Service
	Clock      clock.Clock
	Invoicing  *config.InvoicingConfigHolder
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	invoiceSvc invoicedomain.Service
	clock      clock.Clock
	invoicing  *config.InvoicingConfigHolder
	metrics    *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.InvoiceSvc == nil || p.Clock == nil || p.Invoicing == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		invoiceSvc: p.InvoiceSvc,
		clock:      p.Clock,
		invoicing:  p.Invoicing,
		metrics:    p.Metrics,
	}, nil
}

// RunForever runs billing passes until ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.invoicing.Get().SchedulerInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", interval))

	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("billing pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single billing pass for the current monthly period.
// It is idempotent: contracts already billed for the period are skipped,
// and a concurrent pass racing the same contract is caught by the core's
// duplicate-charge check.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.SchedulerRun()
	}

	now := s.clock.Now()
	periodYear := now.Year()
	periodMonth := int(now.Month())

	batchSize := s.invoicing.Get().SchedulerBatchSize

	contracts, err := s.fetchDueContracts(ctx, periodMonth, periodYear, batchSize)
	if err != nil {
		return fmt.Errorf("fetch due contracts: %w", err)
	}
	if len(contracts) == 0 {
		return nil
	}

	var created, skipped int
	for _, contract := range contracts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.billContract(ctx, contract, periodMonth, periodYear, now); err != nil {
			if errors.Is(err, invoicedomain.ErrDuplicateCharge) {
				skipped++
				continue
			}
			s.log.Error("contract billing failed",
				zap.String("contract_id", contract.ID.String()),
				zap.String("tenant_id", contract.TenantID.String()),
				zap.Error(err),
			)
			continue
		}
		created++
		if s.metrics != nil {
			s.metrics.SchedulerInvoiceCreated()
		}
	}

	s.log.Info("billing pass complete",
		zap.Int("period_month", periodMonth),
		zap.Int("period_year", periodYear),
		zap.Int("contracts", len(contracts)),
		zap.Int("created", created),
		zap.Int("skipped_duplicates", skipped),
	)

	return nil
}

// fetchDueContracts returns active contracts covering the period that have
// no non-cancelled invoice line for it yet.
func (s *Scheduler) fetchDueContracts(ctx context.Context, periodMonth, periodYear, limit int) ([]contractdomain.Contract, error) {
	periodStart := time.Date(periodYear, time.Month(periodMonth), 1, 0, 0, 0, 0, time.UTC)

	var contracts []contractdomain.Contract
	err := s.db.WithContext(ctx).Raw(
		`SELECT c.*
		 FROM contracts c
		 WHERE c.status = ?
		   AND c.start_date <= ?
		   AND (c.end_date IS NULL OR c.end_date >= ?)
		   AND NOT EXISTS (
		       SELECT 1
		       FROM invoice_items ii
		       JOIN invoices i ON i.id = ii.invoice_id
		       WHERE i.tenant_id = c.tenant_id
		         AND i.contract_id = c.id
		         AND i.status <> ?
		         AND ii.category = ?
		         AND ii.period_month = ?
		         AND ii.period_year = ?
		   )
		 ORDER BY c.id
		 LIMIT ?`,
		contractdomain.ContractStatusActive,
		periodStart,
		periodStart,
		invoicedomain.InvoiceStatusCancelled,
		invoicedomain.CategoryRent,
		periodMonth,
		periodYear,
		limit,
	).Scan(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (s *Scheduler) billContract(ctx context.Context, contract contractdomain.Contract, periodMonth, periodYear int, now time.Time) error {
	billingCtx := tenantctx.WithTenantID(ctx, contract.TenantID)

	propertyID := contract.PropertyID
	contractID := contract.ID

	_, err := s.invoiceSvc.Create(billingCtx, invoicedomain.CreateInvoiceRequest{
		Type:       invoicedomain.InvoiceTypeOrdinary,
		IssueDate:  now,
		ClientID:   contract.ClientID,
		PropertyID: &propertyID,
		ContractID: &contractID,
		Items: []invoicedomain.LineItemInput{
			{
				Category:         invoicedomain.CategoryRent,
				Description:      fmt.Sprintf("Rent %02d/%d", periodMonth, periodYear),
				UnitPrice:        contract.MonthlyRent,
				ApplyTax:         contract.ApplyTax,
				TaxPct:           contract.TaxPct,
				ApplyRetention:   contract.ApplyRetention,
				RetentionPct:     contract.RetentionPct,
				PeriodMonth:      &periodMonth,
				PeriodYear:       &periodYear,
				Installment:      1,
				InstallmentTotal: 1,
			},
		},
	})
	return err
}
