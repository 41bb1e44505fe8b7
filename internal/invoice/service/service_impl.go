package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	auditdomain "github.com/inmoflow/inmoflow/internal/audit/domain"
	"github.com/inmoflow/inmoflow/internal/config"
	"github.com/inmoflow/inmoflow/internal/invoice/calc"
	invoicedomain "github.com/inmoflow/inmoflow/internal/invoice/domain"
	"github.com/inmoflow/inmoflow/internal/invoice/format"
	"github.com/inmoflow/inmoflow/internal/invoice/sequence"
	obsmetrics "github.com/inmoflow/inmoflow/internal/observability/metrics"
	pkgdb "github.com/inmoflow/inmoflow/pkg/db"
	"github.com/inmoflow/inmoflow/pkg/db/option"
	"github.com/inmoflow/inmoflow/pkg/repository"
	"github.com/inmoflow/inmoflow/pkg/tenantctx"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Allocator *sequence.Allocator
	Chainer   invoicedomain.Chainer
	Invoicing *config.InvoicingConfigHolder
	AuditSvc  auditdomain.Service `optional:"true"`
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	allocator *sequence.Allocator
	chainer   invoicedomain.Chainer
	invoicing *config.InvoicingConfigHolder
	auditSvc  auditdomain.Service
	metrics   *obsmetrics.Metrics

	invoicerepo repository.Repository[invoicedomain.Invoice]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		allocator: p.Allocator,
		chainer:   p.Chainer,
		invoicing: p.Invoicing,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := validateCreate(req); err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := time.Now().UTC()
	invoiceID := s.genID.Generate()

	items, totals := s.buildItems(tenantID, invoiceID, req.Items, now)

	invoice := invoicedomain.Invoice{
		ID:              invoiceID,
		TenantID:        tenantID,
		Type:            req.Type,
		Status:          invoicedomain.InvoiceStatusDraft,
		ClientID:        req.ClientID,
		PropertyID:      req.PropertyID,
		ContractID:      req.ContractID,
		IssueDate:       req.IssueDate,
		OperationDate:   req.OperationDate,
		TaxableAmount:   totals.Taxable,
		TaxAmount:       totals.Tax,
		RetentionAmount: totals.Retention,
		TotalAmount:     totals.Total,
		Metadata:        datatypes.JSONMap(req.Metadata),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkBatchDuplicateCharge(req.Items); err != nil {
			return err
		}
		for _, item := range items {
			if err := s.checkDuplicateCharge(ctx, tx, tenantID, req.ClientID, req.PropertyID, item, 0); err != nil {
				return err
			}
		}
		if err := tx.WithContext(ctx).Omit("Items").Create(&invoice).Error; err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			return fmt.Errorf("insert invoice items: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, invoicedomain.ErrDuplicateCharge) && s.metrics != nil {
			s.metrics.DuplicateChargeRejected()
		}
		return invoicedomain.Invoice{}, err
	}

	invoice.Items = derefItems(items)
	if s.metrics != nil {
		s.metrics.InvoiceCreated(string(invoice.Type))
	}
	s.emitAudit(ctx, "invoice.created", &invoice, nil)

	return invoice, nil
}

func (s *Service) UpdateDraft(ctx context.Context, id string, req invoicedomain.UpdateDraftRequest) (invoicedomain.Invoice, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}
	if req.Items != nil {
		if err := validateItems(req.Items); err != nil {
			return invoicedomain.Invoice{}, err
		}
	}

	var updated invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadForUpdate(ctx, tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status != invoicedomain.InvoiceStatusDraft {
			return invoicedomain.ErrInvoiceNotDraft
		}

		now := time.Now().UTC()

		if req.IssueDate != nil {
			invoice.IssueDate = *req.IssueDate
		}
		if req.OperationDate != nil {
			invoice.OperationDate = req.OperationDate
		}
		if req.ClientID != nil {
			invoice.ClientID = *req.ClientID
		}
		if req.PropertyID != nil {
			invoice.PropertyID = req.PropertyID
		}

		if req.Items != nil {
			if err := checkBatchDuplicateCharge(req.Items); err != nil {
				return err
			}
			items, totals := s.buildItems(tenantID, invoice.ID, req.Items, now)
			for _, item := range items {
				if err := s.checkDuplicateCharge(ctx, tx, tenantID, invoice.ClientID, invoice.PropertyID, item, invoice.ID); err != nil {
					return err
				}
			}

			// Wholesale replacement: drafts own their lines outright.
			if err := tx.WithContext(ctx).
				Where("invoice_id = ?", invoice.ID).
				Delete(&invoicedomain.InvoiceItem{}).Error; err != nil {
				return fmt.Errorf("delete draft items: %w", err)
			}
			if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
				return fmt.Errorf("insert draft items: %w", err)
			}

			invoice.TaxableAmount = totals.Taxable
			invoice.TaxAmount = totals.Tax
			invoice.RetentionAmount = totals.Retention
			invoice.TotalAmount = totals.Total
			invoice.Items = derefItems(items)
		}

		invoice.UpdatedAt = now
		if err := tx.WithContext(ctx).Omit("Items").Save(invoice).Error; err != nil {
			return fmt.Errorf("update draft: %w", err)
		}

		updated = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	return updated, nil
}

// Emit runs the whole emission inside one transaction: lock the invoice
// row, re-verify it is still DRAFT, allocate the next legal number for
// (tenant, year(issueDate), series), compute the chained fingerprint over
// the frozen content, and flip the status. A failure anywhere rolls the
// sequence increment back with everything else, so no number is consumed.
//
// The fiscal year comes from the issue date, not the wall clock, so
// back-dated corrections land in the correct year's stream.
func (s *Service) Emit(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}

	var emitted invoicedomain.Invoice
	var series string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadForUpdate(ctx, tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status != invoicedomain.InvoiceStatusDraft {
			return invoicedomain.ErrInvoiceNotDraft
		}

		series = format.SeriesForType(invoice.Type, s.invoicing.Get().RectificativeSeriesPrefix)
		year := invoice.IssueDate.UTC().Year()

		number, _, err := s.allocator.Next(ctx, tx, tenantID, year, series)
		if err != nil {
			return err
		}

		if err := tx.WithContext(ctx).
			Where("invoice_id = ?", invoice.ID).
			Order("id ASC").
			Find(&invoice.Items).Error; err != nil {
			return fmt.Errorf("load items: %w", err)
		}

		previous, err := s.lastFingerprint(ctx, tx, tenantID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		invoice.InvoiceNumber = &number
		fp := s.chainer.Fingerprint(*invoice, previous)
		invoice.Fingerprint = &fp
		invoice.Status = invoicedomain.InvoiceStatusEmitted
		invoice.EmittedAt = &now
		invoice.UpdatedAt = now

		// The status guard in the WHERE clause makes the transition
		// single-shot even if the row lock was skipped by the dialect.
		result := tx.WithContext(ctx).
			Model(&invoicedomain.Invoice{}).
			Where("id = ? AND status = ?", invoice.ID, invoicedomain.InvoiceStatusDraft).
			Updates(map[string]any{
				"status":         invoicedomain.InvoiceStatusEmitted,
				"invoice_number": number,
				"fingerprint":    fp,
				"emitted_at":     now,
				"updated_at":     now,
			})
		if result.Error != nil {
			return fmt.Errorf("stamp invoice: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrInvoiceNotDraft
		}

		emitted = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if s.metrics != nil {
		s.metrics.InvoiceEmitted(series)
	}
	s.emitAudit(ctx, "invoice.emitted", &emitted, map[string]any{
		"invoice_number": emitted.NumberOrEmpty(),
		"series":         series,
	})

	return emitted, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}

	var cancelled invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadForUpdate(ctx, tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status != invoicedomain.InvoiceStatusEmitted {
			return invoicedomain.ErrInvoiceNotEmitted
		}

		now := time.Now().UTC()
		result := tx.WithContext(ctx).
			Model(&invoicedomain.Invoice{}).
			Where("id = ? AND status = ?", invoice.ID, invoicedomain.InvoiceStatusEmitted).
			Updates(map[string]any{
				"status":       invoicedomain.InvoiceStatusCancelled,
				"cancelled_at": now,
				"updated_at":   now,
			})
		if result.Error != nil {
			return fmt.Errorf("cancel invoice: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrInvoiceNotEmitted
		}

		invoice.Status = invoicedomain.InvoiceStatusCancelled
		invoice.CancelledAt = &now
		invoice.UpdatedAt = now
		cancelled = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if s.metrics != nil {
		s.metrics.InvoiceCancelled()
	}
	s.emitAudit(ctx, "invoice.cancelled", &cancelled, map[string]any{
		"invoice_number": cancelled.NumberOrEmpty(),
	})

	return cancelled, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.ErrInvalidInvoiceID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadForUpdate(ctx, tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		// Emitted and cancelled invoices are permanent records.
		if invoice.Status != invoicedomain.InvoiceStatusDraft {
			return invoicedomain.ErrInvoiceNotDraft
		}

		if err := tx.WithContext(ctx).
			Where("invoice_id = ?", invoice.ID).
			Delete(&invoicedomain.InvoiceItem{}).Error; err != nil {
			return fmt.Errorf("delete draft items: %w", err)
		}
		if err := tx.WithContext(ctx).
			Delete(&invoicedomain.Invoice{}, "id = ?", invoice.ID).Error; err != nil {
			return fmt.Errorf("delete draft: %w", err)
		}
		return nil
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}

	var invoice invoicedomain.Invoice
	err = s.db.WithContext(ctx).
		Preload("Items").
		First(&invoice, "id = ? AND tenant_id = ?", invoiceID, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
		}
		return invoicedomain.Invoice{}, err
	}

	return invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoicesRequest) (invoicedomain.ListInvoicesResponse, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.ListInvoicesResponse{}, err
	}

	filter := &invoicedomain.Invoice{TenantID: tenantID}
	if req.Status != nil {
		filter.Status = *req.Status
	}
	if req.Type != nil {
		filter.Type = *req.Type
	}
	if req.ClientID != nil {
		filter.ClientID = *req.ClientID
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{
			Allow:   map[string]bool{"created_at": true},
			Field:   "created_at",
			Desc:    true,
			Default: "created_at",
		}),
	}
	if req.IssuedFrom != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "issue_date",
			Operator: option.GTE,
			Value:    *req.IssuedFrom,
		}))
	}
	if req.IssuedTo != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "issue_date",
			Operator: option.LTE,
			Value:    *req.IssuedTo,
		}))
	}
	if req.Limit > 0 {
		options = append(options, option.WithLimit(req.Limit))
	}

	items, err := s.invoicerepo.Find(ctx, filter, options...)
	if err != nil {
		return invoicedomain.ListInvoicesResponse{}, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoicesResponse{Invoices: invoices}, nil
}

func (s *Service) buildItems(tenantID, invoiceID snowflake.ID, inputs []invoicedomain.LineItemInput, now time.Time) ([]*invoicedomain.InvoiceItem, calc.Totals) {
	items := make([]*invoicedomain.InvoiceItem, 0, len(inputs))
	lines := make([]calc.LineAmounts, 0, len(inputs))

	for _, in := range inputs {
		amounts := calc.ComputeLine(calc.LineInput{
			UnitPrice:      in.UnitPrice,
			DiscountPct:    in.DiscountPct,
			ApplyTax:       in.ApplyTax,
			TaxPct:         in.TaxPct,
			ApplyRetention: in.ApplyRetention,
			RetentionPct:   in.RetentionPct,
		})
		lines = append(lines, amounts)

		installment := in.Installment
		if installment <= 0 {
			installment = 1
		}
		installmentTotal := in.InstallmentTotal
		if installmentTotal <= 0 {
			installmentTotal = 1
		}

		items = append(items, &invoicedomain.InvoiceItem{
			ID:               s.genID.Generate(),
			TenantID:         tenantID,
			InvoiceID:        invoiceID,
			Category:         in.Category,
			Description:      in.Description,
			UnitPrice:        in.UnitPrice,
			DiscountPct:      in.DiscountPct,
			ApplyTax:         in.ApplyTax,
			TaxPct:           in.TaxPct,
			ApplyRetention:   in.ApplyRetention,
			RetentionPct:     in.RetentionPct,
			PeriodMonth:      in.PeriodMonth,
			PeriodYear:       in.PeriodYear,
			Installment:      installment,
			InstallmentTotal: installmentTotal,
			TaxableAmount:    amounts.Taxable,
			TaxAmount:        amounts.Tax,
			RetentionAmount:  amounts.Retention,
			TotalAmount:      amounts.Total,
			CreatedAt:        now,
		})
	}

	return items, calc.SumLines(lines)
}

// checkBatchDuplicateCharge rejects a request whose own lines bill the
// same (category, period, installment) tuple twice. The persisted check
// cannot see lines that arrive together in one request.
func checkBatchDuplicateCharge(items []invoicedomain.LineItemInput) error {
	type chargeKey struct {
		category    string
		month       int
		year        int
		installment int
	}

	seen := make(map[chargeKey]struct{}, len(items))
	for _, item := range items {
		if item.PeriodMonth == nil || item.PeriodYear == nil {
			continue
		}
		installment := item.Installment
		if installment <= 0 {
			installment = 1
		}
		key := chargeKey{
			category:    item.Category,
			month:       *item.PeriodMonth,
			year:        *item.PeriodYear,
			installment: installment,
		}
		if _, dup := seen[key]; dup {
			return invoicedomain.ErrDuplicateCharge
		}
		seen[key] = struct{}{}
	}
	return nil
}

// checkDuplicateCharge rejects a line that would bill the same
// (client, property, category, period, installment) tuple twice for the
// tenant. The tuple spans the invoice relation, so a UNIQUE index cannot
// express it; the check runs in the same transaction as the insert.
// Cancelled invoices do not block re-billing.
func (s *Service) checkDuplicateCharge(ctx context.Context, tx *gorm.DB, tenantID, clientID snowflake.ID, propertyID *snowflake.ID, item *invoicedomain.InvoiceItem, excludeInvoiceID snowflake.ID) error {
	if item.PeriodMonth == nil || item.PeriodYear == nil {
		return nil
	}

	query := `SELECT COUNT(*)
		 FROM invoice_items ii
		 JOIN invoices i ON i.id = ii.invoice_id
		 WHERE i.tenant_id = ?
		   AND i.client_id = ?
		   AND i.status <> ?
		   AND ii.category = ?
		   AND ii.period_month = ?
		   AND ii.period_year = ?
		   AND ii.installment = ?`
	args := []any{
		tenantID,
		clientID,
		invoicedomain.InvoiceStatusCancelled,
		item.Category,
		*item.PeriodMonth,
		*item.PeriodYear,
		item.Installment,
	}

	if propertyID != nil {
		query += ` AND i.property_id = ?`
		args = append(args, *propertyID)
	} else {
		query += ` AND i.property_id IS NULL`
	}
	if excludeInvoiceID != 0 {
		query += ` AND i.id <> ?`
		args = append(args, excludeInvoiceID)
	}

	var count int64
	if err := tx.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return fmt.Errorf("duplicate charge check: %w", err)
	}
	if count > 0 {
		return invoicedomain.ErrDuplicateCharge
	}
	return nil
}

func (s *Service) loadForUpdate(ctx context.Context, tx *gorm.DB, tenantID, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	stmt := tx.WithContext(ctx)
	if pkgdb.SupportsRowLocking(tx) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invoice invoicedomain.Invoice
	err := stmt.First(&invoice, "id = ? AND tenant_id = ?", invoiceID, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if pkgdb.IsLockTimeoutErr(err) {
			return nil, invoicedomain.ErrSequenceBusy
		}
		return nil, err
	}
	return &invoice, nil
}

// lastFingerprint returns the most recently emitted fingerprint for the
// tenant, or empty for the chain head. Cancelled invoices stay in the
// chain; their fingerprints were assigned at emission and never change.
func (s *Service) lastFingerprint(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (string, error) {
	var fp *string
	err := tx.WithContext(ctx).Raw(
		`SELECT fingerprint
		 FROM invoices
		 WHERE tenant_id = ? AND fingerprint IS NOT NULL
		 ORDER BY emitted_at DESC, id DESC
		 LIMIT 1`,
		tenantID,
	).Scan(&fp).Error
	if err != nil {
		return "", fmt.Errorf("load previous fingerprint: %w", err)
	}
	if fp == nil {
		return "", nil
	}
	return *fp, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, invoice *invoicedomain.Invoice, extra map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	metadata := map[string]any{
		"type":         string(invoice.Type),
		"status":       string(invoice.Status),
		"client_id":    invoice.ClientID.String(),
		"total_amount": invoice.TotalAmount.StringFixed(2),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	if err := s.auditSvc.Record(ctx, invoice.TenantID, action, "invoice", invoice.ID.String(), metadata); err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) tenantIDFromContext(ctx context.Context) (snowflake.ID, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return 0, invoicedomain.ErrInvalidTenant
	}
	return tenantID, nil
}

func validateCreate(req invoicedomain.CreateInvoiceRequest) error {
	switch req.Type {
	case invoicedomain.InvoiceTypeOrdinary, invoicedomain.InvoiceTypeSimplified, invoicedomain.InvoiceTypeRectificative:
	default:
		return invoicedomain.ErrInvalidInvoiceType
	}
	if req.ClientID == 0 {
		return invoicedomain.ErrInvalidClient
	}
	if req.IssueDate.IsZero() {
		return invoicedomain.ErrInvalidIssueDate
	}
	return validateItems(req.Items)
}

func validateItems(items []invoicedomain.LineItemInput) error {
	if len(items) == 0 {
		return invoicedomain.ErrEmptyItems
	}
	for _, item := range items {
		if item.UnitPrice.IsNegative() {
			return invoicedomain.ErrInvalidUnitPrice
		}
		if !percentInRange(item.DiscountPct) || !percentInRange(item.TaxPct) || !percentInRange(item.RetentionPct) {
			return invoicedomain.ErrInvalidPercent
		}
		if (item.PeriodMonth == nil) != (item.PeriodYear == nil) {
			return invoicedomain.ErrInvalidPeriod
		}
		if item.PeriodMonth != nil && (*item.PeriodMonth < 1 || *item.PeriodMonth > 12) {
			return invoicedomain.ErrInvalidPeriod
		}
		if item.Installment < 0 || item.InstallmentTotal < 0 || item.Installment > max(item.InstallmentTotal, 1) {
			return invoicedomain.ErrInvalidInstallment
		}
	}
	return nil
}

func percentInRange(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}

var hundred = decimal.NewFromInt(100)

func derefItems(items []*invoicedomain.InvoiceItem) []invoicedomain.InvoiceItem {
	out := make([]invoicedomain.InvoiceItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
