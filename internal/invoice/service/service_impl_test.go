package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/inmoflow/inmoflow/internal/config"
	invoicedomain "github.com/inmoflow/inmoflow/internal/invoice/domain"
	"github.com/inmoflow/inmoflow/internal/invoice/fingerprint"
	"github.com/inmoflow/inmoflow/internal/invoice/sequence"
	pkgdb "github.com/inmoflow/inmoflow/pkg/db"
	"github.com/inmoflow/inmoflow/pkg/tenantctx"
)

func newTestService(t *testing.T) (invoicedomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&invoicedomain.InvoiceSequence{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	holder := config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig())

	allocator := sequence.NewAllocator(sequence.AllocatorParam{
		Log:       log,
		GenID:     node,
		Invoicing: holder,
	})

	svc := NewService(ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		Allocator: allocator,
		Chainer:   fingerprint.NewChainer(),
		Invoicing: holder,
	})
	return svc, db
}

func tenantContext(tenantID int64) context.Context {
	return tenantctx.WithTenantID(context.Background(), snowflake.ID(tenantID))
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }

func rentRequest(periodMonth, periodYear int) invoicedomain.CreateInvoiceRequest {
	propertyID := snowflake.ID(501)
	return invoicedomain.CreateInvoiceRequest{
		Type:       invoicedomain.InvoiceTypeOrdinary,
		IssueDate:  time.Date(periodYear, time.Month(periodMonth), 1, 0, 0, 0, 0, time.UTC),
		ClientID:   snowflake.ID(301),
		PropertyID: &propertyID,
		Items: []invoicedomain.LineItemInput{
			{
				Category:    invoicedomain.CategoryRent,
				Description: fmt.Sprintf("Rent %02d/%d", periodMonth, periodYear),
				UnitPrice:   d("1000.00"),
				ApplyTax:    true,
				TaxPct:      d("21"),
				PeriodMonth: intPtr(periodMonth),
				PeriodYear:  intPtr(periodYear),
			},
		},
	}
}

func TestCreateDraftComputesTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	invoice, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)

	assert.Equal(t, invoicedomain.InvoiceStatusDraft, invoice.Status)
	assert.Nil(t, invoice.InvoiceNumber)
	assert.Nil(t, invoice.Fingerprint)
	assert.Equal(t, "1000.00", invoice.TaxableAmount.StringFixed(2))
	assert.Equal(t, "210.00", invoice.TaxAmount.StringFixed(2))
	assert.Equal(t, "0.00", invoice.RetentionAmount.StringFixed(2))
	assert.Equal(t, "1210.00", invoice.TotalAmount.StringFixed(2))
	require.Len(t, invoice.Items, 1)
	assert.Equal(t, "1210.00", invoice.Items[0].TotalAmount.StringFixed(2))
}

func TestCreateRequiresTenantScope(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), rentRequest(3, 2026))
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidTenant)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	noItems := rentRequest(3, 2026)
	noItems.Items = nil
	_, err := svc.Create(ctx, noItems)
	assert.ErrorIs(t, err, invoicedomain.ErrEmptyItems)

	badType := rentRequest(3, 2026)
	badType.Type = invoicedomain.InvoiceType("PROFORMA")
	_, err = svc.Create(ctx, badType)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceType)

	badPct := rentRequest(3, 2026)
	badPct.Items[0].TaxPct = d("101")
	_, err = svc.Create(ctx, badPct)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPercent)

	negativePrice := rentRequest(3, 2026)
	negativePrice.Items[0].UnitPrice = d("-1")
	_, err = svc.Create(ctx, negativePrice)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidUnitPrice)

	halfPeriod := rentRequest(3, 2026)
	halfPeriod.Items[0].PeriodYear = nil
	_, err = svc.Create(ctx, halfPeriod)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPeriod)

	badMonth := rentRequest(3, 2026)
	badMonth.Items[0].PeriodMonth = intPtr(13)
	_, err = svc.Create(ctx, badMonth)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPeriod)
}

func TestEmitAssignsSequentialNumbers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	first, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)
	second, err := svc.Create(ctx, rentRequest(4, 2026))
	require.NoError(t, err)

	emitted1, err := svc.Emit(ctx, first.ID.String())
	require.NoError(t, err)
	emitted2, err := svc.Emit(ctx, second.ID.String())
	require.NoError(t, err)

	assert.Equal(t, invoicedomain.InvoiceStatusEmitted, emitted1.Status)
	assert.Equal(t, "2026/000001", emitted1.NumberOrEmpty())
	assert.Equal(t, "2026/000002", emitted2.NumberOrEmpty())
	assert.NotNil(t, emitted1.EmittedAt)
	require.NotNil(t, emitted1.Fingerprint)
	assert.Len(t, *emitted1.Fingerprint, 64)
}

func TestEmitRectificativeUsesOwnSeries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	ordinary, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)
	_, err = svc.Emit(ctx, ordinary.ID.String())
	require.NoError(t, err)

	rectReq := rentRequest(4, 2026)
	rectReq.Type = invoicedomain.InvoiceTypeRectificative
	rect, err := svc.Create(ctx, rectReq)
	require.NoError(t, err)

	emitted, err := svc.Emit(ctx, rect.ID.String())
	require.NoError(t, err)
	// The rectificative stream starts at 1 even though the ordinary
	// stream already issued a number.
	assert.Equal(t, "R-2026/000001", emitted.NumberOrEmpty())
}

func TestEmitYearComesFromIssueDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	backdated, err := svc.Create(ctx, rentRequest(12, 2025))
	require.NoError(t, err)
	current, err := svc.Create(ctx, rentRequest(1, 2026))
	require.NoError(t, err)

	emittedOld, err := svc.Emit(ctx, backdated.ID.String())
	require.NoError(t, err)
	emittedNew, err := svc.Emit(ctx, current.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "2025/000001", emittedOld.NumberOrEmpty())
	assert.Equal(t, "2026/000001", emittedNew.NumberOrEmpty())
}

func TestEmitIsSingleShot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	invoice, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)

	_, err = svc.Emit(ctx, invoice.ID.String())
	require.NoError(t, err)

	_, err = svc.Emit(ctx, invoice.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotDraft)
}

func TestEmitUnknownInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	_, err := svc.Emit(ctx, snowflake.ID(999999).String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestDuplicateChargeRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	_, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)

	_, err = svc.Create(ctx, rentRequest(3, 2026))
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateCharge)

	// A different period is a different charge.
	_, err = svc.Create(ctx, rentRequest(4, 2026))
	assert.NoError(t, err)
}

func TestDuplicateChargeRejectedWithinOneRequest(t *testing.T) {
	svc, db := newTestService(t)
	ctx := tenantContext(100)

	req := rentRequest(3, 2026)
	req.Items = append(req.Items, req.Items[0])

	_, err := svc.Create(ctx, req)
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateCharge)

	var count int64
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestUpdateDraftRejectsDuplicateWithinBatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	invoice, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)

	line := rentRequest(4, 2026).Items[0]
	_, err = svc.UpdateDraft(ctx, invoice.ID.String(), invoicedomain.UpdateDraftRequest{
		Items: []invoicedomain.LineItemInput{line, line},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateCharge)

	// The draft keeps its original period.
	reloaded, err := svc.GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, 3, *reloaded.Items[0].PeriodMonth)
}

func TestDuplicateChargeScopedToTenant(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(tenantContext(100), rentRequest(3, 2026))
	require.NoError(t, err)

	_, err = svc.Create(tenantContext(200), rentRequest(3, 2026))
	assert.NoError(t, err)
}

func TestCancelledInvoiceDoesNotBlockRebilling(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	invoice, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)
	_, err = svc.Emit(ctx, invoice.ID.String())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, invoice.ID.String())
	require.NoError(t, err)

	replacement, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, replacement.Status)
}

func TestUpdateDraftRecomputesTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	invoice, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)

	updated, err := svc.UpdateDraft(ctx, invoice.ID.String(), invoicedomain.UpdateDraftRequest{
		Items: []invoicedomain.LineItemInput{
			{
				Category:    invoicedomain.CategoryRent,
				Description: "Rent 03/2026",
				UnitPrice:   d("800.00"),
				ApplyTax:    true,
				TaxPct:      d("10"),
				PeriodMonth: intPtr(3),
				PeriodYear:  intPtr(2026),
			},
			{
				Category:    invoicedomain.CategoryUtilities,
				Description: "Water",
				UnitPrice:   d("45.50"),
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "845.50", updated.TaxableAmount.StringFixed(2))
	assert.Equal(t, "80.00", updated.TaxAmount.StringFixed(2))
	assert.Equal(t, "925.50", updated.TotalAmount.StringFixed(2))
	assert.Len(t, updated.Items, 2)
}

func TestUpdateDraftKeepsItemsWhenNil(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	invoice, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)

	newDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	updated, err := svc.UpdateDraft(ctx, invoice.ID.String(), invoicedomain.UpdateDraftRequest{
		IssueDate: &newDate,
	})
	require.NoError(t, err)
	assert.True(t, newDate.Equal(updated.IssueDate))
	assert.Equal(t, "1210.00", updated.TotalAmount.StringFixed(2))

	reloaded, err := svc.GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 1)
}

func TestUpdateDraftRejectedAfterEmission(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	invoice, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)
	_, err = svc.Emit(ctx, invoice.ID.String())
	require.NoError(t, err)

	_, err = svc.UpdateDraft(ctx, invoice.ID.String(), invoicedomain.UpdateDraftRequest{
		Items: rentRequest(5, 2026).Items,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotDraft)
}

func TestRemoveDraftOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	draft, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, draft.ID.String()))

	_, err = svc.GetByID(ctx, draft.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	emittedDraft, err := svc.Create(ctx, rentRequest(4, 2026))
	require.NoError(t, err)
	_, err = svc.Emit(ctx, emittedDraft.ID.String())
	require.NoError(t, err)

	err = svc.Remove(ctx, emittedDraft.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotDraft)
}

func TestCancelTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	draft, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, draft.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotEmitted)

	emitted, err := svc.Emit(ctx, draft.ID.String())
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, draft.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	// The legal number survives cancellation.
	assert.Equal(t, emitted.NumberOrEmpty(), cancelled.NumberOrEmpty())

	_, err = svc.Cancel(ctx, draft.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotEmitted)
}

func TestCancelledNumberIsNeverReused(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	first, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)
	_, err = svc.Emit(ctx, first.ID.String())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, first.ID.String())
	require.NoError(t, err)

	second, err := svc.Create(ctx, rentRequest(4, 2026))
	require.NoError(t, err)
	emitted, err := svc.Emit(ctx, second.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "2026/000002", emitted.NumberOrEmpty())
}

func TestFingerprintChainsPerTenant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	first, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)
	emitted1, err := svc.Emit(ctx, first.ID.String())
	require.NoError(t, err)

	second, err := svc.Create(ctx, rentRequest(4, 2026))
	require.NoError(t, err)
	emitted2, err := svc.Emit(ctx, second.ID.String())
	require.NoError(t, err)

	require.NotNil(t, emitted1.Fingerprint)
	require.NotNil(t, emitted2.Fingerprint)
	assert.NotEqual(t, *emitted1.Fingerprint, *emitted2.Fingerprint)

	// The second digest links to the first.
	chainer := fingerprint.NewChainer()
	assert.Equal(t, *emitted2.Fingerprint, chainer.Fingerprint(emitted2, *emitted1.Fingerprint))
}

func TestConcurrentEmissionsAssignUniqueNumbers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	const n = 8
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		invoice, err := svc.Create(ctx, rentRequest(i+1, 2026))
		require.NoError(t, err)
		ids[i] = invoice.ID.String()
	}

	numbers := make(chan string, n)
	failures := make(chan error, n)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for attempt := 0; attempt < 200; attempt++ {
				emitted, err := svc.Emit(ctx, id)
				if err == nil {
					numbers <- emitted.NumberOrEmpty()
					return
				}
				if errors.Is(err, invoicedomain.ErrSequenceBusy) ||
					pkgdb.IsLockTimeoutErr(err) ||
					strings.Contains(err.Error(), "locked") {
					time.Sleep(2 * time.Millisecond)
					continue
				}
				failures <- err
				return
			}
			failures <- fmt.Errorf("emit %s: retries exhausted", id)
		}(id)
	}
	wg.Wait()
	close(numbers)
	close(failures)

	for err := range failures {
		t.Fatalf("concurrent emit: %v", err)
	}

	suffixes := make([]int, 0, n)
	seen := make(map[string]bool, n)
	for number := range numbers {
		assert.False(t, seen[number], "number %s assigned twice", number)
		seen[number] = true

		parts := strings.Split(number, "/")
		require.Len(t, parts, 2)
		suffix, err := strconv.Atoi(parts[1])
		require.NoError(t, err)
		suffixes = append(suffixes, suffix)
	}

	// Gapless: the n emissions consume exactly 1..n.
	require.Len(t, suffixes, n)
	sort.Ints(suffixes)
	for i, suffix := range suffixes {
		assert.Equal(t, i+1, suffix)
	}
}

func TestGetByIDScopedToTenant(t *testing.T) {
	svc, _ := newTestService(t)

	invoice, err := svc.Create(tenantContext(100), rentRequest(3, 2026))
	require.NoError(t, err)

	_, err = svc.GetByID(tenantContext(200), invoice.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantContext(100)

	draft, err := svc.Create(ctx, rentRequest(3, 2026))
	require.NoError(t, err)
	other, err := svc.Create(ctx, rentRequest(4, 2026))
	require.NoError(t, err)
	_, err = svc.Emit(ctx, other.ID.String())
	require.NoError(t, err)

	all, err := svc.List(ctx, invoicedomain.ListInvoicesRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Invoices, 2)

	draftStatus := invoicedomain.InvoiceStatusDraft
	drafts, err := svc.List(ctx, invoicedomain.ListInvoicesRequest{Status: &draftStatus})
	require.NoError(t, err)
	require.Len(t, drafts.Invoices, 1)
	assert.Equal(t, draft.ID, drafts.Invoices[0].ID)

	empty, err := svc.List(tenantContext(200), invoicedomain.ListInvoicesRequest{})
	require.NoError(t, err)
	assert.Empty(t, empty.Invoices)

	from := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	late, err := svc.List(ctx, invoicedomain.ListInvoicesRequest{IssuedFrom: &from})
	require.NoError(t, err)
	require.Len(t, late.Invoices, 1)
	assert.Equal(t, other.ID, late.Invoices[0].ID)
}
