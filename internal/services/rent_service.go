package services

import (
	"context"
	"errors"
	"fmt"

	"rentbook/internal/amqp"
	"rentbook/internal/core"
	"rentbook/internal/invoices"
	"rentbook/internal/ledger"
	"rentbook/internal/log"
	"rentbook/internal/metrics"
)

// ErrExportDisabled is returned by ExportRoster when no exporter is configured.
var ErrExportDisabled = errors.New("roster export is not configured")

// InvoiceStore persists invoice documents.
type InvoiceStore interface {
	StoreInvoice(ctx context.Context, label string, data []byte) error
	GetInvoice(ctx context.Context, label string) (invoices.Invoice, error)
	ListInvoices(ctx context.Context) ([]invoices.Invoice, error)
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher announces successful ledger operations.
type EventPublisher interface {
	PublishTenantAdded(ctx context.Context, t core.Tenant) error
	PublishPaymentRecorded(ctx context.Context, t core.Tenant) error
	Close() error
}

// RosterExporter writes the tenant roster to an external sheet.
type RosterExporter interface {
	ExportRoster(ctx context.Context, tenants []core.Tenant) (int, error)
}

type Option func(*RentService)

func WithPublisher(p EventPublisher) Option {
	return func(s *RentService) { s.publisher = p }
}

func WithExporter(e RosterExporter) Option {
	return func(s *RentService) { s.exporter = e }
}

func WithMetrics(m *metrics.LedgerMetrics) Option {
	return func(s *RentService) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *RentService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

// RentService orchestrates ledger operations with invoice storage, event
// publishing, metrics and roster export. The ledger stays the source of
// truth; publishing and metrics never change an operation's outcome.
type RentService struct {
	ledger    *ledger.Ledger
	store     InvoiceStore
	publisher EventPublisher
	exporter  RosterExporter
	metrics   *metrics.LedgerMetrics
	logger    *log.Logger
}

func NewRentService(l *ledger.Ledger, store InvoiceStore, opts ...Option) *RentService {
	s := &RentService{
		ledger: l,
		store:  store,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.refreshStanding()
	return s
}

// AddTenant onboards a tenant and publishes tenant.added.
func (s *RentService) AddTenant(ctx context.Context, t core.Tenant) error {
	if err := s.ledger.AddTenant(t); err != nil {
		s.metrics.ObserveRejection(log.OpAddTenant, rejectionReason(err))
		s.logger.WarnContext(ctx, "Tenant rejected",
			log.NewFields().WithOperation(log.OpAddTenant).WithTenant(t).WithError(err).ToSlice()...)
		return err
	}

	s.logger.InfoContext(ctx, "Tenant added",
		log.NewFields().WithOperation(log.OpAddTenant).WithTenant(t).ToSlice()...)
	s.refreshStanding()

	s.publish(ctx, amqp.EventTenantAdded, func(p EventPublisher) error {
		return p.PublishTenantAdded(ctx, t)
	})
	return nil
}

// ApplyPayment applies a payment and publishes payment.recorded with the
// updated account state.
func (s *RentService) ApplyPayment(ctx context.Context, name string, method core.PaymentMethod, tag core.PeriodTag, amount core.Money) (core.Tenant, error) {
	updated, err := s.ledger.ApplyPayment(name, method, tag, amount)
	if err != nil {
		s.metrics.ObserveRejection(log.OpApplyPayment, rejectionReason(err))
		s.logger.WarnContext(ctx, "Payment rejected",
			log.FieldOperation, log.OpApplyPayment,
			log.FieldTenant, name,
			log.FieldAmountCents, amount.Cents,
			log.FieldError, err.Error())
		return core.Tenant{}, err
	}

	s.metrics.ObservePayment(updated)
	s.logger.InfoContext(ctx, "Payment applied",
		log.NewFields().WithOperation(log.OpApplyPayment).WithPayment(updated).ToSlice()...)
	s.refreshStanding()

	s.publish(ctx, amqp.EventPaymentRecorded, func(p EventPublisher) error {
		return p.PublishPaymentRecorded(ctx, updated)
	})
	return updated, nil
}

func (s *RentService) FindTenant(name string) (core.Tenant, error) {
	return s.ledger.FindByName(name)
}

func (s *RentService) UnpaidTenants() []core.Tenant {
	return s.ledger.GetUnpaidTenants()
}

func (s *RentService) Tenants() []core.Tenant {
	return s.ledger.Tenants()
}

func (s *RentService) Payments() []core.Tenant {
	return s.ledger.Payments()
}

// StoreInvoice saves an invoice document under label.
func (s *RentService) StoreInvoice(ctx context.Context, label string, data []byte) error {
	err := s.store.StoreInvoice(ctx, label, data)
	s.metrics.ObserveInvoice(len(data), err)
	if err != nil {
		s.logger.WarnContext(ctx, "Invoice not stored",
			log.FieldOperation, log.OpStoreInvoice,
			log.FieldInvoiceLabel, label,
			log.FieldSizeBytes, len(data),
			log.FieldError, err.Error())
		return err
	}
	s.logger.InfoContext(ctx, "Invoice stored",
		log.FieldOperation, log.OpStoreInvoice,
		log.FieldInvoiceLabel, label,
		log.FieldSizeBytes, len(data))
	return nil
}

func (s *RentService) GetInvoice(ctx context.Context, label string) (invoices.Invoice, error) {
	return s.store.GetInvoice(ctx, label)
}

func (s *RentService) ListInvoices(ctx context.Context) ([]invoices.Invoice, error) {
	return s.store.ListInvoices(ctx)
}

// ExportRoster writes every tenant to the configured sheet.
func (s *RentService) ExportRoster(ctx context.Context) (int, error) {
	if s.exporter == nil {
		return 0, ErrExportDisabled
	}
	rows, err := s.exporter.ExportRoster(ctx, s.ledger.Tenants())
	if err != nil {
		s.logger.ErrorContext(ctx, "Roster export failed", log.FieldOperation, log.OpExport, log.FieldError, err.Error())
		return 0, fmt.Errorf("export roster: %w", err)
	}
	s.logger.InfoContext(ctx, "Roster exported", log.FieldOperation, log.OpExport, log.FieldRows, rows)
	return rows, nil
}

func (s *RentService) ExportEnabled() bool {
	return s.exporter != nil
}

// Ready reports whether the invoice store is reachable.
func (s *RentService) Ready(ctx context.Context) error {
	if s.store == nil {
		return errors.New("invoice store not configured")
	}
	return s.store.Ping(ctx)
}

// Close closes the invoice store and the publisher.
func (s *RentService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("invoice store: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *RentService) publish(ctx context.Context, eventType string, fn func(EventPublisher) error) {
	if s.publisher == nil {
		s.metrics.ObserveEvent(eventType, "skipped")
		return
	}
	if err := fn(s.publisher); err != nil {
		s.metrics.ObserveEvent(eventType, "error")
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			"event_type", eventType,
			log.FieldError, err.Error())
		return
	}
	s.metrics.ObserveEvent(eventType, "published")
}

func (s *RentService) refreshStanding() {
	s.metrics.SetStanding(s.ledger.Len(), len(s.ledger.GetUnpaidTenants()))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, core.ErrDuplicateTenant):
		return "duplicate_tenant"
	case errors.Is(err, core.ErrTenantNotFound):
		return "tenant_not_found"
	case errors.Is(err, core.ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "other"
	}
}
