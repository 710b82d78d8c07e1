package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/splitledger/internal/cache"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// LedgerService implements the Connect LedgerService: expense and payment
// records, and the balances derived from them.
type LedgerService struct {
	apiconnect.UnimplementedLedgerServiceHandler
	store   storage.Store
	cache   cache.ReportCache
	metrics *metrics.Metrics
}

// NewLedgerService creates a LedgerService. A nil cache disables report
// caching. A nil m records metrics into a private registry that is never
// exported.
func NewLedgerService(store storage.Store, reports cache.ReportCache, m *metrics.Metrics) *LedgerService {
	if reports == nil {
		reports = cache.NopCache{}
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &LedgerService{store: store, cache: reports, metrics: m}
}

// AddExpense records an expense. The payer and every participant must be
// on the group roster.
func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	slog.Info("AddExpense request received",
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
		"paid_by", req.Msg.PaidBy,
		"participants_count", len(req.Msg.SplitBetween),
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:      req.Msg.GroupID,
		Title:        req.Msg.Title,
		Description:  req.Msg.Description,
		Amount:       req.Msg.Amount,
		PaidBy:       req.Msg.PaidBy,
		SplitBetween: dedupe(req.Msg.SplitBetween),
	}

	if err := calculator.ValidateExpense(toCalculatorExpense(expense)); err != nil {
		slog.Warn("AddExpense rejected", "group_id", expense.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	group, err := s.store.GetGroup(ctx, expense.GroupID)
	if err != nil {
		slog.Error("AddExpense failed - group not found", "group_id", expense.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	ids := append([]string{expense.PaidBy}, expense.SplitBetween...)
	if err := calculator.CheckMembers(toRoster(group), ids...); err != nil {
		slog.Warn("AddExpense rejected", "group_id", expense.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("AddExpense failed", "group_id", expense.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense recorded", "group_id", expense.GroupID, "expense_id", expense.ID)

	return connect.NewResponse(&api.AddExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// ListExpenses returns a group's expenses, newest first.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	slog.Info("ListExpenses request received", "group_id", req.Msg.GroupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	// Distinguish an empty group from a missing one.
	if _, err := s.store.GetGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("ListExpenses failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(e)
	}

	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// RecordPayment records a settlement payment between two group members.
func (s *LedgerService) RecordPayment(ctx context.Context, req *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.RecordPaymentResponse], error) {
	slog.Info("RecordPayment request received",
		"group_id", req.Msg.GroupID,
		"from", req.Msg.From,
		"to", req.Msg.To,
		"amount", req.Msg.Amount,
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	payment := &models.SettlementPayment{
		GroupID: req.Msg.GroupID,
		From:    req.Msg.From,
		To:      req.Msg.To,
		Amount:  req.Msg.Amount,
	}

	if err := calculator.ValidatePayment(toCalculatorPayment(payment)); err != nil {
		slog.Warn("RecordPayment rejected", "group_id", payment.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	group, err := s.store.GetGroup(ctx, payment.GroupID)
	if err != nil {
		slog.Error("RecordPayment failed - group not found", "group_id", payment.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	if err := calculator.CheckMembers(toRoster(group), payment.From, payment.To); err != nil {
		slog.Warn("RecordPayment rejected", "group_id", payment.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.CreatePayment(ctx, payment); err != nil {
		slog.Error("RecordPayment failed", "group_id", payment.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Payment recorded", "group_id", payment.GroupID, "payment_id", payment.ID)

	return connect.NewResponse(&api.RecordPaymentResponse{Payment: toAPIPayment(payment)}), nil
}

// ListPayments returns a group's settlement payments, newest first.
func (s *LedgerService) ListPayments(ctx context.Context, req *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error) {
	slog.Info("ListPayments request received", "group_id", req.Msg.GroupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	if _, err := s.store.GetGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}

	payments, err := s.store.ListPaymentsByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("ListPayments failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Payment, len(payments))
	for i, p := range payments {
		out[i] = toAPIPayment(p)
	}

	return connect.NewResponse(&api.ListPaymentsResponse{Payments: out}), nil
}

// GetBalances returns net balances, suggested settlements and payment history
// for a group. Reports are served from the cache while the group version is
// unchanged.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	groupID := req.Msg.GroupID
	slog.Info("GetBalances request received", "group_id", groupID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	// The history and the version come from one read, so a cached report is
	// only ever paired with the payments it was computed from.
	version, history, err := s.store.GroupPayments(ctx, groupID)
	if err != nil {
		slog.Error("GetBalances failed - could not read group", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	report, hit := s.cachedReport(ctx, groupID, version)
	if hit {
		return connect.NewResponse(toBalancesResponse(report, history)), nil
	}

	snap, err := s.store.GroupSnapshot(ctx, groupID)
	if err != nil {
		slog.Error("GetBalances failed - could not read snapshot", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	report, err = s.computeReport(snap)
	if err != nil {
		slog.Error("GetBalances failed - calculation error", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	if err := s.cache.Set(ctx, groupID, snap.Version, report); err != nil {
		slog.Warn("Failed to cache report", "group_id", groupID, "error", err)
	}

	payments := slices.Clone(snap.Payments)
	slices.Reverse(payments)

	slog.Info("GetBalances successful",
		"group_id", groupID,
		"expenses_count", len(snap.Expenses),
		"payments_count", len(snap.Payments),
		"settlements_count", len(report.Settlements),
	)

	return connect.NewResponse(toBalancesResponse(report, payments)), nil
}

// cachedReport looks up a report. Cache failures count as misses.
func (s *LedgerService) cachedReport(ctx context.Context, groupID, version string) (*calculator.Report, bool) {
	report, ok, err := s.cache.Get(ctx, groupID, version)
	switch {
	case err != nil:
		slog.Warn("Report cache lookup failed", "group_id", groupID, "error", err)
		s.metrics.CacheLookups.WithLabelValues(metrics.CacheError).Inc()
		return nil, false
	case ok:
		s.metrics.CacheLookups.WithLabelValues(metrics.CacheHit).Inc()
		return report, true
	default:
		s.metrics.CacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
		return nil, false
	}
}

func (s *LedgerService) computeReport(snap *models.Snapshot) (*calculator.Report, error) {
	expenses := make([]calculator.Expense, len(snap.Expenses))
	for i, e := range snap.Expenses {
		expenses[i] = toCalculatorExpense(e)
	}
	payments := make([]calculator.Payment, len(snap.Payments))
	for i, p := range snap.Payments {
		payments[i] = toCalculatorPayment(p)
	}

	start := time.Now()
	report, err := calculator.BuildReport(toRoster(snap.Group), expenses, payments)
	if err != nil {
		return nil, err
	}
	s.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	s.metrics.ReportsComputed.Inc()

	if report.HasResidual() {
		s.metrics.Residuals.Inc()
		for _, r := range report.Residuals {
			slog.Warn("Rounding residual left after settlement",
				"group_id", snap.Group.ID,
				"member_id", r.Member.ID,
				"amount", r.Amount,
			)
		}
	}

	return report, nil
}
