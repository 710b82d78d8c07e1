package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/cache"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
)

func addExpense(t *testing.T, ts *testServer, groupID, amount, paidBy string, splitBetween ...string) *api.Expense {
	t.Helper()

	resp, err := ts.ledger.AddExpense(context.Background(), connect.NewRequest(&api.AddExpenseRequest{
		GroupID:      groupID,
		Title:        "Expense",
		Amount:       decimal.RequireFromString(amount),
		PaidBy:       paidBy,
		SplitBetween: splitBetween,
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	return resp.Msg.Expense
}

func getBalances(t *testing.T, ts *testServer, groupID string) *api.GetBalancesResponse {
	t.Helper()

	resp, err := ts.ledger.GetBalances(context.Background(), connect.NewRequest(&api.GetBalancesRequest{
		GroupID: groupID,
	}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	return resp.Msg
}

func netOf(t *testing.T, resp *api.GetBalancesResponse, memberID string) decimal.Decimal {
	t.Helper()

	for _, b := range resp.NetBalances {
		if b.MemberID == memberID {
			return b.NetBalance
		}
	}
	t.Fatalf("no balance for %s", memberID)
	return decimal.Zero
}

func TestAddExpense(t *testing.T) {
	ts := setupTestServer(t, nil)
	group := createRoommates(t, ts.groups)

	expense := addExpense(t, ts, group.ID, "90.00", "alice", "alice", "bob", "bob")

	if expense.ID == "" || expense.CreatedAt == 0 {
		t.Error("expected ID and CreatedAt to be generated")
	}
	if len(expense.SplitBetween) != 2 {
		t.Errorf("expected repeated participant to collapse, got %v", expense.SplitBetween)
	}
	if !expense.Amount.Equal(decimal.NewFromInt(90)) {
		t.Errorf("amount: expected 90, got %s", expense.Amount)
	}
}

func TestAddExpense_Errors(t *testing.T) {
	ts := setupTestServer(t, nil)
	group := createRoommates(t, ts.groups)

	tests := []struct {
		name string
		req  *api.AddExpenseRequest
		want connect.Code
	}{
		{
			name: "zero amount",
			req:  &api.AddExpenseRequest{GroupID: group.ID, Title: "Free", Amount: decimal.Zero, PaidBy: "alice", SplitBetween: []string{"bob"}},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "negative amount",
			req:  &api.AddExpenseRequest{GroupID: group.ID, Title: "Refund", Amount: decimal.NewFromInt(-5), PaidBy: "alice", SplitBetween: []string{"bob"}},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "no participants",
			req:  &api.AddExpenseRequest{GroupID: group.ID, Title: "Nobody", Amount: decimal.NewFromInt(5), PaidBy: "alice"},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "missing title",
			req:  &api.AddExpenseRequest{GroupID: group.ID, Amount: decimal.NewFromInt(5), PaidBy: "alice", SplitBetween: []string{"bob"}},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "payer not in group",
			req:  &api.AddExpenseRequest{GroupID: group.ID, Title: "Taxi", Amount: decimal.NewFromInt(5), PaidBy: "mallory", SplitBetween: []string{"bob"}},
			want: connect.CodeFailedPrecondition,
		},
		{
			name: "participant not in group",
			req:  &api.AddExpenseRequest{GroupID: group.ID, Title: "Taxi", Amount: decimal.NewFromInt(5), PaidBy: "alice", SplitBetween: []string{"bob", "mallory"}},
			want: connect.CodeFailedPrecondition,
		},
		{
			name: "unknown group",
			req:  &api.AddExpenseRequest{GroupID: "nonexistent-id", Title: "Taxi", Amount: decimal.NewFromInt(5), PaidBy: "alice", SplitBetween: []string{"bob"}},
			want: connect.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.ledger.AddExpense(context.Background(), connect.NewRequest(tt.req))
			assertCode(t, err, tt.want)
		})
	}
}

func TestListExpenses(t *testing.T) {
	ts := setupTestServer(t, nil)
	group := createRoommates(t, ts.groups)

	first := addExpense(t, ts, group.ID, "10", "alice", "bob")
	second := addExpense(t, ts, group.ID, "20", "bob", "alice")

	resp, err := ts.ledger.ListExpenses(context.Background(), connect.NewRequest(&api.ListExpensesRequest{
		GroupID: group.ID,
	}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}

	if len(resp.Msg.Expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(resp.Msg.Expenses))
	}
	if resp.Msg.Expenses[0].ID != second.ID || resp.Msg.Expenses[1].ID != first.ID {
		t.Error("expected newest expense first")
	}

	_, err = ts.ledger.ListExpenses(context.Background(), connect.NewRequest(&api.ListExpensesRequest{
		GroupID: "nonexistent-id",
	}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestRecordPayment_Errors(t *testing.T) {
	ts := setupTestServer(t, nil)
	group := createRoommates(t, ts.groups)

	tests := []struct {
		name string
		req  *api.RecordPaymentRequest
		want connect.Code
	}{
		{"zero amount", &api.RecordPaymentRequest{GroupID: group.ID, From: "bob", To: "alice"}, connect.CodeInvalidArgument},
		{"self payment", &api.RecordPaymentRequest{GroupID: group.ID, From: "bob", To: "bob", Amount: decimal.NewFromInt(1)}, connect.CodeInvalidArgument},
		{"missing receiver", &api.RecordPaymentRequest{GroupID: group.ID, From: "bob", Amount: decimal.NewFromInt(1)}, connect.CodeInvalidArgument},
		{"receiver not in group", &api.RecordPaymentRequest{GroupID: group.ID, From: "bob", To: "mallory", Amount: decimal.NewFromInt(1)}, connect.CodeFailedPrecondition},
		{"unknown group", &api.RecordPaymentRequest{GroupID: "nonexistent-id", From: "bob", To: "alice", Amount: decimal.NewFromInt(1)}, connect.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.ledger.RecordPayment(context.Background(), connect.NewRequest(tt.req))
			assertCode(t, err, tt.want)
		})
	}
}

func TestGetBalances_EqualSplitAndPayment(t *testing.T) {
	ts := setupTestServer(t, nil)
	group := createRoommates(t, ts.groups)

	addExpense(t, ts, group.ID, "300", "alice", "alice", "bob", "charlie")

	resp := getBalances(t, ts, group.ID)
	if !netOf(t, resp, "alice").Equal(decimal.NewFromInt(200)) {
		t.Errorf("alice: expected 200, got %s", netOf(t, resp, "alice"))
	}
	if !netOf(t, resp, "bob").Equal(decimal.NewFromInt(-100)) {
		t.Errorf("bob: expected -100, got %s", netOf(t, resp, "bob"))
	}
	if len(resp.Settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(resp.Settlements))
	}
	if resp.Settlements[0].From != "bob" || resp.Settlements[0].ToName != "Alice" {
		t.Errorf("unexpected first settlement: %+v", resp.Settlements[0])
	}
	if !resp.TotalSpent.Equal(decimal.NewFromInt(300)) {
		t.Errorf("total spent: expected 300, got %s", resp.TotalSpent)
	}

	_, err := ts.ledger.RecordPayment(context.Background(), connect.NewRequest(&api.RecordPaymentRequest{
		GroupID: group.ID,
		From:    "bob",
		To:      "alice",
		Amount:  decimal.NewFromInt(100),
	}))
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	resp = getBalances(t, ts, group.ID)
	if !netOf(t, resp, "bob").IsZero() {
		t.Errorf("bob: expected 0 after paying, got %s", netOf(t, resp, "bob"))
	}
	if !netOf(t, resp, "alice").Equal(decimal.NewFromInt(100)) {
		t.Errorf("alice: expected 100, got %s", netOf(t, resp, "alice"))
	}
	if len(resp.Settlements) != 1 || resp.Settlements[0].From != "charlie" {
		t.Errorf("expected only charlie to settle, got %+v", resp.Settlements)
	}
	if len(resp.Payments) != 1 || resp.Payments[0].From != "bob" {
		t.Errorf("expected payment history, got %+v", resp.Payments)
	}
}

func TestGetBalances_RoundingResidual(t *testing.T) {
	ts := setupTestServer(t, nil)
	group := createRoommates(t, ts.groups)

	addExpense(t, ts, group.ID, "100", "alice", "alice", "bob", "charlie")

	resp := getBalances(t, ts, group.ID)
	if !netOf(t, resp, "alice").Equal(decimal.RequireFromString("66.67")) {
		t.Errorf("alice: expected 66.67, got %s", netOf(t, resp, "alice"))
	}
	if len(resp.Residuals) != 1 || resp.Residuals[0].MemberID != "alice" {
		t.Fatalf("expected residual on alice, got %+v", resp.Residuals)
	}
	if !resp.Residuals[0].Amount.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("residual: expected 0.01, got %s", resp.Residuals[0].Amount)
	}
	if got := testutil.ToFloat64(ts.metrics.Residuals); got != 1 {
		t.Errorf("residual metric: expected 1, got %v", got)
	}
}

func TestGetBalances_EmptyGroup(t *testing.T) {
	ts := setupTestServer(t, nil)
	group := createRoommates(t, ts.groups)

	resp := getBalances(t, ts, group.ID)
	if len(resp.NetBalances) != 0 || len(resp.Settlements) != 0 {
		t.Errorf("expected empty report, got %+v", resp)
	}
	if !resp.TotalSpent.IsZero() {
		t.Errorf("total spent: expected 0, got %s", resp.TotalSpent)
	}
}

func TestGetBalances_NotFound(t *testing.T) {
	ts := setupTestServer(t, nil)

	_, err := ts.ledger.GetBalances(context.Background(), connect.NewRequest(&api.GetBalancesRequest{
		GroupID: "nonexistent-id",
	}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestGetBalances_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ts := setupTestServer(t, cache.NewRedisCache(client, time.Minute))
	group := createRoommates(t, ts.groups)
	addExpense(t, ts, group.ID, "300", "alice", "alice", "bob", "charlie")

	first := getBalances(t, ts, group.ID)
	second := getBalances(t, ts, group.ID)

	lookups := ts.metrics.CacheLookups
	if got := testutil.ToFloat64(lookups.WithLabelValues(metrics.CacheMiss)); got != 1 {
		t.Errorf("cache misses: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(lookups.WithLabelValues(metrics.CacheHit)); got != 1 {
		t.Errorf("cache hits: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(ts.metrics.ReportsComputed); got != 1 {
		t.Errorf("reports computed: expected 1, got %v", got)
	}
	if !netOf(t, second, "alice").Equal(netOf(t, first, "alice")) {
		t.Error("cached report differs from computed one")
	}

	// A new record changes the version, so the next read recomputes.
	addExpense(t, ts, group.ID, "30", "bob", "alice")
	third := getBalances(t, ts, group.ID)

	if got := testutil.ToFloat64(ts.metrics.ReportsComputed); got != 2 {
		t.Errorf("reports computed: expected 2, got %v", got)
	}
	if !netOf(t, third, "alice").Equal(decimal.NewFromInt(170)) {
		t.Errorf("alice: expected 170, got %s", netOf(t, third, "alice"))
	}
}

func TestGetBalances_CacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	ts := setupTestServer(t, cache.NewRedisCache(client, time.Minute))
	group := createRoommates(t, ts.groups)
	addExpense(t, ts, group.ID, "60", "alice", "bob")
	mr.Close()

	resp := getBalances(t, ts, group.ID)
	if !netOf(t, resp, "bob").Equal(decimal.NewFromInt(-60)) {
		t.Errorf("bob: expected -60, got %s", netOf(t, resp, "bob"))
	}
	if got := testutil.ToFloat64(ts.metrics.CacheLookups.WithLabelValues(metrics.CacheError)); got != 1 {
		t.Errorf("cache errors: expected 1, got %v", got)
	}
}

// lateWriteStore records a payment right after the next GroupPayments read
// returns, as a concurrent RecordPayment would.
type lateWriteStore struct {
	storage.Store
	armed   atomic.Bool
	payment models.SettlementPayment
}

func (s *lateWriteStore) GroupPayments(ctx context.Context, groupID string) (string, []*models.SettlementPayment, error) {
	version, payments, err := s.Store.GroupPayments(ctx, groupID)
	if err == nil && s.armed.CompareAndSwap(true, false) {
		p := s.payment
		p.GroupID = groupID
		if err := s.Store.CreatePayment(ctx, &p); err != nil {
			return "", nil, err
		}
	}
	return version, payments, err
}

func TestGetBalances_CacheHitWithConcurrentPayment(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	late := &lateWriteStore{payment: models.SettlementPayment{
		From:   "bob",
		To:     "alice",
		Amount: decimal.NewFromInt(100),
	}}
	ts := setupTestServerWithStore(t, cache.NewRedisCache(client, time.Minute), func(store storage.Store) storage.Store {
		late.Store = store
		return late
	})
	group := createRoommates(t, ts.groups)
	addExpense(t, ts, group.ID, "300", "alice", "alice", "bob", "charlie")

	getBalances(t, ts, group.ID)

	// The payment lands after the read, so this response must still describe
	// the group without it.
	late.armed.Store(true)
	hit := getBalances(t, ts, group.ID)

	if got := testutil.ToFloat64(ts.metrics.CacheLookups.WithLabelValues(metrics.CacheHit)); got != 1 {
		t.Fatalf("cache hits: expected 1, got %v", got)
	}
	if len(hit.Payments) != 0 {
		t.Errorf("payments: expected 0 in history, got %d", len(hit.Payments))
	}
	if !netOf(t, hit, "bob").Equal(decimal.NewFromInt(-100)) {
		t.Errorf("bob: expected -100, got %s", netOf(t, hit, "bob"))
	}

	after := getBalances(t, ts, group.ID)

	if got := testutil.ToFloat64(ts.metrics.ReportsComputed); got != 2 {
		t.Errorf("reports computed: expected 2, got %v", got)
	}
	if len(after.Payments) != 1 {
		t.Errorf("payments: expected 1 in history, got %d", len(after.Payments))
	}
	if !netOf(t, after, "bob").IsZero() {
		t.Errorf("bob: expected 0, got %s", netOf(t, after, "bob"))
	}
	if len(after.Settlements) != 1 || after.Settlements[0].From != "charlie" || after.Settlements[0].To != "alice" {
		t.Errorf("settlements: expected charlie -> alice only, got %+v", after.Settlements)
	}
}

func TestNewLedgerService_NilMetrics(t *testing.T) {
	store := newTestStore(t)
	group := &models.Group{Name: "Trip", Members: []models.Member{{ID: "alice", Name: "Alice"}, {ID: "bob", Name: "Bob"}}}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	svc := NewLedgerService(store, nil, nil)

	resp, err := svc.GetBalances(context.Background(), connect.NewRequest(&api.GetBalancesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if len(resp.Msg.NetBalances) != 2 {
		t.Errorf("balances: expected 2, got %d", len(resp.Msg.NetBalances))
	}
}
