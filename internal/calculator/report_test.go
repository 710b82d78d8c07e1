package calculator

import (
	"errors"
	"testing"
)

func TestBuildReport(t *testing.T) {
	expenses := []Expense{
		{ID: "e1", Amount: dec("300"), PayerID: "a", ParticipantIDs: []string{"a", "b", "c"}},
		{ID: "e2", Amount: dec("45.50"), PayerID: "b", ParticipantIDs: []string{"b"}},
	}
	payments := []Payment{
		{ID: "p1", FromID: "b", ToID: "a", Amount: dec("100")},
	}

	report, err := BuildReport(roster, expenses, payments)
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}

	if !report.TotalSpent.Equal(dec("345.50")) {
		t.Errorf("TotalSpent = %s, want 345.50", report.TotalSpent)
	}
	if len(report.NetBalances) != 3 {
		t.Fatalf("got %d balances, want 3", len(report.NetBalances))
	}
	if got := balanceOf(t, report.NetBalances, "b"); !got.NetBalance.IsZero() {
		t.Errorf("b balance = %s, want 0", got.NetBalance)
	}
	if len(report.Settlements) != 1 {
		t.Fatalf("got %d settlements, want 1", len(report.Settlements))
	}
	s := report.Settlements[0]
	if s.From != charlie || s.To != alice || !s.Amount.Equal(dec("100")) {
		t.Errorf("settlement = %v, want Charlie -> Alice 100", s)
	}
	if report.HasResidual() {
		t.Errorf("unexpected residuals: %v", report.Residuals)
	}
}

func TestBuildReport_EmptyGroup(t *testing.T) {
	report, err := BuildReport(nil, nil, nil)
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}
	if len(report.NetBalances) != 0 || len(report.Settlements) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
	if !report.TotalSpent.IsZero() {
		t.Errorf("TotalSpent = %s, want 0", report.TotalSpent)
	}
}

func TestBuildReport_FailsFast(t *testing.T) {
	expenses := []Expense{
		{ID: "e1", Amount: dec("10"), PayerID: "a", ParticipantIDs: []string{"a"}},
		{ID: "e2", Amount: dec("10"), PayerID: "a", ParticipantIDs: nil},
	}
	report, err := BuildReport(roster, expenses, nil)
	if !errors.Is(err, ErrInvalidExpense) {
		t.Fatalf("BuildReport() error = %v, want ErrInvalidExpense", err)
	}
	if report != nil {
		t.Errorf("expected no partial report, got %+v", report)
	}
}
