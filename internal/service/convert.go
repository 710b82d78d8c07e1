package service

import (
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest checks the validate tags of a request message.
func validateRequest(msg any) error {
	if err := validate.Struct(msg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf("%s failed on %q", f.Namespace(), f.Tag()))
		}
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// toConnectError maps domain and storage errors to Connect codes.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, calculator.ErrInvalidExpense), errors.Is(err, calculator.ErrInvalidPayment):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, calculator.ErrUnresolvedMember):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		slog.Error("Internal error", "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}

// dedupe returns ids without repeats, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toModelMembers(members []api.Member) []models.Member {
	out := make([]models.Member, len(members))
	for i, m := range members {
		out[i] = models.Member{ID: m.ID, Name: m.Name}
	}
	return out
}

func toAPIGroup(g *models.Group) *api.Group {
	members := make([]api.Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = api.Member{ID: m.ID, Name: m.Name}
	}
	return &api.Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Members:     members,
		CreatedAt:   g.CreatedAt,
	}
}

func toAPIExpense(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Title:        e.Title,
		Description:  e.Description,
		Amount:       e.Amount,
		PaidBy:       e.PaidBy,
		SplitBetween: e.SplitBetween,
		CreatedAt:    e.CreatedAt,
	}
}

func toAPIPayment(p *models.SettlementPayment) *api.Payment {
	return &api.Payment{
		ID:        p.ID,
		GroupID:   p.GroupID,
		From:      p.From,
		To:        p.To,
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt,
	}
}

func toRoster(g *models.Group) []calculator.Member {
	roster := make([]calculator.Member, len(g.Members))
	for i, m := range g.Members {
		roster[i] = calculator.Member{ID: m.ID, Name: m.Name}
	}
	return roster
}

func toCalculatorExpense(e *models.Expense) calculator.Expense {
	return calculator.Expense{
		ID:             e.ID,
		Amount:         e.Amount,
		PayerID:        e.PaidBy,
		ParticipantIDs: e.SplitBetween,
	}
}

func toCalculatorPayment(p *models.SettlementPayment) calculator.Payment {
	return calculator.Payment{
		ID:     p.ID,
		FromID: p.From,
		ToID:   p.To,
		Amount: p.Amount,
	}
}

// toBalancesResponse converts a report. payments must be newest first.
func toBalancesResponse(report *calculator.Report, payments []*models.SettlementPayment) *api.GetBalancesResponse {
	resp := &api.GetBalancesResponse{
		NetBalances: make([]*api.MemberBalance, len(report.NetBalances)),
		Settlements: make([]*api.Settlement, len(report.Settlements)),
		TotalSpent:  report.TotalSpent,
		Payments:    make([]*api.Payment, len(payments)),
	}

	for i, b := range report.NetBalances {
		resp.NetBalances[i] = &api.MemberBalance{
			MemberID:   b.Member.ID,
			Name:       b.Member.Name,
			NetBalance: b.NetBalance,
			TotalOwes:  b.TotalCostBorne,
		}
	}
	for i, s := range report.Settlements {
		resp.Settlements[i] = &api.Settlement{
			From:     s.From.ID,
			FromName: s.From.Name,
			To:       s.To.ID,
			ToName:   s.To.Name,
			Amount:   s.Amount,
		}
	}
	for _, r := range report.Residuals {
		resp.Residuals = append(resp.Residuals, &api.Residual{
			MemberID: r.Member.ID,
			Amount:   r.Amount,
		})
	}
	for i, p := range payments {
		resp.Payments[i] = toAPIPayment(p)
	}

	return resp
}
