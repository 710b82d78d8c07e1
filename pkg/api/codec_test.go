package api

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec_EmptyBody(t *testing.T) {
	var req GetBalancesRequest
	require.NoError(t, JSONCodec{}.Unmarshal(nil, &req))
	assert.Empty(t, req.GroupID)
}

func TestJSONCodec_AmountsAreStrings(t *testing.T) {
	resp := &GetBalancesResponse{
		NetBalances: []*MemberBalance{{
			MemberID:   "alice",
			Name:       "Alice",
			NetBalance: decimal.RequireFromString("133.33"),
			TotalOwes:  decimal.RequireFromString("66.67"),
		}},
		Settlements: []*Settlement{},
		TotalSpent:  decimal.NewFromInt(200),
	}

	data, err := JSONCodec{}.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"net_balance":"133.33"`)
	assert.NotContains(t, string(data), "residuals")

	var decoded GetBalancesResponse
	require.NoError(t, JSONCodec{}.Unmarshal(data, &decoded))
	require.Len(t, decoded.NetBalances, 1)
	assert.True(t, decoded.NetBalances[0].NetBalance.Equal(resp.NetBalances[0].NetBalance))
}

func TestJSONCodec_AcceptsNumericAmount(t *testing.T) {
	var req AddExpenseRequest
	err := JSONCodec{}.Unmarshal([]byte(`{"group_id":"g1","title":"Dinner","amount":90.5,"paid_by":"alice","split_between":["alice","bob"]}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "90.5", req.Amount.String())
	assert.Equal(t, []string{"alice", "bob"}, req.SplitBetween)
}
