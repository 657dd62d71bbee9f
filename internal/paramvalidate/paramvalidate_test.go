package paramvalidate

import (
	"testing"

	"github.com/clobcore/matchcore/internal/matchcore"
	"github.com/clobcore/matchcore/internal/slab"
	"github.com/stretchr/testify/require"
)

func validRequest() NewOrderRequest {
	return NewOrderRequest{
		MarketID:          "BTC-USD",
		MaxAssetQty:       10,
		MaxQuoteQty:       1000,
		Side:              "bid",
		LimitPrice:        100,
		CallbackInfo:      []byte("owner-1"),
		SelfTradeBehavior: "cancel_provide",
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	v := New()
	require.NoError(t, v.Validate(validRequest()))
}

func TestValidateRejectsZeroQuantity(t *testing.T) {
	v := New()
	req := validRequest()
	req.MaxAssetQty = 0
	require.Error(t, v.Validate(req))
}

func TestValidateRejectsBadSide(t *testing.T) {
	v := New()
	req := validRequest()
	req.Side = "sideways"
	require.Error(t, v.Validate(req))
}

func TestValidateRejectsBadSelfTradeBehavior(t *testing.T) {
	v := New()
	req := validRequest()
	req.SelfTradeBehavior = "ignore"
	require.Error(t, v.Validate(req))
}

func TestToParamsTranslatesEnums(t *testing.T) {
	params, err := ToParams(validRequest())
	require.NoError(t, err)
	require.Equal(t, slab.Bid, params.Side)
	require.Equal(t, matchcore.CancelProvide, params.SelfTradeBehavior)
}
