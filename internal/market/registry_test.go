package market

import (
	"bytes"
	"context"
	"testing"

	"github.com/clobcore/matchcore/internal/consume"
	"github.com/clobcore/matchcore/internal/marketpool"
	"github.com/clobcore/matchcore/internal/matchcore"
	"github.com/clobcore/matchcore/internal/slab"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func testSizing() Sizing {
	return Sizing{
		SlabCapacity:       16,
		EventQueueCapacity: 16,
		CallbackInfoLen:    8,
		FeeBudget:          100,
		EscrowBalance:      1000,
	}
}

func TestPlaceOrderCreatesBookLazily(t *testing.T) {
	pool := marketpool.New(nil)
	defer pool.ReleaseAll()

	r := NewRegistry(nil, testSizing(), pool, nil, nil)

	summary, err := r.PlaceOrder(context.Background(), "btc-usd", matchcore.Params{
		MaxAssetQty:  10,
		MaxQuoteQty:  10,
		Side:         slab.Bid,
		LimitPrice:   1 << 32,
		CallbackInfo: make([]byte, 8),
		PostAllowed:  true,
		MatchLimit:   10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 10, summary.TotalAssetQty)
	require.NotNil(t, summary.PostedOrderID)

	r.mu.Lock()
	_, ok := r.books["btc-usd"]
	r.mu.Unlock()
	require.True(t, ok)
}

func TestConsumeEventsDrainsFillFromCrossingOrder(t *testing.T) {
	pool := marketpool.New(nil)
	defer pool.ReleaseAll()

	r := NewRegistry(nil, testSizing(), pool, nil, nil)

	makerInfo := make([]byte, 8)
	_, err := r.PlaceOrder(context.Background(), "btc-usd", matchcore.Params{
		MaxAssetQty:  10,
		Side:         slab.Ask,
		LimitPrice:   1 << 32,
		CallbackInfo: makerInfo,
		PostAllowed:  true,
		MatchLimit:   10,
	})
	require.NoError(t, err)

	takerInfo := bytes.Repeat([]byte{1}, 8)
	summary, err := r.PlaceOrder(context.Background(), "btc-usd", matchcore.Params{
		MaxAssetQty:  10,
		MaxQuoteQty:  10,
		Side:         slab.Bid,
		LimitPrice:   1 << 32,
		CallbackInfo: takerInfo,
		MatchLimit:   10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 10, summary.TotalAssetQty)

	consumer := consume.NewConsumer(nil, func(ctx context.Context, marketID, target string, amount uint64) error {
		return nil
	}, gobreaker.Settings{Name: "test-registry-consume"}, nil)

	result, err := r.ConsumeEvents(context.Background(), "btc-usd", consumer, consume.Params{
		NumberOfEntriesToConsume: 1,
		RewardTarget:             "acct",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, result.EntriesConsumed)
}
