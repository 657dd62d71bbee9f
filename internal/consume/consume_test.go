package consume

import (
	"context"
	"testing"

	"github.com/clobcore/matchcore/internal/eventqueue"
	matcherrors "github.com/clobcore/matchcore/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func defaultSettings() gobreaker.Settings {
	return gobreaker.Settings{Name: "test-consume"}
}

func TestConsumeProportionalReward(t *testing.T) {
	q := eventqueue.New(8)
	for i := 0; i < 4; i++ {
		require.NoError(t, q.PushBack(eventqueue.Event{Kind: eventqueue.KindOut}))
	}
	market := &Market{ID: "m1", FeeBudget: 100, EscrowBal: 1000, Queue: q}

	var paidTo string
	var paidAmount uint64
	c := NewConsumer(nil, func(ctx context.Context, marketID, target string, amount uint64) error {
		paidTo, paidAmount = target, amount
		return nil
	}, defaultSettings(), nil)

	result, err := c.Consume(context.Background(), market, Params{NumberOfEntriesToConsume: 2, RewardTarget: "acct"})
	require.NoError(t, err)
	require.Equal(t, uint64(2), result.EntriesConsumed)
	require.Equal(t, uint64(50), result.Reward)
	require.Equal(t, "acct", paidTo)
	require.Equal(t, uint64(50), paidAmount)
	require.EqualValues(t, 2, q.Count())
}

func TestConsumeCapsAtCount(t *testing.T) {
	q := eventqueue.New(8)
	require.NoError(t, q.PushBack(eventqueue.Event{Kind: eventqueue.KindOut}))
	market := &Market{ID: "m1", FeeBudget: 100, EscrowBal: 1000, Queue: q}

	c := NewConsumer(nil, func(ctx context.Context, marketID, target string, amount uint64) error {
		return nil
	}, defaultSettings(), nil)

	result, err := c.Consume(context.Background(), market, Params{NumberOfEntriesToConsume: 10})
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.EntriesConsumed)
	require.Equal(t, uint64(100), result.Reward)
}

func TestConsumeNoOperationsOnEmptyQueue(t *testing.T) {
	q := eventqueue.New(8)
	market := &Market{ID: "m1", FeeBudget: 100, EscrowBal: 1000, Queue: q}

	c := NewConsumer(nil, func(ctx context.Context, marketID, target string, amount uint64) error {
		return nil
	}, defaultSettings(), nil)

	_, err := c.Consume(context.Background(), market, Params{NumberOfEntriesToConsume: 1})
	require.Error(t, err)
	require.Equal(t, matcherrors.ErrNoOperations, matcherrors.Code(err))
}

func TestConsumeInsufficientEscrow(t *testing.T) {
	q := eventqueue.New(8)
	require.NoError(t, q.PushBack(eventqueue.Event{Kind: eventqueue.KindOut}))
	market := &Market{ID: "m1", FeeBudget: 1000, EscrowBal: 5, Queue: q}

	c := NewConsumer(nil, func(ctx context.Context, marketID, target string, amount uint64) error {
		return nil
	}, defaultSettings(), nil)

	_, err := c.Consume(context.Background(), market, Params{NumberOfEntriesToConsume: 1})
	require.Error(t, err)
	require.Equal(t, matcherrors.ErrInsufficientEscrow, matcherrors.Code(err))
	require.EqualValues(t, 1, q.Count())
}
