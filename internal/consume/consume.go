// Package consume implements the consume-events collaborator: it
// dequeues processed events from a market's queue and pays out a
// proportional share of the market's fee budget to a reward target.
// This sits outside the matching core by design (spec treats fee
// accounting and lamport movement as an external concern) but a
// complete repository needs something to drive it.
package consume

import (
	"context"

	"github.com/clobcore/matchcore/internal/eventqueue"
	"github.com/clobcore/matchcore/internal/metrics"
	matcherrors "github.com/clobcore/matchcore/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// PayoutFunc transfers amount from a market's escrow balance to a
// reward target account. It is the host's responsibility; consume
// only calls it through a circuit breaker.
type PayoutFunc func(ctx context.Context, marketID string, rewardTarget string, amount uint64) error

// Market is the minimal market-side state consume needs: a queue to
// pop from and a fee budget to prorate.
type Market struct {
	ID         string
	FeeBudget  uint64
	Queue      *eventqueue.Queue
	EscrowBal  uint64
}

// Params mirrors the CLI-level surface of the original consume-events
// instruction.
type Params struct {
	NumberOfEntriesToConsume uint64
	RewardTarget             string
}

// Result reports what one Consume call actually did.
type Result struct {
	EntriesConsumed uint64
	Reward          uint64
	Events          []eventqueue.Event
}

// Consumer drives consume-events calls for one market, wrapping the
// payout in a circuit breaker so a failing payout path doesn't wedge
// every subsequent call behind a slow timeout.
type Consumer struct {
	logger  *zap.Logger
	payout  PayoutFunc
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.MatcherMetrics
}

// NewConsumer builds a Consumer. breakerSettings follows the same
// failure-ratio defaults the rest of the host uses for outbound calls.
// m may be nil to disable reward-payout metrics.
func NewConsumer(logger *zap.Logger, payout PayoutFunc, breakerSettings gobreaker.Settings, m *metrics.MatcherMetrics) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		logger:  logger,
		payout:  payout,
		breaker: gobreaker.NewCircuitBreaker(breakerSettings),
		metrics: m,
	}
}

// Consume pops up to params.NumberOfEntriesToConsume events from
// market's queue and pays out the proportional reward:
//
//	reward = (fee_budget * min(requested, count)) / count
//
// Returns NoOperations if the queue is empty (the division guard).
func (c *Consumer) Consume(ctx context.Context, market *Market, params Params) (Result, error) {
	count := uint64(market.Queue.Count())
	if count == 0 {
		return Result{}, matcherrors.New(matcherrors.ErrNoOperations, "event queue has no pending entries")
	}

	capped := params.NumberOfEntriesToConsume
	if capped > count {
		capped = count
	}

	reward := (market.FeeBudget * capped) / count

	if reward > market.EscrowBal {
		return Result{}, matcherrors.New(matcherrors.ErrInsufficientEscrow, "market escrow cannot cover proportional reward").
			WithDetail("reward", reward).
			WithDetail("escrow_balance", market.EscrowBal)
	}

	if _, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.payout(ctx, market.ID, params.RewardTarget, reward)
	}); err != nil {
		c.logger.Error("consume-events payout failed",
			zap.String("market", market.ID),
			zap.Uint64("reward", reward),
			zap.Error(err))
		return Result{}, err
	}

	market.FeeBudget -= reward
	market.EscrowBal -= reward
	events := market.Queue.PopN(uint32(capped))

	if c.metrics != nil {
		c.metrics.RecordConsumeReward(market.ID, float64(reward))
	}

	return Result{EntriesConsumed: uint64(len(events)), Reward: reward, Events: events}, nil
}
