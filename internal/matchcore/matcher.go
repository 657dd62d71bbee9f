// Package matchcore implements the price-time-priority matching loop:
// given a newly submitted order, it crosses the opposite side's slab
// best-first, appends Fill/Out events, and optionally rests any
// unfilled remainder on the caller's side.
package matchcore

import (
	"bytes"

	"github.com/clobcore/matchcore/internal/eventqueue"
	"github.com/clobcore/matchcore/internal/fixedpoint"
	"github.com/clobcore/matchcore/internal/metrics"
	"github.com/clobcore/matchcore/internal/slab"
	matcherrors "github.com/clobcore/matchcore/pkg/errors"
	"go.uber.org/zap"
)

// OrderBookState owns both sides of one market's book and runs the
// matching loop against a caller-supplied event queue.
type OrderBookState struct {
	Bids *slab.Slab
	Asks *slab.Slab

	market  string
	logger  *zap.Logger
	metrics *metrics.MatcherMetrics
}

// New constructs a matcher over an existing pair of slabs. bids must be
// tagged Bid and asks must be tagged Ask. market labels the metrics
// this matcher records; m may be nil to disable recording.
func New(market string, bids, asks *slab.Slab, logger *zap.Logger, m *metrics.MatcherMetrics) (*OrderBookState, error) {
	if err := bids.Check(slab.Bid); err != nil {
		return nil, err
	}
	if err := asks.Check(slab.Ask); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderBookState{Bids: bids, Asks: asks, market: market, logger: logger, metrics: m}, nil
}

func (m *OrderBookState) tree(side slab.Side) *slab.Slab {
	if side == slab.Bid {
		return m.Bids
	}
	return m.Asks
}

// bestOf returns the handle of the best resting order on the slab for
// side: bids are best at their max key, asks at their min key.
func bestOf(s *slab.Slab, side slab.Side) (uint32, bool) {
	if side == slab.Bid {
		return s.FindMax()
	}
	return s.FindMin()
}

// evictLeastAggressive removes the least competitive resting order on
// side to free two arena slots. This is the *same* side as the order
// being inserted, never the opposite side.
func evictLeastAggressive(s *slab.Slab, side slab.Side) (slab.LeafNode, bool) {
	if side == slab.Bid {
		return s.RemoveMin()
	}
	return s.RemoveMax()
}

func min64(vs ...uint64) uint64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// NewOrder runs the matching loop described in the package doc and
// returns the resulting summary. The event queue and both slabs may be
// left partially mutated if it returns an error: the caller is
// responsible for rolling back its backing buffers, since the engine
// does no compensating writes of its own.
func (m *OrderBookState) NewOrder(params Params, q *eventqueue.Queue) (eventqueue.OrderSummary, error) {
	assetRemaining := params.MaxAssetQty
	quoteRemaining := params.MaxQuoteQty
	crossed := true
	matchLimit := params.MatchLimit
	opposite := params.Side.Opposite()
	oppositeBook := m.tree(opposite)

	for {
		if matchLimit == 0 {
			break
		}

		bestHandle, ok := bestOf(oppositeBook, opposite)
		if !ok {
			crossed = false
			break
		}
		best, _ := oppositeBook.GetLeaf(bestHandle)
		tradePrice := best.OrderID.Price

		crossed = (params.Side == slab.Bid && params.LimitPrice >= tradePrice) ||
			(params.Side == slab.Ask && params.LimitPrice <= tradePrice)

		if params.PostOnly {
			break
		}

		assetTradeQty := min64(best.AssetQty, assetRemaining, fixedpoint.Div(quoteRemaining, tradePrice))
		if assetTradeQty == 0 {
			break
		}

		if bytes.Equal(params.CallbackInfo, best.CallbackInfo) && params.SelfTradeBehavior != DecrementTake {
			if m.metrics != nil {
				m.metrics.RecordSelfTrade(m.market, params.SelfTradeBehavior.String())
			}
			switch params.SelfTradeBehavior {
			case CancelProvide:
				oppositeBook.RemoveByKey(best.OrderID)
				err := q.PushBack(eventqueue.Event{
					Kind: eventqueue.KindOut,
					Out: eventqueue.Out{
						Side:         opposite,
						OrderID:      best.OrderID,
						AssetSize:    best.AssetQty,
						CallbackInfo: best.CallbackInfo,
					},
				})
				if err != nil {
					return eventqueue.OrderSummary{}, err
				}
				if m.metrics != nil {
					m.metrics.RecordOut(m.market, "self_trade")
				}
				continue
			case AbortTransaction:
				return eventqueue.OrderSummary{}, matcherrors.New(matcherrors.ErrWouldSelfTrade, "order would self-trade").
					WithDetail("maker_order_id", best.OrderID)
			}
		}

		quoteMakerQty := fixedpoint.Mul(assetTradeQty, tradePrice)
		err := q.PushBack(eventqueue.Event{
			Kind: eventqueue.KindFill,
			Fill: eventqueue.Fill{
				TakerSide:         params.Side,
				MakerOrderID:      best.OrderID,
				QuoteSize:         quoteMakerQty,
				AssetSize:         assetTradeQty,
				MakerCallbackInfo: best.CallbackInfo,
				TakerCallbackInfo: params.CallbackInfo,
			},
		})
		if err != nil {
			return eventqueue.OrderSummary{}, err
		}
		if m.metrics != nil {
			m.metrics.RecordFill(m.market)
		}

		remainingOnMaker := best.AssetQty - assetTradeQty
		if remainingOnMaker == 0 {
			oppositeBook.RemoveByKey(best.OrderID)
		} else {
			oppositeBook.SetQuantity(bestHandle, remainingOnMaker)
		}

		assetRemaining -= assetTradeQty
		quoteRemaining -= quoteMakerQty
		matchLimit--
	}

	summary := eventqueue.OrderSummary{
		TotalAssetQty: params.MaxAssetQty - assetRemaining,
		TotalQuoteQty: params.MaxQuoteQty - quoteRemaining,
	}

	if crossed || !params.PostAllowed {
		q.WriteRegister(summary)
		m.Bids.WriteHeader()
		m.Asks.WriteHeader()
		return summary, nil
	}

	var postQty uint64
	if params.Side == slab.Bid {
		postQty = min64(fixedpoint.Div(quoteRemaining, params.LimitPrice), assetRemaining)
	} else {
		postQty = assetRemaining
	}

	if postQty == 0 {
		q.WriteRegister(summary)
		m.Bids.WriteHeader()
		m.Asks.WriteHeader()
		return summary, nil
	}

	newID := q.GenOrderID(params.LimitPrice, params.Side)
	newLeaf := slab.LeafNode{OrderID: newID, AssetQty: postQty, CallbackInfo: params.CallbackInfo}
	ownBook := m.tree(params.Side)

	if err := ownBook.InsertLeaf(newLeaf); err != nil {
		evicted, ok := evictLeastAggressive(ownBook, params.Side)
		if !ok {
			// Unreachable per design: an out-of-space slab always has at
			// least one leaf to evict, since insertion needs at most two
			// free slots and eviction frees two.
			m.logger.Error("slab out of space with nothing to evict", zap.String("side", params.Side.String()))
			return eventqueue.OrderSummary{}, err
		}

		// The reference implementation hard-codes side=Bid on this Out
		// event regardless of which side was evicted; we tag it with the
		// actual evicted side.
		if pushErr := q.PushBack(eventqueue.Event{
			Kind: eventqueue.KindOut,
			Out: eventqueue.Out{
				Side:         params.Side,
				OrderID:      evicted.OrderID,
				AssetSize:    evicted.AssetQty,
				CallbackInfo: evicted.CallbackInfo,
			},
		}); pushErr != nil {
			return eventqueue.OrderSummary{}, pushErr
		}
		if m.metrics != nil {
			m.metrics.RecordOut(m.market, "eviction")
			m.metrics.RecordEviction(m.market, params.Side.String())
		}

		if err := ownBook.InsertLeaf(newLeaf); err != nil {
			m.logger.Error("insert failed immediately after eviction", zap.Error(err))
			return eventqueue.OrderSummary{}, err
		}
	}

	assetRemaining -= postQty
	quoteRemaining -= fixedpoint.Mul(postQty, params.LimitPrice)

	summary.PostedOrderID = &newID
	summary.TotalAssetQty = params.MaxAssetQty - assetRemaining
	summary.TotalQuoteQty = params.MaxQuoteQty - quoteRemaining

	q.WriteRegister(summary)
	m.Bids.WriteHeader()
	m.Asks.WriteHeader()
	return summary, nil
}
