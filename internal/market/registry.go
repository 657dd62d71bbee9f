// Package market owns the live set of order books a process is
// hosting: it lazily constructs each market's slabs, event queue and
// matcher, serializes concurrent access through internal/marketpool,
// and round-trips the three opaque buffers through internal/persistence.
package market

import (
	"context"
	"sync"
	"time"

	"github.com/clobcore/matchcore/internal/consume"
	"github.com/clobcore/matchcore/internal/eventqueue"
	"github.com/clobcore/matchcore/internal/marketpool"
	"github.com/clobcore/matchcore/internal/matchcore"
	"github.com/clobcore/matchcore/internal/metrics"
	"github.com/clobcore/matchcore/internal/persistence"
	"github.com/clobcore/matchcore/internal/slab"
	"github.com/clobcore/matchcore/internal/slab/arena"
	matcherrors "github.com/clobcore/matchcore/pkg/errors"
	"go.uber.org/zap"
)

// Sizing bundles the knobs needed to construct a fresh book.
type Sizing struct {
	SlabCapacity       int
	EventQueueCapacity int
	CallbackInfoLen    int
	FeeBudget          uint64
	EscrowBalance      uint64
}

// book is one market's live in-memory state.
type book struct {
	state *matchcore.OrderBookState
	queue *eventqueue.Queue
	meta  consume.Market
}

// Registry is the process-wide set of hosted markets.
type Registry struct {
	logger  *zap.Logger
	sizing  Sizing
	pool    *marketpool.Pool
	store   *persistence.Store
	metrics *metrics.MatcherMetrics
	pools   *arena.BufferPool

	mu     sync.Mutex
	books  map[string]*book
}

// NewRegistry builds an empty registry. store and metrics may be nil
// (no persistence, no Prometheus collectors, respectively).
func NewRegistry(logger *zap.Logger, sizing Sizing, pool *marketpool.Pool, store *persistence.Store, m *metrics.MatcherMetrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:  logger,
		sizing:  sizing,
		pool:    pool,
		store:   store,
		metrics: m,
		pools:   arena.NewBufferPool(slab.NodeStride(sizing.CallbackInfoLen), 2*sizing.SlabCapacity),
		books:   make(map[string]*book),
	}
}

func (r *Registry) getOrCreate(ctx context.Context, marketID string) (*book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.books[marketID]; ok {
		return b, nil
	}

	bids := slab.New(slab.Bid, r.sizing.SlabCapacity, r.sizing.CallbackInfoLen, r.pools)
	asks := slab.New(slab.Ask, r.sizing.SlabCapacity, r.sizing.CallbackInfoLen, r.pools)
	q := eventqueue.New(r.sizing.EventQueueCapacity)

	if r.store != nil {
		bidBuf, askBuf, queueBuf, err := r.store.Load(ctx, marketID)
		switch err {
		case nil:
			bids = slab.Deserialize(bidBuf, r.sizing.SlabCapacity, r.sizing.CallbackInfoLen)
			asks = slab.Deserialize(askBuf, r.sizing.SlabCapacity, r.sizing.CallbackInfoLen)
			q = eventqueue.Deserialize(queueBuf, r.sizing.CallbackInfoLen)
		case persistence.ErrNotFound:
			// fresh market, nothing to restore
		default:
			return nil, err
		}
	}

	state, err := matchcore.New(marketID, bids, asks, r.logger, r.metrics)
	if err != nil {
		return nil, err
	}

	b := &book{
		state: state,
		queue: q,
		meta: consume.Market{
			ID:        marketID,
			FeeBudget: r.sizing.FeeBudget,
			Queue:     q,
			EscrowBal: r.sizing.EscrowBalance,
		},
	}
	r.books[marketID] = b
	return b, nil
}

// PlaceOrder runs one matching call for marketID on that market's
// dedicated lane, persisting the resulting buffers if a store is
// configured.
func (r *Registry) PlaceOrder(ctx context.Context, marketID string, params matchcore.Params) (eventqueue.OrderSummary, error) {
	return marketpool.Submit(ctx, r.pool, marketID, func() (eventqueue.OrderSummary, error) {
		b, err := r.getOrCreate(ctx, marketID)
		if err != nil {
			return eventqueue.OrderSummary{}, err
		}

		start := time.Now()
		summary, err := b.state.NewOrder(params, b.queue)
		if r.metrics != nil {
			r.metrics.ObserveMatch(marketID, time.Since(start))
			if err != nil && matcherrors.Code(err) == matcherrors.ErrEventQueueFull {
				r.metrics.RecordQueueFull(marketID)
			}
		}
		if err != nil {
			return eventqueue.OrderSummary{}, err
		}

		if err := r.persist(ctx, marketID, b); err != nil {
			r.logger.Error("persisting market snapshot", zap.String("market", marketID), zap.Error(err))
		}
		return summary, nil
	})
}

// ConsumeEvents drains marketID's queue through a Consumer on that
// market's lane, keeping it serialized with concurrent PlaceOrder calls.
func (r *Registry) ConsumeEvents(ctx context.Context, marketID string, consumer *consume.Consumer, params consume.Params) (consume.Result, error) {
	return marketpool.Submit(ctx, r.pool, marketID, func() (consume.Result, error) {
		b, err := r.getOrCreate(ctx, marketID)
		if err != nil {
			return consume.Result{}, err
		}

		result, err := consumer.Consume(ctx, &b.meta, params)
		if err != nil {
			return consume.Result{}, err
		}

		if err := r.persist(ctx, marketID, b); err != nil {
			r.logger.Error("persisting market snapshot", zap.String("market", marketID), zap.Error(err))
		}
		return result, nil
	})
}

func (r *Registry) persist(ctx context.Context, marketID string, b *book) error {
	if r.store == nil {
		return nil
	}
	return r.store.Save(ctx, marketID, b.state.Bids.Serialize(), b.state.Asks.Serialize(), b.queue.Serialize(r.sizing.CallbackInfoLen))
}
