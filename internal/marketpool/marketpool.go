// Package marketpool gives every market its own single-goroutine ants
// lane, so concurrent callers submitting orders to the same market are
// serialized into one matching call at a time — the host-side half of
// the "no concurrent mutation" contract the matcher assumes.
package marketpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned once a market's lane has been released.
var ErrPoolClosed = errors.New("market lane closed")

// Pool owns one single-worker ants.Pool per market id.
type Pool struct {
	logger *zap.Logger

	mu    sync.RWMutex
	lanes map[string]*ants.Pool
}

// New constructs an empty market pool.
func New(logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{logger: logger, lanes: make(map[string]*ants.Pool)}
}

func (p *Pool) laneFor(marketID string) (*ants.Pool, error) {
	p.mu.RLock()
	lane, ok := p.lanes[marketID]
	p.mu.RUnlock()
	if ok {
		return lane, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if lane, ok = p.lanes[marketID]; ok {
		return lane, nil
	}

	lane, err := ants.NewPool(1, ants.WithOptions(ants.Options{
		PreAlloc: true,
		PanicHandler: func(r interface{}) {
			p.logger.Error("matching task panicked", zap.String("market", marketID), zap.Any("panic", r))
		},
	}))
	if err != nil {
		return nil, fmt.Errorf("marketpool: creating lane for %s: %w", marketID, err)
	}
	p.lanes[marketID] = lane
	return lane, nil
}

// Submit runs fn on marketID's dedicated lane and blocks for its
// result, or until ctx is canceled. Two calls for the same market never
// run concurrently; calls for different markets do.
func Submit[T any](ctx context.Context, p *Pool, marketID string, fn func() (T, error)) (T, error) {
	var zero T
	lane, err := p.laneFor(marketID)
	if err != nil {
		return zero, err
	}

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	submitErr := lane.Submit(func() {
		v, err := fn()
		done <- outcome{val: v, err: err}
	})
	if submitErr != nil {
		if errors.Is(submitErr, ants.ErrPoolClosed) {
			return zero, ErrPoolClosed
		}
		return zero, submitErr
	}

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Release tears down marketID's lane, if one exists.
func (p *Pool) Release(marketID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lane, ok := p.lanes[marketID]; ok {
		lane.Release()
		delete(p.lanes, marketID)
	}
}

// ReleaseAll tears down every lane.
func (p *Pool) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, lane := range p.lanes {
		lane.Release()
		delete(p.lanes, id)
	}
}
