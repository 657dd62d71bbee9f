package eventqueue

import "github.com/clobcore/matchcore/internal/slab"

// EventKind discriminates the two wire variants.
type EventKind uint8

const (
	KindFill EventKind = iota
	KindOut
)

// Fill records one maker/taker crossing.
type Fill struct {
	TakerSide         slab.Side
	MakerOrderID      slab.OrderID
	QuoteSize         uint64
	AssetSize         uint64
	MakerCallbackInfo []byte
	TakerCallbackInfo []byte
}

// Out records a resting leaf leaving the book without a cross, either
// because it was fully canceled via a self-trade policy or evicted for
// arena space.
type Out struct {
	Side         slab.Side
	OrderID      slab.OrderID
	AssetSize    uint64
	CallbackInfo []byte
}

// Event is one queue record: exactly one of Fill/Out is populated,
// selected by Kind.
type Event struct {
	Kind EventKind
	Fill Fill
	Out  Out
	// CorrelationID is a k-sortable id stamped at push time so external
	// observers can correlate a dequeued event back to a specific
	// engine call across process or host restarts.
	CorrelationID string
}
