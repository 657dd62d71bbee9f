// Package eventqueue implements the bounded ring buffer of Fill/Out
// records a matching call appends to, plus the monotonic order-id
// generator both slabs key off of.
package eventqueue

import (
	"github.com/clobcore/matchcore/internal/slab"
	matcherrors "github.com/clobcore/matchcore/pkg/errors"
	"github.com/segmentio/ksuid"
)

// Header mirrors the fields flushed to the backing buffer after every
// mutating call.
type Header struct {
	Capacity uint32
	Head     uint32
	Count    uint32
	SeqNum   uint64
	Register [SummarySize]byte
}

// Queue is a fixed-capacity ring buffer of events.
type Queue struct {
	hdr    Header
	events []Event
}

// New allocates a queue with room for capacity events.
func New(capacity int) *Queue {
	return &Queue{
		hdr:    Header{Capacity: uint32(capacity)},
		events: make([]Event, capacity),
	}
}

// Count returns the number of pending (unconsumed) events.
func (q *Queue) Count() uint32 { return q.hdr.Count }

// SeqNum returns the next sequence number that GenOrderID will mint.
func (q *Queue) SeqNum() uint64 { return q.hdr.SeqNum }

// PushBack appends one event, stamping it with a k-sortable
// correlation id for cross-restart log correlation. Fails with
// EventQueueFull once Count has reached Capacity (counted in events).
func (q *Queue) PushBack(e Event) error {
	if q.hdr.Count >= q.hdr.Capacity {
		return matcherrors.New(matcherrors.ErrEventQueueFull, "event queue at capacity").
			WithDetail("capacity", q.hdr.Capacity)
	}
	e.CorrelationID = ksuid.New().String()
	tail := (q.hdr.Head + q.hdr.Count) % q.hdr.Capacity
	q.events[tail] = e
	q.hdr.Count++
	return nil
}

// PopN advances Head by min(k, Count), returning the events consumed
// in FIFO order. Only the consume-events collaborator calls this.
func (q *Queue) PopN(k uint32) []Event {
	n := k
	if n > q.hdr.Count {
		n = q.hdr.Count
	}
	popped := make([]Event, 0, n)
	for i := uint32(0); i < n; i++ {
		idx := (q.hdr.Head + i) % q.hdr.Capacity
		popped = append(popped, q.events[idx])
	}
	q.hdr.Head = (q.hdr.Head + n) % q.hdr.Capacity
	q.hdr.Count -= n
	return popped
}

// GenOrderID composes (price << 64) | (seq_num XOR mask(side)), then
// post-increments seq_num. Only Ask sequence numbers are masked, which
// inverts their order within a price level; the matcher looks up the
// best bid with FindMax and the best ask with FindMin.
func (q *Queue) GenOrderID(price uint64, side slab.Side) slab.OrderID {
	masked := slab.MaskSeq(side, q.hdr.SeqNum)
	id := slab.NewOrderID(price, masked)
	q.hdr.SeqNum++
	return id
}

// WriteRegister writes the 33-byte OrderSummary into the header's
// reserved register, as every mutating engine call must.
func (q *Queue) WriteRegister(summary OrderSummary) {
	q.hdr.Register = summary.Encode()
}

// Register returns the last summary written via WriteRegister.
func (q *Queue) Register() OrderSummary {
	return DecodeOrderSummary(q.hdr.Register)
}
