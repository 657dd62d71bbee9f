package eventqueue

import (
	"encoding/binary"

	"github.com/clobcore/matchcore/internal/slab"
)

// headerStride is the on-wire size of Header: capacity/head/count
// (uint32) + seq_num (uint64) + the 33-byte register.
const headerStride = 4 + 4 + 4 + 8 + SummarySize

// eventStride is the fixed on-wire width of one event record: a
// discriminant byte plus the union of Fill/Out fields sized for
// callbackInfoLen-wide callback blobs, plus the correlation id.
func eventStride(callbackInfoLen int) int {
	// kind(1) + side(1) + orderID(16) + assetSize(8) + quoteSize(8) + 2*callbackInfo(n) + correlationID(27, ksuid string width)
	return 1 + 1 + 16 + 8 + 8 + 2*callbackInfoLen + 27
}

// Serialize flushes the queue's header and every ring slot into one
// opaque byte buffer, as internal/persistence stores it.
func (q *Queue) Serialize(callbackInfoLen int) []byte {
	stride := eventStride(callbackInfoLen)
	out := make([]byte, headerStride+len(q.events)*stride)
	encodeQueueHeader(out[:headerStride], q.hdr)
	for i, e := range q.events {
		off := headerStride + i*stride
		encodeEvent(out[off:off+stride], e, callbackInfoLen)
	}
	return out
}

// Deserialize rebuilds a queue from a buffer previously produced by
// Serialize.
func Deserialize(buf []byte, callbackInfoLen int) *Queue {
	hdr := decodeQueueHeader(buf[:headerStride])
	stride := eventStride(callbackInfoLen)
	slotCount := (len(buf) - headerStride) / stride
	events := make([]Event, slotCount)
	for i := 0; i < slotCount; i++ {
		off := headerStride + i*stride
		events[i] = decodeEvent(buf[off:off+stride], callbackInfoLen)
	}
	return &Queue{hdr: hdr, events: events}
}

func encodeQueueHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Capacity)
	binary.LittleEndian.PutUint32(buf[4:8], h.Head)
	binary.LittleEndian.PutUint32(buf[8:12], h.Count)
	binary.LittleEndian.PutUint64(buf[12:20], h.SeqNum)
	copy(buf[20:20+SummarySize], h.Register[:])
}

func decodeQueueHeader(buf []byte) Header {
	var h Header
	h.Capacity = binary.LittleEndian.Uint32(buf[0:4])
	h.Head = binary.LittleEndian.Uint32(buf[4:8])
	h.Count = binary.LittleEndian.Uint32(buf[8:12])
	h.SeqNum = binary.LittleEndian.Uint64(buf[12:20])
	copy(h.Register[:], buf[20:20+SummarySize])
	return h
}

func encodeEvent(buf []byte, e Event, callbackInfoLen int) {
	buf[0] = byte(e.Kind)
	off := 1
	switch e.Kind {
	case KindFill:
		buf[off] = byte(e.Fill.TakerSide)
		off++
		binary.LittleEndian.PutUint64(buf[off:off+8], e.Fill.MakerOrderID.Price)
		off += 8
		binary.LittleEndian.PutUint64(buf[off:off+8], e.Fill.MakerOrderID.Seq)
		off += 8
		binary.LittleEndian.PutUint64(buf[off:off+8], e.Fill.QuoteSize)
		off += 8
		binary.LittleEndian.PutUint64(buf[off:off+8], e.Fill.AssetSize)
		off += 8
		copy(buf[off:off+callbackInfoLen], e.Fill.MakerCallbackInfo)
		off += callbackInfoLen
		copy(buf[off:off+callbackInfoLen], e.Fill.TakerCallbackInfo)
		off += callbackInfoLen
	case KindOut:
		buf[off] = byte(e.Out.Side)
		off++
		binary.LittleEndian.PutUint64(buf[off:off+8], e.Out.OrderID.Price)
		off += 8
		binary.LittleEndian.PutUint64(buf[off:off+8], e.Out.OrderID.Seq)
		off += 8
		off += 8 // quote_size slot unused for Out
		binary.LittleEndian.PutUint64(buf[off:off+8], e.Out.AssetSize)
		off += 8
		copy(buf[off:off+callbackInfoLen], e.Out.CallbackInfo)
		off += 2 * callbackInfoLen
	}
	copy(buf[len(buf)-27:], e.CorrelationID)
}

func decodeEvent(buf []byte, callbackInfoLen int) Event {
	var e Event
	e.Kind = EventKind(buf[0])
	off := 1
	switch e.Kind {
	case KindFill:
		e.Fill.TakerSide = slab.Side(buf[off])
		off++
		e.Fill.MakerOrderID.Price = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		e.Fill.MakerOrderID.Seq = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		e.Fill.QuoteSize = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		e.Fill.AssetSize = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		e.Fill.MakerCallbackInfo = append([]byte(nil), buf[off:off+callbackInfoLen]...)
		off += callbackInfoLen
		e.Fill.TakerCallbackInfo = append([]byte(nil), buf[off:off+callbackInfoLen]...)
		off += callbackInfoLen
	case KindOut:
		e.Out.Side = slab.Side(buf[off])
		off++
		e.Out.OrderID.Price = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		e.Out.OrderID.Seq = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		off += 8
		e.Out.AssetSize = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		e.Out.CallbackInfo = append([]byte(nil), buf[off:off+callbackInfoLen]...)
		off += 2 * callbackInfoLen
	}
	e.CorrelationID = string(trimNulls(buf[len(buf)-27:]))
	return e
}

func trimNulls(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}
