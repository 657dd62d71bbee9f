package eventqueue

import (
	"encoding/binary"

	"github.com/clobcore/matchcore/internal/slab"
)

// SummarySize is the fixed on-wire width of an OrderSummary register.
const SummarySize = 33

// OrderSummary is returned from every matching call: the totals that
// crossed plus any amount posted, and the id of the new resting leaf
// if one was created.
type OrderSummary struct {
	PostedOrderID   *slab.OrderID
	TotalAssetQty   uint64
	TotalQuoteQty   uint64
}

// Encode serializes the summary into its 33-byte wire form:
//
//	offset 0  : 1 byte  discriminant (0 = None, 1 = Some)
//	offset 1  : 16 bytes u128 posted_order_id, little-endian (zero if None)
//	offset 17 : 8 bytes  total_asset_qty, little-endian
//	offset 25 : 8 bytes  total_quote_qty, little-endian
func (s OrderSummary) Encode() [SummarySize]byte {
	var buf [SummarySize]byte
	if s.PostedOrderID != nil {
		buf[0] = 1
		// Seq occupies the low 64 bits of the u128, Price the high 64.
		binary.LittleEndian.PutUint64(buf[1:9], s.PostedOrderID.Seq)
		binary.LittleEndian.PutUint64(buf[9:17], s.PostedOrderID.Price)
	}
	binary.LittleEndian.PutUint64(buf[17:25], s.TotalAssetQty)
	binary.LittleEndian.PutUint64(buf[25:33], s.TotalQuoteQty)
	return buf
}

// DecodeOrderSummary parses a 33-byte wire-encoded summary.
func DecodeOrderSummary(buf [SummarySize]byte) OrderSummary {
	var s OrderSummary
	if buf[0] == 1 {
		id := slab.OrderID{
			Seq:   binary.LittleEndian.Uint64(buf[1:9]),
			Price: binary.LittleEndian.Uint64(buf[9:17]),
		}
		s.PostedOrderID = &id
	}
	s.TotalAssetQty = binary.LittleEndian.Uint64(buf[17:25])
	s.TotalQuoteQty = binary.LittleEndian.Uint64(buf[25:33])
	return s
}
