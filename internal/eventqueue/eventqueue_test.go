package eventqueue

import (
	"testing"

	"github.com/clobcore/matchcore/internal/slab"
	matcherrors "github.com/clobcore/matchcore/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestGenOrderIDMonotonic(t *testing.T) {
	q := New(4)
	a := q.GenOrderID(100, slab.Bid)
	b := q.GenOrderID(100, slab.Bid)
	require.True(t, a.Less(b))
	require.Equal(t, uint64(0), a.Seq)
	require.Equal(t, uint64(1), b.Seq)
}

func TestGenOrderIDMasksAskSeq(t *testing.T) {
	q := New(4)
	id := q.GenOrderID(100, slab.Ask)
	require.Equal(t, ^uint64(0), id.Seq)
}

func TestPushBackFillsUpToCapacity(t *testing.T) {
	q := New(2)
	require.NoError(t, q.PushBack(Event{Kind: KindOut}))
	require.NoError(t, q.PushBack(Event{Kind: KindOut}))
	err := q.PushBack(Event{Kind: KindOut})
	require.Error(t, err)
	require.Equal(t, matcherrors.ErrEventQueueFull, matcherrors.Code(err))
}

func TestPopNFIFOOrder(t *testing.T) {
	q := New(4)
	for i := uint64(0); i < 3; i++ {
		require.NoError(t, q.PushBack(Event{Kind: KindFill, Fill: Fill{AssetSize: i}}))
	}
	popped := q.PopN(2)
	require.Len(t, popped, 2)
	require.Equal(t, uint64(0), popped[0].Fill.AssetSize)
	require.Equal(t, uint64(1), popped[1].Fill.AssetSize)
	require.EqualValues(t, 1, q.Count())
}

func TestPopNCapsAtCount(t *testing.T) {
	q := New(4)
	require.NoError(t, q.PushBack(Event{Kind: KindOut}))
	popped := q.PopN(10)
	require.Len(t, popped, 1)
	require.EqualValues(t, 0, q.Count())
}

func TestOrderSummaryRoundTrip(t *testing.T) {
	id := slab.NewOrderID(100, 7)
	s := OrderSummary{PostedOrderID: &id, TotalAssetQty: 5, TotalQuoteQty: 500}
	buf := s.Encode()
	require.Len(t, buf, SummarySize)

	back := DecodeOrderSummary(buf)
	require.Equal(t, s.TotalAssetQty, back.TotalAssetQty)
	require.Equal(t, s.TotalQuoteQty, back.TotalQuoteQty)
	require.NotNil(t, back.PostedOrderID)
	require.Equal(t, id, *back.PostedOrderID)
}

func TestOrderSummaryRoundTripNone(t *testing.T) {
	s := OrderSummary{}
	buf := s.Encode()
	back := DecodeOrderSummary(buf)
	require.Nil(t, back.PostedOrderID)
}

func TestWriteRegisterRoundTrip(t *testing.T) {
	q := New(4)
	id := slab.NewOrderID(200, 3)
	q.WriteRegister(OrderSummary{PostedOrderID: &id, TotalAssetQty: 1, TotalQuoteQty: 200})
	got := q.Register()
	require.Equal(t, id, *got.PostedOrderID)
}

func TestPushBackStampsCorrelationID(t *testing.T) {
	q := New(4)
	require.NoError(t, q.PushBack(Event{Kind: KindOut}))
	popped := q.PopN(1)
	require.NotEmpty(t, popped[0].CorrelationID)
}
