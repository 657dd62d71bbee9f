package slab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func leaf(price, seq uint64, qty uint64) LeafNode {
	return LeafNode{OrderID: NewOrderID(price, seq), AssetQty: qty, CallbackInfo: []byte("owner")}
}

func TestInsertAndFindExtremes(t *testing.T) {
	s := New(Bid, 8, 8, nil)

	require.NoError(t, s.InsertLeaf(leaf(10, 1, 5)))
	require.NoError(t, s.InsertLeaf(leaf(30, 2, 5)))
	require.NoError(t, s.InsertLeaf(leaf(20, 3, 5)))

	minH, ok := s.FindMin()
	require.True(t, ok)
	minLeaf, _ := s.GetLeaf(minH)
	require.Equal(t, uint64(10), minLeaf.OrderID.Price)

	maxH, ok := s.FindMax()
	require.True(t, ok)
	maxLeaf, _ := s.GetLeaf(maxH)
	require.Equal(t, uint64(30), maxLeaf.OrderID.Price)

	require.EqualValues(t, 3, s.Len())
}

func TestRemoveByKey(t *testing.T) {
	s := New(Ask, 8, 8, nil)
	require.NoError(t, s.InsertLeaf(leaf(10, 1, 5)))
	require.NoError(t, s.InsertLeaf(leaf(20, 2, 5)))
	require.NoError(t, s.InsertLeaf(leaf(30, 3, 5)))

	removed, ok := s.RemoveByKey(NewOrderID(20, 2))
	require.True(t, ok)
	require.Equal(t, uint64(5), removed.AssetQty)
	require.EqualValues(t, 2, s.Len())

	minH, _ := s.FindMin()
	minLeaf, _ := s.GetLeaf(minH)
	require.Equal(t, uint64(10), minLeaf.OrderID.Price)

	maxH, _ := s.FindMax()
	maxLeaf, _ := s.GetLeaf(maxH)
	require.Equal(t, uint64(30), maxLeaf.OrderID.Price)
}

func TestRemoveMinMax(t *testing.T) {
	s := New(Bid, 8, 8, nil)
	for i := uint64(0); i < 5; i++ {
		require.NoError(t, s.InsertLeaf(leaf(10+i, i, 1)))
	}

	min, ok := s.RemoveMin()
	require.True(t, ok)
	require.Equal(t, uint64(10), min.OrderID.Price)

	max, ok := s.RemoveMax()
	require.True(t, ok)
	require.Equal(t, uint64(14), max.OrderID.Price)

	require.EqualValues(t, 3, s.Len())
}

func TestInsertLeafExhaustsArena(t *testing.T) {
	s := New(Bid, 1, 8, nil)
	require.NoError(t, s.InsertLeaf(leaf(10, 1, 1)))
	err := s.InsertLeaf(leaf(20, 2, 1))
	require.Error(t, err)
}

func TestFreeListReuseAfterEviction(t *testing.T) {
	s := New(Bid, 2, 8, nil)
	require.NoError(t, s.InsertLeaf(leaf(10, 1, 1)))
	require.NoError(t, s.InsertLeaf(leaf(20, 2, 1)))

	_, ok := s.RemoveMin()
	require.True(t, ok)

	require.NoError(t, s.InsertLeaf(leaf(30, 3, 1)))

	maxH, _ := s.FindMax()
	maxLeaf, _ := s.GetLeaf(maxH)
	require.Equal(t, uint64(30), maxLeaf.OrderID.Price)
}

func TestSeqTieBreaksWithinSamePrice(t *testing.T) {
	s := New(Ask, 8, 8, nil)
	require.NoError(t, s.InsertLeaf(leaf(10, 5, 1)))
	require.NoError(t, s.InsertLeaf(leaf(10, 2, 1)))

	minH, _ := s.FindMin()
	minLeaf, _ := s.GetLeaf(minH)
	require.Equal(t, uint64(2), minLeaf.OrderID.Seq)
}

func TestCheckSideMismatch(t *testing.T) {
	s := New(Bid, 4, 8, nil)
	require.Error(t, s.Check(Ask))
	require.NoError(t, s.Check(Bid))
}
