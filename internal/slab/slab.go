// Package slab implements the crit-bit (radix) tree that indexes one
// side of a resting order book, backed by a slot-allocated arena of
// dense uint32 handles rather than pointers, so the whole structure is
// trivially serializable to a byte buffer.
package slab

import (
	"github.com/clobcore/matchcore/internal/slab/arena"
	matcherrors "github.com/clobcore/matchcore/pkg/errors"
)

const nilHandle = ^uint32(0)

type nodeKind uint8

const (
	kindFree nodeKind = iota
	kindInner
	kindLeaf
)

type node struct {
	kind nodeKind

	// inner
	critBit     int
	left, right uint32

	// leaf
	key          OrderID
	assetQty     uint64
	callbackInfo []byte

	// free list
	nextFree uint32
}

// LeafNode is the caller-facing view of a resting order.
type LeafNode struct {
	OrderID      OrderID
	AssetQty     uint64
	CallbackInfo []byte
}

// Header mirrors the fields a slab flushes to its backing buffer on
// every write_header call.
type Header struct {
	Side            Side
	Capacity        uint32
	BumpIndex       uint32
	FreeListHead    uint32
	FreeCount       uint32
	LeafCount       uint32
	RootHandle      uint32
	CallbackInfoLen uint32
}

// Slab is one side's crit-bit book.
type Slab struct {
	hdr   Header
	nodes []node
	pool  *arena.BufferPool
	buf   []byte
}

// New allocates a slab for side with room for capacity leaves (the
// arena needs roughly 2*capacity node slots since every leaf but the
// first is paired with an inner node).
func New(side Side, capacity int, callbackInfoLen int, pool *arena.BufferPool) *Slab {
	slotCount := 2*capacity - 1
	if slotCount < 1 {
		slotCount = 1
	}
	s := &Slab{
		hdr: Header{
			Side:            side,
			Capacity:        uint32(slotCount),
			FreeListHead:    nilHandle,
			RootHandle:      nilHandle,
			CallbackInfoLen: uint32(callbackInfoLen),
		},
		nodes: make([]node, 0, slotCount),
		pool:  pool,
	}
	if pool != nil {
		s.buf = pool.Get()
	}
	return s
}

// Side returns the side this slab indexes.
func (s *Slab) Side() Side { return s.hdr.Side }

// Len returns the number of resting leaves.
func (s *Slab) Len() uint32 { return s.hdr.LeafCount }

// Check asserts the slab's tag matches the expected side.
func (s *Slab) Check(expected Side) error {
	if s.hdr.Side != expected {
		return matcherrors.New(matcherrors.ErrInvalidSide, "slab side tag mismatch").
			WithDetail("expected", expected.String()).
			WithDetail("actual", s.hdr.Side.String())
	}
	return nil
}

func (s *Slab) availableSlots() int {
	return (int(s.hdr.Capacity) - int(s.hdr.BumpIndex)) + int(s.hdr.FreeCount)
}

func (s *Slab) alloc() (uint32, bool) {
	if s.hdr.FreeListHead != nilHandle {
		h := s.hdr.FreeListHead
		s.hdr.FreeListHead = s.nodes[h].nextFree
		s.hdr.FreeCount--
		return h, true
	}
	if int(s.hdr.BumpIndex) >= int(s.hdr.Capacity) {
		return 0, false
	}
	h := s.hdr.BumpIndex
	s.hdr.BumpIndex++
	if int(h) >= len(s.nodes) {
		s.nodes = append(s.nodes, node{})
	}
	return h, true
}

func (s *Slab) free(h uint32) {
	s.nodes[h] = node{kind: kindFree, nextFree: s.hdr.FreeListHead}
	s.hdr.FreeListHead = h
	s.hdr.FreeCount++
}

// GetLeaf dereferences a handle previously returned by FindMin/FindMax,
// returning its current contents.
func (s *Slab) GetLeaf(h uint32) (LeafNode, bool) {
	if h == nilHandle || int(h) >= len(s.nodes) || s.nodes[h].kind != kindLeaf {
		return LeafNode{}, false
	}
	n := s.nodes[h]
	return LeafNode{OrderID: n.key, AssetQty: n.assetQty, CallbackInfo: n.callbackInfo}, true
}

// SetQuantity mutates the resting quantity of the leaf at h in place.
func (s *Slab) SetQuantity(h uint32, qty uint64) {
	s.nodes[h].assetQty = qty
}

// FindMin returns the handle of the lowest-key leaf, or (0, false) if
// the slab is empty.
func (s *Slab) FindMin() (uint32, bool) {
	if s.hdr.RootHandle == nilHandle {
		return 0, false
	}
	h := s.hdr.RootHandle
	for s.nodes[h].kind == kindInner {
		h = s.nodes[h].left
	}
	return h, true
}

// FindMax returns the handle of the highest-key leaf, or (0, false) if
// the slab is empty.
func (s *Slab) FindMax() (uint32, bool) {
	if s.hdr.RootHandle == nilHandle {
		return 0, false
	}
	h := s.hdr.RootHandle
	for s.nodes[h].kind == kindInner {
		h = s.nodes[h].right
	}
	return h, true
}

type pathStep struct {
	node uint32
	dir  int
}

func (s *Slab) walkToLeaf(key OrderID) (leaf uint32, path []pathStep) {
	h := s.hdr.RootHandle
	for s.nodes[h].kind == kindInner {
		n := &s.nodes[h]
		dir := bitAt(key, n.critBit)
		path = append(path, pathStep{node: h, dir: dir})
		if dir == 0 {
			h = n.left
		} else {
			h = n.right
		}
	}
	return h, path
}

// InsertLeaf inserts a new resting leaf. Returns SlabOutOfSpace if the
// arena cannot satisfy the allocation (the matcher is responsible for
// evicting and retrying; the slab itself never evicts).
func (s *Slab) InsertLeaf(leaf LeafNode) error {
	if s.hdr.RootHandle == nilHandle {
		if s.availableSlots() < 1 {
			return outOfSpace()
		}
		h, _ := s.alloc()
		s.nodes[h] = node{kind: kindLeaf, key: leaf.OrderID, assetQty: leaf.AssetQty, callbackInfo: leaf.CallbackInfo}
		s.hdr.RootHandle = h
		s.hdr.LeafCount++
		return nil
	}

	closest, path := s.walkToLeaf(leaf.OrderID)
	closestKey := s.nodes[closest].key
	if closestKey.Equal(leaf.OrderID) {
		// Callers guarantee unique keys via seq_num monotonicity; this
		// path is unreachable in practice. Overwrite defensively.
		s.nodes[closest].assetQty = leaf.AssetQty
		s.nodes[closest].callbackInfo = leaf.CallbackInfo
		return nil
	}

	if s.availableSlots() < 2 {
		return outOfSpace()
	}

	diffBit := highestDifferingBit(leaf.OrderID, closestKey)

	// Re-walk from the root, stopping at the point where the new
	// differing bit belongs: critbit values strictly decrease going
	// down the tree, so we splice in front of the first node whose
	// critbit is less than diffBit.
	splicePos := len(path)
	for i, step := range path {
		if s.nodes[step.node].critBit < diffBit {
			splicePos = i
			break
		}
	}

	var spliceHandle uint32
	if splicePos == 0 {
		spliceHandle = s.hdr.RootHandle
	} else {
		spliceHandle = childAt(s.nodes[path[splicePos-1].node], path[splicePos-1].dir)
	}

	leafHandle, _ := s.alloc()
	s.nodes[leafHandle] = node{kind: kindLeaf, key: leaf.OrderID, assetQty: leaf.AssetQty, callbackInfo: leaf.CallbackInfo}

	innerHandle, _ := s.alloc()
	inner := node{kind: kindInner, critBit: diffBit}
	if bitAt(leaf.OrderID, diffBit) == 0 {
		inner.left, inner.right = leafHandle, spliceHandle
	} else {
		inner.left, inner.right = spliceHandle, leafHandle
	}
	s.nodes[innerHandle] = inner

	if splicePos == 0 {
		s.hdr.RootHandle = innerHandle
	} else {
		parent := &s.nodes[path[splicePos-1].node]
		setChildAt(parent, path[splicePos-1].dir, innerHandle)
	}

	s.hdr.LeafCount++
	return nil
}

func childAt(n node, dir int) uint32 {
	if dir == 0 {
		return n.left
	}
	return n.right
}

func setChildAt(n *node, dir int, h uint32) {
	if dir == 0 {
		n.left = h
	} else {
		n.right = h
	}
}

// RemoveByKey removes and returns the leaf with exactly this key.
func (s *Slab) RemoveByKey(key OrderID) (LeafNode, bool) {
	if s.hdr.RootHandle == nilHandle {
		return LeafNode{}, false
	}
	leafHandle, path := s.walkToLeaf(key)
	if !s.nodes[leafHandle].key.Equal(key) {
		return LeafNode{}, false
	}
	removed := s.nodes[leafHandle]

	if len(path) == 0 {
		s.hdr.RootHandle = nilHandle
		s.free(leafHandle)
		s.hdr.LeafCount--
		return toLeafNode(removed), true
	}

	last := path[len(path)-1]
	parent := s.nodes[last.node]
	var sibling uint32
	if last.dir == 0 {
		sibling = parent.right
	} else {
		sibling = parent.left
	}

	if len(path) == 1 {
		s.hdr.RootHandle = sibling
	} else {
		grand := path[len(path)-2]
		setChildAt(&s.nodes[grand.node], grand.dir, sibling)
	}

	s.free(last.node)
	s.free(leafHandle)
	s.hdr.LeafCount--
	return toLeafNode(removed), true
}

func toLeafNode(n node) LeafNode {
	return LeafNode{OrderID: n.key, AssetQty: n.assetQty, CallbackInfo: n.callbackInfo}
}

// RemoveMin removes and returns the lowest-key leaf.
func (s *Slab) RemoveMin() (LeafNode, bool) {
	h, ok := s.FindMin()
	if !ok {
		return LeafNode{}, false
	}
	return s.RemoveByKey(s.nodes[h].key)
}

// RemoveMax removes and returns the highest-key leaf.
func (s *Slab) RemoveMax() (LeafNode, bool) {
	h, ok := s.FindMax()
	if !ok {
		return LeafNode{}, false
	}
	return s.RemoveByKey(s.nodes[h].key)
}

// WriteHeader flushes the in-memory header to the slab's backing
// buffer. A nil buffer (no pool configured, e.g. in unit tests) is a
// no-op beyond keeping the in-memory header current.
func (s *Slab) WriteHeader() {
	if s.buf == nil || len(s.buf) < headerSize {
		return
	}
	encodeHeader(s.buf, s.hdr)
}

// Release returns the slab's backing buffer to its pool.
func (s *Slab) Release() {
	if s.pool != nil && s.buf != nil {
		s.pool.Put(s.buf)
		s.buf = nil
	}
}

func outOfSpace() error {
	return matcherrors.New(matcherrors.ErrSlabOutOfSpace, "slab arena exhausted")
}
