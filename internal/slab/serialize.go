package slab

import "encoding/binary"

// NodeStride returns the fixed on-wire width of one arena node given the
// slab's callback_info width. Callers sizing a shared arena.BufferPool
// ahead of constructing a Slab (internal/market does this to share one
// pool between the bid and ask slabs) use this instead of duplicating
// the layout math.
func NodeStride(callbackInfoLen int) int {
	// kind(1) + critBit(4) + left(4) + right(4) + key.Price(8) + key.Seq(8) + assetQty(8) + nextFree(4) + callbackInfo(n)
	return 1 + 4 + 4 + 4 + 8 + 8 + 8 + 4 + callbackInfoLen
}

func (s *Slab) nodeStride() int {
	return NodeStride(int(s.hdr.CallbackInfoLen))
}

// Serialize flushes the header and every allocated arena slot into a
// single byte buffer, in the layout internal/persistence stores
// opaquely per market.
func (s *Slab) Serialize() []byte {
	s.WriteHeader()
	stride := s.nodeStride()
	out := make([]byte, headerSize+len(s.nodes)*stride)
	if s.buf != nil {
		copy(out[:headerSize], s.buf[:headerSize])
	} else {
		encodeHeader(out[:headerSize], s.hdr)
	}

	for i, n := range s.nodes {
		off := headerSize + i*stride
		encodeNode(out[off:off+stride], n, int(s.hdr.CallbackInfoLen))
	}
	return out
}

// Deserialize rebuilds a slab from a buffer previously produced by
// Serialize. capacity is not read: the arena capacity is restored from
// the serialized header. The result has no backing buffer or pool.
func Deserialize(buf []byte, capacity int, callbackInfoLen int) *Slab {
	hdr := DecodeHeader(buf)
	s := &Slab{hdr: hdr}
	stride := s.nodeStride()

	slotCount := (len(buf) - headerSize) / stride
	s.nodes = make([]node, slotCount)
	for i := 0; i < slotCount; i++ {
		off := headerSize + i*stride
		s.nodes[i] = decodeNode(buf[off:off+stride], callbackInfoLen)
	}
	return s
}

func encodeNode(buf []byte, n node, callbackInfoLen int) {
	buf[0] = byte(n.kind)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(int32(n.critBit)))
	binary.LittleEndian.PutUint32(buf[5:9], n.left)
	binary.LittleEndian.PutUint32(buf[9:13], n.right)
	binary.LittleEndian.PutUint64(buf[13:21], n.key.Price)
	binary.LittleEndian.PutUint64(buf[21:29], n.key.Seq)
	binary.LittleEndian.PutUint64(buf[29:37], n.assetQty)
	binary.LittleEndian.PutUint32(buf[37:41], n.nextFree)
	copy(buf[41:41+callbackInfoLen], n.callbackInfo)
}

func decodeNode(buf []byte, callbackInfoLen int) node {
	var n node
	n.kind = nodeKind(buf[0])
	n.critBit = int(int32(binary.LittleEndian.Uint32(buf[1:5])))
	n.left = binary.LittleEndian.Uint32(buf[5:9])
	n.right = binary.LittleEndian.Uint32(buf[9:13])
	n.key.Price = binary.LittleEndian.Uint64(buf[13:21])
	n.key.Seq = binary.LittleEndian.Uint64(buf[21:29])
	n.assetQty = binary.LittleEndian.Uint64(buf[29:37])
	n.nextFree = binary.LittleEndian.Uint32(buf[37:41])
	if callbackInfoLen > 0 {
		info := make([]byte, callbackInfoLen)
		copy(info, buf[41:41+callbackInfoLen])
		n.callbackInfo = info
	}
	return n
}
