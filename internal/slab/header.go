package slab

import "encoding/binary"

// headerSize is the on-wire size of a Header: 1 tag byte + 7 uint32
// fields, little-endian.
const headerSize = 1 + 7*4

func encodeHeader(buf []byte, h Header) {
	buf[0] = byte(h.Side)
	binary.LittleEndian.PutUint32(buf[1:5], h.Capacity)
	binary.LittleEndian.PutUint32(buf[5:9], h.BumpIndex)
	binary.LittleEndian.PutUint32(buf[9:13], h.FreeListHead)
	binary.LittleEndian.PutUint32(buf[13:17], h.FreeCount)
	binary.LittleEndian.PutUint32(buf[17:21], h.LeafCount)
	binary.LittleEndian.PutUint32(buf[21:25], h.RootHandle)
	binary.LittleEndian.PutUint32(buf[25:29], h.CallbackInfoLen)
}

// DecodeHeader parses a Header from its on-wire form.
func DecodeHeader(buf []byte) Header {
	return Header{
		Side:            Side(buf[0]),
		Capacity:        binary.LittleEndian.Uint32(buf[1:5]),
		BumpIndex:       binary.LittleEndian.Uint32(buf[5:9]),
		FreeListHead:    binary.LittleEndian.Uint32(buf[9:13]),
		FreeCount:       binary.LittleEndian.Uint32(buf[13:17]),
		LeafCount:       binary.LittleEndian.Uint32(buf[17:21]),
		RootHandle:      binary.LittleEndian.Uint32(buf[21:25]),
		CallbackInfoLen: binary.LittleEndian.Uint32(buf[25:29]),
	}
}
