// Package arena pools the fixed-size byte buffers handed to slabs as
// their backing buffer, sized for a full node arena. A slab flushes
// only its header into the buffer; its nodes are kept in a Go slice.
package arena

import "sync"

// BufferPool hands out zeroed byte slices of a single fixed size, one
// per slab capacity class (e.g. every 512-leaf market shares a pool).
type BufferPool struct {
	pool     sync.Pool
	nodeSize int
	capacity int

	mu     sync.Mutex
	gets   uint64
	misses uint64
}

// NewBufferPool returns a pool whose buffers are sized to hold exactly
// capacity arena nodes of nodeSize bytes each.
func NewBufferPool(nodeSize, capacity int) *BufferPool {
	bufLen := nodeSize * capacity
	return &BufferPool{
		nodeSize: nodeSize,
		capacity: capacity,
		pool: sync.Pool{
			New: func() interface{} {
				return make([]byte, bufLen)
			},
		},
	}
}

// Get returns a zeroed buffer sized for this pool's capacity.
func (p *BufferPool) Get() []byte {
	p.mu.Lock()
	p.gets++
	p.mu.Unlock()

	buf := p.pool.Get().([]byte)
	want := p.nodeSize * p.capacity
	if len(buf) != want {
		p.mu.Lock()
		p.misses++
		p.mu.Unlock()
		return make([]byte, want)
	}
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// Put returns buf to the pool. Buffers of the wrong size are dropped
// rather than pooled, since a future Get would just reallocate anyway.
func (p *BufferPool) Put(buf []byte) {
	if buf == nil || len(buf) != p.nodeSize*p.capacity {
		return
	}
	p.pool.Put(buf)
}

// Stats reports the pool's lifetime Get calls and how many of those
// missed (required a fresh allocation because of a size mismatch).
func (p *BufferPool) Stats() (gets, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gets, p.misses
}
