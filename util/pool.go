package util

import "sync"

// ChunkSize is the size of a single socket read on the relay path.
const ChunkSize = 4096

// BufPool provides reusable read chunks, reducing GC pressure on the
// burst-read loop that every session runs for each direction.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
