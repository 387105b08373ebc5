package proxy

import (
	"sync"
)

const copyBufferSize = 32 * 1024

// copyBuffers holds relay buffers. Pointers are pooled so Put does not
// allocate.
var copyBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, copyBufferSize)
		return &b
	},
}

func getCopyBuffer() *[]byte {
	return copyBuffers.Get().(*[]byte)
}

func putCopyBuffer(b *[]byte) {
	copyBuffers.Put(b)
}
