// Package buffer contains the in-memory containers records wait in between two flushes.
package buffer

// Buffer is an in-memory container for pending records.
//
// Implementations are not considered thread-safe.
type Buffer[Item any] interface {
	// Push adds items to the buffer, keeping their order.
	Push(items ...Item)
	// Size returns the number of items in the buffer.
	Size() int
	// Take returns all items and leaves the buffer empty. The returned slice is owned by the
	// caller: the buffer never writes into it again.
	Take() []Item
}
