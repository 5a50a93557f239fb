package buffer

var _ Buffer[any] = (*AppendingBuffer[any])(nil)

// AppendingBuffer keeps every pushed item in push order.
type AppendingBuffer[Item any] struct {
	items    []Item
	capacity int
}

// Appending returns a buffer that preallocates capacity items after every [AppendingBuffer.Take].
func Appending[Item any](capacity int) *AppendingBuffer[Item] {
	if capacity < 0 {
		panic("capacity can't be < 0")
	}
	return &AppendingBuffer[Item]{
		items:    make([]Item, 0, capacity),
		capacity: capacity,
	}
}

func (b *AppendingBuffer[Item]) Push(items ...Item) {
	b.items = append(b.items, items...)
}

func (b *AppendingBuffer[Item]) Size() int {
	return len(b.items)
}

func (b *AppendingBuffer[Item]) Take() []Item {
	items := b.items
	b.items = make([]Item, 0, b.capacity)
	return items
}
