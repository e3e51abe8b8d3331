package webhook

import "time"

// DeadLetterItem records an event that exhausted its delivery retries.
type DeadLetterItem struct {
	WebhookID string
	Event     Event
	Error     string
	Attempts  int
	AddedAt   time.Time
}

// deadLetterQueue is a bounded FIFO. Callers hold the registry lock.
type deadLetterQueue struct {
	items   []DeadLetterItem
	maxSize int
	evicted int64
}

func newDeadLetterQueue(maxSize int) *deadLetterQueue {
	return &deadLetterQueue{maxSize: maxSize}
}

// push appends an item, evicting the oldest when full.
func (q *deadLetterQueue) push(item DeadLetterItem) {
	if len(q.items) >= q.maxSize {
		q.items = q.items[1:]
		q.evicted++
	}
	q.items = append(q.items, item)
}

// drain removes and returns all queued items.
func (q *deadLetterQueue) drain() []DeadLetterItem {
	items := q.items
	q.items = nil
	return items
}

// snapshot returns a copy of the queued items in FIFO order.
func (q *deadLetterQueue) snapshot() []DeadLetterItem {
	items := make([]DeadLetterItem, len(q.items))
	copy(items, q.items)
	return items
}

func (q *deadLetterQueue) len() int {
	return len(q.items)
}
