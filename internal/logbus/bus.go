package logbus

import (
	"sync"
	"sync/atomic"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
	"github.com/94faddy/dz-wrokshop/internal/models"
)

// Bus is a bounded ring-buffer pub/sub for log records, giving new
// websocket subscribers a burst of recent history followed by a live
// feed, and evicting subscribers that fall behind instead of applying
// back-pressure to publishers (§4.6).
type Bus struct {
	mu   sync.Mutex
	ring []models.LogRecord
	head int
	size int
	cap  int

	subs map[chan<- models.LogRecord]struct{}

	nextID uint64
}

var _ interfaces.LogBus = (*Bus)(nil)

// New creates a Bus with the given ring capacity. Capacity bounds memory
// use for Recent(); subscriber channels have their own buffer supplied
// by the caller.
func New(capacity int) *Bus {
	return &Bus{
		ring: make([]models.LogRecord, capacity),
		cap:  capacity,
		subs: make(map[chan<- models.LogRecord]struct{}),
	}
}

// Publish appends the record to the ring buffer and fans it out to every
// live subscriber. A subscriber whose channel is full is dropped rather
// than blocking the publisher (slow-subscriber eviction, §4.6).
func (b *Bus) Publish(record models.LogRecord) {
	record.ID = atomic.AddUint64(&b.nextID, 1)

	b.mu.Lock()
	if b.cap > 0 {
		b.ring[b.head] = record
		b.head = (b.head + 1) % b.cap
		if b.size < b.cap {
			b.size++
		}
	}
	subs := make([]chan<- models.LogRecord, 0, len(b.subs))
	for ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- record:
		default:
			b.evict(ch)
		}
	}
}

// Subscribe registers ch to receive future records and returns a function
// that removes it. Subscribe does not itself send the burst of recent
// history; callers pair it with Recent to implement burst-then-live.
func (b *Bus) Subscribe(ch chan<- models.LogRecord) (unsubscribe func()) {
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.evict(ch) })
	}
}

func (b *Bus) evict(ch chan<- models.LogRecord) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Recent returns up to n of the most recently published records, oldest
// first. It is the burst half of burst-then-live: a caller subscribes
// first, then calls Recent, so no record published in between is lost or
// duplicated beyond an acceptable at-most-once race on the boundary.
func (b *Bus) Recent(n int) []models.LogRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > b.size {
		n = b.size
	}
	out := make([]models.LogRecord, n)
	start := (b.head - n + b.cap) % b.cap
	for i := 0; i < n; i++ {
		out[i] = b.ring[(start+i)%b.cap]
	}
	return out
}
