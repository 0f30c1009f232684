package progress

import (
	"log/slog"
	"sync"
)

// Observer receives progress snapshots. Calls happen on the notifier's
// goroutine, one at a time, in publication order.
type Observer interface {
	Notify(s Snapshot)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(s Snapshot)

// Notify calls f(s)
func (f ObserverFunc) Notify(s Snapshot) {
	f(s)
}

// Notifier delivers snapshots to observers through an unbounded FIFO drained
// by a dedicated goroutine. Notify never blocks on an observer and never
// coalesces or drops a snapshot.
type Notifier struct {
	observers []Observer

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Snapshot
	closed bool

	done chan struct{}
}

// NewNotifier starts a notifier for the given observers
func NewNotifier(observers ...Observer) *Notifier {
	n := &Notifier{
		observers: observers,
		done:      make(chan struct{}),
	}
	n.cond = sync.NewCond(&n.mu)
	go n.run()
	return n
}

// Notify enqueues s for delivery. Snapshots published after Close are ignored.
func (n *Notifier) Notify(s Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.queue = append(n.queue, s)
	n.cond.Signal()
}

// Close waits for every queued snapshot to be delivered, then stops the
// delivery goroutine. It is safe to call more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.cond.Signal()
	n.mu.Unlock()

	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)

	for {
		n.mu.Lock()
		for len(n.queue) == 0 && !n.closed {
			n.cond.Wait()
		}
		if len(n.queue) == 0 && n.closed {
			n.mu.Unlock()
			return
		}
		batch := n.queue
		n.queue = nil
		n.mu.Unlock()

		for _, s := range batch {
			n.deliver(s)
		}
	}
}

func (n *Notifier) deliver(s Snapshot) {
	for _, o := range n.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Progress observer panicked", "panic", r)
				}
			}()
			o.Notify(s)
		}()
	}
}
