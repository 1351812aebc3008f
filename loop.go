package notify2

import (
	"context"
	"sync"
)

// Names of the event loops built into the package, accepted by WithLoopName.
const (
	// LoopSerial runs callbacks one at a time on a dedicated goroutine, in
	// the order the signals were received.
	LoopSerial = "serial"
	// LoopInline runs callbacks directly on the goroutine delivering the
	// signals.
	LoopInline = "inline"
)

// Loop integrates signal delivery with an event loop. Dispatch is called once
// per received signal, in delivery order, and must eventually run fn.
type Loop interface {
	Dispatch(fn func())
}

// LoopFunc adapts a function to the Loop interface.
type LoopFunc func(fn func())

// Dispatch calls f(fn).
func (f LoopFunc) Dispatch(fn func()) { f(fn) }

var inlineLoop = LoopFunc(func(fn func()) { fn() })

var defaultLoop struct {
	sync.Mutex
	loop Loop
}

// SetDefaultLoop installs a process-wide event loop, used by every Init that
// is not given one explicitly. Passing nil removes it.
func SetDefaultLoop(l Loop) {
	defaultLoop.Lock()
	defaultLoop.loop = l
	defaultLoop.Unlock()
}

// DefaultLoop returns the loop installed by SetDefaultLoop, or nil.
func DefaultLoop() Loop {
	defaultLoop.Lock()
	defer defaultLoop.Unlock()
	return defaultLoop.loop
}

// funcQueue is an unbounded FIFO of callbacks. wake holds a token whenever
// items may be pending.
type funcQueue struct {
	mu    sync.Mutex
	items []func()
	wake  chan struct{}
}

func newFuncQueue() funcQueue {
	return funcQueue{wake: make(chan struct{}, 1)}
}

func (q *funcQueue) push(fn func()) {
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *funcQueue) pop() func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	fn := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return fn
}

func (q *funcQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// SerialLoop runs dispatched callbacks sequentially on its own goroutine.
type SerialLoop struct {
	queue funcQueue
	done  chan struct{}
	once  sync.Once
}

// NewSerialLoop starts a SerialLoop. Stop must be called to release its
// goroutine.
func NewSerialLoop() *SerialLoop {
	l := &SerialLoop{
		queue: newFuncQueue(),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *SerialLoop) run() {
	for {
		select {
		case <-l.queue.wake:
			for fn := l.queue.pop(); fn != nil; fn = l.queue.pop() {
				fn()
			}
		case <-l.done:
			return
		}
	}
}

// Dispatch queues fn. Callbacks queued after Stop are never run.
func (l *SerialLoop) Dispatch(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	l.queue.push(fn)
}

// Stop terminates the loop goroutine. It is safe to call more than once.
func (l *SerialLoop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// ManualLoop queues dispatched callbacks until the caller runs them, so that
// all callbacks execute on the caller's goroutine.
type ManualLoop struct {
	queue funcQueue
}

// NewManualLoop creates an empty ManualLoop.
func NewManualLoop() *ManualLoop {
	return &ManualLoop{queue: newFuncQueue()}
}

// Dispatch queues fn.
func (l *ManualLoop) Dispatch(fn func()) {
	l.queue.push(fn)
}

// Pending returns the number of queued callbacks.
func (l *ManualLoop) Pending() int {
	return l.queue.len()
}

// Iterate runs the oldest queued callback, if any, and reports whether one
// was run.
func (l *ManualLoop) Iterate() bool {
	fn := l.queue.pop()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Run executes callbacks as they are queued until ctx is done.
func (l *ManualLoop) Run(ctx context.Context) error {
	for {
		for l.Iterate() {
		}
		select {
		case <-l.queue.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
