package rpc

import "sync"

// dispatcher runs posted functions one at a time, in posting order, on a
// single goroutine. The queue is unbounded so the read loop never blocks on
// a slow handler.
type dispatcher struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
	wake     chan struct{}
	done     chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// post queues fn. Functions posted after stop are dropped.
func (d *dispatcher) post(fn func()) {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// stop lets queued functions finish and then ends the goroutine.
func (d *dispatcher) stop() {
	d.mu.Lock()
	d.draining = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		draining := d.draining
		d.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		if len(batch) > 0 {
			continue
		}
		if draining {
			return
		}
		<-d.wake
	}
}
