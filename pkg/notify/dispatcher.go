package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/contacts_api/pkg/logging"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 256
	defaultTimeout   = 15 * time.Second
)

type job struct {
	ctx context.Context
	n   Notification
}

// Dispatcher is a Notifier that hands notifications to a Sender on a small
// worker pool. When the queue is full the notification is dropped and logged.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	d := &Dispatcher{
		sender:  sender,
		timeout: timeout,
		queue:   make(chan job, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	l := logging.FromContext(ctx).With("purpose", n.Purpose)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		l.Warn("notification_dropped", "reason", "dispatcher closed")
		return
	}

	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), n: n}:
	default:
		l.Warn("notification_dropped", "reason", "queue full")
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	l := logging.FromContext(ctx).With("purpose", j.n.Purpose, "email", j.n.Email)
	if err := d.sender.Send(ctx, j.n); err != nil {
		l.Error("notification_failed", "error", err)
		return
	}
	l.Info("notification_sent")
}

// Close stops accepting notifications and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
