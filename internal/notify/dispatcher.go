package notify

import (
	"context"
	"sync"
	"time"

	"produce-market/internal/metrics"

	"go.uber.org/zap"
)

const defaultSendTimeout = 15 * time.Second

// Dispatcher sends messages from a bounded queue on a fixed set of workers.
// Enqueue never blocks; when the queue is full the message is dropped.
type Dispatcher struct {
	sender  Sender
	queue   chan Message
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, workers, queueSize int, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	d := &Dispatcher{
		sender:  sender,
		queue:   make(chan Message, queueSize),
		timeout: defaultSendTimeout,
		metrics: m,
		logger:  logger,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Enqueue schedules msg and reports whether it was accepted.
func (d *Dispatcher) Enqueue(msg Message) bool {
	if msg.To == "" {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(msg, "dispatcher closed")
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		d.drop(msg, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(msg Message, reason string) {
	d.metrics.EmailResult(metrics.EmailDropped)
	d.logger.Warn("Email dropped",
		zap.String("reason", reason),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.send(msg)
	}
}

func (d *Dispatcher) send(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.metrics.EmailResult(metrics.EmailFailed)
		d.logger.Error("Failed to send email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return
	}
	d.metrics.EmailResult(metrics.EmailSent)
}

// Close stops accepting messages and waits for queued ones to be sent,
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
