package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"skillbridge.io/marketplace/internal/metrics"
)

const deliveryTimeout = 10 * time.Second

// Sink delivers a message over one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Dispatcher fans messages out to sinks from a bounded queue. Notify never
// blocks: when the queue is full the message is dropped and counted. Sink
// failures are logged and counted, never returned.
type Dispatcher struct {
	queue   chan Message
	sinks   []Sink
	workers int
	log     logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(queueSize, workers int, log logrus.FieldLogger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		queue:   make(chan Message, queueSize),
		sinks:   sinks,
		workers: workers,
		log:     log,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

func (d *Dispatcher) Notify(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.RecordNotificationDropped()
		return
	}

	select {
	case d.queue <- msg:
	default:
		metrics.RecordNotificationDropped()
		d.log.WithFields(logrus.Fields{
			"type":         msg.Type,
			"recipient_id": msg.RecipientID,
		}).Warn("notification queue full, dropping message")
	}
}

// Stop closes the queue and waits for the workers to drain it or for ctx to
// expire, whichever comes first.
func (d *Dispatcher) Stop(ctx context.Context) error {
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

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := sink.Deliver(ctx, msg)
		cancel()

		metrics.RecordNotification(sink.Name(), err)
		if err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"sink":         sink.Name(),
				"type":         msg.Type,
				"recipient_id": msg.RecipientID,
				"entity_id":    msg.EntityID,
			}).Error("failed to deliver notification")
		}
	}
}
