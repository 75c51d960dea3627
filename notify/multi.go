package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Multi fans a notification out to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async hands notifications to a background goroutine so callers never block
// on a slow sink. Errors are logged.
type Async struct {
	next  Notifier
	log   logrus.FieldLogger
	queue chan Notification
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsync(next Notifier, log logrus.FieldLogger, buffer int) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	a := &Async{
		next:  next,
		log:   log,
		queue: make(chan Notification, buffer),
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer a.wg.Done()
	for n := range a.queue {
		if err := a.next.Notify(context.Background(), n); err != nil {
			a.log.WithError(err).WithField("kind", n.Kind).Warn("notification delivery failed")
		}
	}
}

// Notify enqueues n. When the buffer is full the notification is dropped.
func (a *Async) Notify(_ context.Context, n Notification) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.queue <- n:
	default:
		a.log.WithField("kind", n.Kind).Warn("notification queue full, dropping")
	}
	return nil
}

// Close drains pending notifications and stops the worker.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	a.wg.Wait()
}
