package notify

import (
	"context"
	"sync"
)

// Recorder keeps notifications in memory for tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
	Err  error
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.Err
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Kinds returns the kinds of every recorded notification, in order.
func (r *Recorder) Kinds() []Kind {
	all := r.All()
	out := make([]Kind, 0, len(all))
	for _, n := range all {
		out = append(out, n.Kind)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}
