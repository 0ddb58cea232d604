package serialmux

import (
	"context"
	"net/http"
	"sync"
)

// DisabledSerialMux is a no-op SerialMux used when no digitizer is attached
// (--disable-serial). It tracks subscribers so their channels close on
// Unsubscribe or Close and readers unblock during shutdown.
type DisabledSerialMux struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
}

func NewDisabledSerialMux() *DisabledSerialMux {
	return &DisabledSerialMux{
		subscribers: make(map[string]chan string),
	}
}

func (d *DisabledSerialMux) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		close(ch)
		return id, ch
	}
	d.subscribers[id] = ch
	return id, ch
}

func (d *DisabledSerialMux) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
}

func (d *DisabledSerialMux) SendCommand(string) error { return nil }

func (d *DisabledSerialMux) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func (d *DisabledSerialMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return nil
	}
	d.closing = true
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	return nil
}

func (d *DisabledSerialMux) Initialize() error { return nil }

// Stats lists the current subscribers. No lines are ever read.
func (d *DisabledSerialMux) Stats() LineStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := LineStats{Subscribers: make([]SubscriberStats, 0, len(d.subscribers))}
	for id := range d.subscribers {
		st.Subscribers = append(st.Subscribers, SubscriberStats{ID: id})
	}
	sortSubscribers(st.Subscribers)
	return st
}

func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/serial-disabled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("serial disabled"))
	})
}
