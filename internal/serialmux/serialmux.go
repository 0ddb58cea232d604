// Serialmux provides an abstraction over a touch digitizer's serial port with
// the ability for multiple clients to subscribe to its payload lines and send
// commands to the single device.
package serialmux

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/multitouch/internal/httputil"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// Digitizer commands sent by Initialize.
const (
	CommandReset        = "RESET"
	CommandStreamJSON   = "STREAM JSON"
	CommandCapabilities = "CAPS?"
	CommandBounds       = "BOUNDS?"
)

var sendCommandTemplate = template.Must(template.New("send-command").Parse(`<!DOCTYPE html>
<html>
<head><title>digitizer console</title></head>
<body>
<h1>Digitizer console</h1>
<form id="cmd" method="post" action="send-command-api">
  <input name="command" placeholder="CAPS?" autofocus>
  <button type="submit">Send</button>
</form>
<pre id="status"></pre>
<h2>Live tail</h2>
<pre id="tail"></pre>
<script>
const tail = document.getElementById("tail");
const status = document.getElementById("status");
document.getElementById("cmd").addEventListener("submit", async (e) => {
  e.preventDefault();
  const res = await fetch("send-command-api", {method: "POST", body: new FormData(e.target)});
  status.textContent = await res.text();
});
const es = new EventSource("tail");
es.onmessage = (ev) => {
  tail.textContent = ev.data + "\n" + tail.textContent.slice(0, {{.TailBytes}});
};
</script>
</body>
</html>
`))

// SerialMux is a serial port multiplexer that allows multiple clients to
// subscribe to lines from a single digitizer.
type SerialMux[T SerialPorter] struct {
	port T

	subscriberMu sync.Mutex
	subscribers  map[string]*subscriber
	lines        uint64 // non-blank lines read since start
	blank        uint64
	dropped      uint64 // across every subscriber, past and present

	commandMu sync.Mutex
	closing   bool
	closingMu sync.Mutex
}

type subscriber struct {
	ch        chan string
	since     time.Time
	delivered uint64
	dropped   uint64
}

// SubscriberStats counts the digitizer lines one subscriber received and the
// lines it missed because it was busy when they arrived.
type SubscriberStats struct {
	ID        string    `json:"id"`
	Since     time.Time `json:"since"`
	Delivered uint64    `json:"delivered"`
	Dropped   uint64    `json:"dropped"`
}

// LineStats summarises the fan-out of digitizer lines.
type LineStats struct {
	Lines       uint64            `json:"lines"`
	Blank       uint64            `json:"blank"`
	Dropped     uint64            `json:"dropped"`
	Subscribers []SubscriberStats `json:"subscribers"`
}

// SerialMuxInterface defines the interface for the SerialMux type.
type SerialMuxInterface interface {
	// Subscribe creates a new channel for receiving lines from the serial
	// port. The channel ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command to the serial port.
	SendCommand(string) error
	// Monitor reads lines from the serial port and fans them out to
	// subscribers.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the serial port.
	Close() error
	// Stats reports line counts and per-subscriber delivery counts.
	Stats() LineStats

	Initialize() error

	// AttachAdminRoutes attaches admin debugging endpoints to the given HTTP
	// mux served at /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// NewSerialMux creates a SerialMux over port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]*subscriber),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = &subscriber{ch: ch, since: time.Now()}
	return id, ch
}

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

// Stats returns a snapshot of the line counters, with subscribers ordered by
// when they subscribed.
func (s *SerialMux[T]) Stats() LineStats {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	st := LineStats{
		Lines:       s.lines,
		Blank:       s.blank,
		Dropped:     s.dropped,
		Subscribers: make([]SubscriberStats, 0, len(s.subscribers)),
	}
	for id, sub := range s.subscribers {
		st.Subscribers = append(st.Subscribers, SubscriberStats{
			ID:        id,
			Since:     sub.since,
			Delivered: sub.delivered,
			Dropped:   sub.dropped,
		})
	}
	sortSubscribers(st.Subscribers)
	return st
}

func sortSubscribers(subs []SubscriberStats) {
	slices.SortFunc(subs, func(a, b SubscriberStats) int {
		if c := a.Since.Compare(b.Since); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Initialize resets the digitizer, switches it to one JSON object per line
// and asks it to announce its touch point limit and surface bounds.
func (s *SerialMux[T]) Initialize() error {
	for _, command := range []string{
		CommandReset,
		CommandStreamJSON,
		CommandCapabilities,
		CommandBounds,
	} {
		if err := s.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send start command %q: %w", command, err)
		}
	}
	return nil
}

// SendCommand sends a command to the serial port.
func (s *SerialMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads the serial port and delivers each line to every subscriber
// ready to receive it. A subscriber that is busy misses the line and its
// dropped count grows; touch frames are never queued behind a slow reader.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking scan runs on its own goroutine so the loop below can
	// still observe cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			line = strings.TrimRight(line, "\r")
			s.fanOut(line)
		}
	}
}

func (s *SerialMux[T]) fanOut(line string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if line == "" {
		s.blank++
		return
	}
	s.lines++
	for _, sub := range s.subscribers {
		select {
		case sub.ch <- line:
			sub.delivered++
		default:
			sub.dropped++
			s.dropped++
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
	return s.port.Close()
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, s)
}

// lineMux is the subset of SerialMuxInterface the admin routes need.
type lineMux interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
	SendCommand(string) error
	Stats() LineStats
}

func attachAdminRoutes(mux *http.ServeMux, s lineMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("send-command", "send a command to the digitizer and tail its output", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := sendCommandTemplate.Execute(w, struct{ TailBytes int }{TailBytes: 16 << 10}); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
		}
	})

	debug.HandleSilentFunc("send-command-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}
		if err := s.SendCommand(command); err != nil {
			http.Error(w, "Failed to write command", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote command %q to serial port", command))
	})

	debug.HandleFunc("subscribers", "digitizer line counts and drops per subscriber", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		httputil.WriteJSONOK(w, s.Stats())
	})

	// Server-Sent Events, one event per digitizer line.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
