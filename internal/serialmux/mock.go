package serialmux

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// MockSerialPort is a SerialPorter fed from a pipe. Commands written to it
// are captured for inspection.
type MockSerialPort struct {
	r *io.PipeReader

	mu      sync.Mutex
	written bytes.Buffer
}

func (m *MockSerialPort) Read(p []byte) (int, error) { return m.r.Read(p) }

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.Write(p)
}

// Close stops the script generator and ends reads with io.EOF.
func (m *MockSerialPort) Close() error {
	return m.r.Close()
}

// Written returns every command written so far.
func (m *MockSerialPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.String()
}

// NewMockSerialMux creates a SerialMux whose port replays script, one line
// per interval, looping until the mux is closed. It drives dev mode without a
// digitizer attached.
func NewMockSerialMux(script []string, interval time.Duration) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()
	port := &MockSerialPort{r: r}

	go func() {
		defer w.Close()
		if len(script) == 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(script) {
			if _, err := io.WriteString(w, script[i]+"\n"); err != nil {
				return
			}
			<-ticker.C
		}
	}()

	return NewSerialMux(port)
}

// TestableSerialPort implements SerialPorter over in-memory buffers. Reads
// block until data is added or the port is closed.
type TestableSerialPort struct {
	mu       sync.Mutex
	cond     *sync.Cond
	read     bytes.Buffer
	written  bytes.Buffer
	closed   bool
	eof      bool
	WriteErr error
}

// NewTestableSerialPort creates an empty TestableSerialPort.
func NewTestableSerialPort() *TestableSerialPort {
	p := &TestableSerialPort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *TestableSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && p.read.Len() == 0 {
		if p.eof {
			return 0, io.EOF
		}
		p.cond.Wait()
	}
	if p.closed {
		return 0, errors.New("serial port closed")
	}
	return p.read.Read(b)
}

func (p *TestableSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("serial port closed")
	}
	if p.WriteErr != nil {
		return 0, p.WriteErr
	}
	return p.written.Write(b)
}

func (p *TestableSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}

// AddReadData queues data for subsequent reads.
func (p *TestableSerialPort) AddReadData(data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.read.WriteString(data)
	p.cond.Broadcast()
}

// EndOfInput makes reads return io.EOF once queued data is drained.
func (p *TestableSerialPort) EndOfInput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eof = true
	p.cond.Broadcast()
}

// Written returns all data written to the port.
func (p *TestableSerialPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}
