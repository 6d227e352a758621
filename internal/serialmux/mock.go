package serialmux

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// ErrPortClosed is returned by MockPort after Close.
var ErrPortClosed = errors.New("serial port closed")

// MockPort is an in-memory SerialPorter. Reads block until data is fed,
// EndInput is called or the port is closed.
type MockPort struct {
	mu      sync.Mutex
	cond    *sync.Cond
	in      bytes.Buffer
	out     bytes.Buffer
	eof     bool
	closed  bool
	WriteFn func(p []byte) (int, error)
}

// NewMockPort returns an empty port.
func NewMockPort() *MockPort {
	m := &MockPort{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Feed queues data for Read.
func (m *MockPort) Feed(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.in.WriteString(data)
	m.cond.Broadcast()
}

// EndInput makes Read return io.EOF once the queued data is consumed.
func (m *MockPort) EndInput() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eof = true
	m.cond.Broadcast()
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.in.Len() == 0 && !m.eof && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return 0, ErrPortClosed
	}
	if m.in.Len() == 0 {
		return 0, io.EOF
	}
	return m.in.Read(p)
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrPortClosed
	}
	if m.WriteFn != nil {
		return m.WriteFn(p)
	}
	return m.out.Write(p)
}

// Close wakes blocked readers.
func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
	return nil
}

// Written returns everything written so far.
func (m *MockPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.String()
}
