// Package scpi implements the newline-framed SCPI command channel used by
// LXI-class instruments over raw TCP. It owns connection lifecycle, I/O
// deadlines, and definite-length block reads; interpretation of the bytes
// it returns belongs to the caller.
package scpi

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/rjboer/GoScope/internal/logging"
)

type Manager struct {
	Address string
	Timeout time.Duration

	logger logging.Logger
	conn   net.Conn
}

func New(addr string) *Manager {
	return &Manager{
		Address: addr,
		Timeout: 5 * time.Second,
		logger:  logging.Default(),
	}
}

// SetLogger replaces the manager's logger.
func (m *Manager) SetLogger(l logging.Logger) {
	if l != nil {
		m.logger = l
	}
}

// Connect dials the instrument, retrying with exponential backoff. Scopes
// reboot slowly and drop the listener while doing so; a short retry window
// covers that without hiding a dead address for long.
func (m *Manager) Connect() error {
	dial := func() error {
		c, err := net.DialTimeout("tcp", m.Address, m.Timeout)
		if err != nil {
			m.logger.Warn("dial failed, retrying", logging.Field{Key: "addr", Value: m.Address}, logging.Field{Key: "err", Value: err})
			return err
		}
		m.conn = c
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	if err := backoff.Retry(dial, policy); err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	m.logger.Debug("connected", logging.Field{Key: "addr", Value: m.Address})
	return nil
}

// SetConn injects an existing connection (tests, tunnels).
func (m *Manager) SetConn(conn net.Conn) {
	m.conn = conn
}

func (m *Manager) Close() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

func (m *Manager) SetTimeout(d time.Duration) {
	m.Timeout = d
}

func (m *Manager) applyReadDeadline() {
	if m.conn != nil && m.Timeout > 0 {
		_ = m.conn.SetReadDeadline(time.Now().Add(m.Timeout))
	}
}

func (m *Manager) applyWriteDeadline() {
	if m.conn != nil && m.Timeout > 0 {
		_ = m.conn.SetWriteDeadline(time.Now().Add(m.Timeout))
	}
}

// writeAll writes the full buffer, handling short writes.
func (m *Manager) writeAll(b []byte) error {
	if m.conn == nil {
		return fmt.Errorf("writeAll: not connected")
	}
	for len(b) > 0 {
		m.applyWriteDeadline()
		n, err := m.conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// readAll reads exactly len(b) bytes from the raw connection. Reads are
// deliberately unbuffered so binary block payloads are never swallowed by
// a line reader.
func (m *Manager) readAll(b []byte) error {
	if m.conn == nil {
		return fmt.Errorf("readAll: not connected")
	}
	m.applyReadDeadline()
	_, err := io.ReadFull(m.conn, b)
	return err
}

// Command sends one SCPI command without expecting a response.
func (m *Manager) Command(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("empty command")
	}
	m.logger.Debug("scpi command", logging.Field{Key: "msg", Value: msg})
	return m.writeAll([]byte(msg + "\n"))
}

// Query sends a command and reads one newline-terminated reply, with the
// terminator stripped.
func (m *Manager) Query(msg string) (string, error) {
	if err := m.Command(msg); err != nil {
		return "", err
	}
	line, err := m.readLine(maxLineLength)
	if err != nil {
		return "", fmt.Errorf("query %q: %w", msg, err)
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// maxLineLength bounds text replies; instrument answers are short.
const maxLineLength = 4096

// readLine reads a single LF-terminated line byte by byte from the raw
// socket, up to maxLen bytes.
func (m *Manager) readLine(maxLen int) ([]byte, error) {
	if m.conn == nil {
		return nil, fmt.Errorf("readLine: not connected")
	}
	line := make([]byte, 0, 64)
	buf := make([]byte, 1)
	for len(line) < maxLen {
		if err := m.readAll(buf); err != nil {
			return line, err
		}
		line = append(line, buf[0])
		if buf[0] == '\n' {
			return line, nil
		}
	}
	return line, fmt.Errorf("readLine: no terminator within %d bytes", maxLen)
}
