package scpi

import (
	"fmt"
	"io"
	"time"
)

// maxBlockPrefix bounds the command echo an instrument may send before the
// '#' of a definite-length block.
const maxBlockPrefix = 32

// QueryBlock sends a command whose reply is an IEEE-488.2 definite-length
// block ("#<n><length><payload>") and returns the reply bytes exactly as
// received, prefix and trailing terminator included. The caller decodes
// the block; this layer only needs the declared length to know when the
// reply ends.
func (m *Manager) QueryBlock(msg string) ([]byte, error) {
	if err := m.Command(msg); err != nil {
		return nil, err
	}

	raw := make([]byte, 0, 512)
	buf := make([]byte, 1)

	// Skip any echo up to the '#' marker.
	for {
		if err := m.readAll(buf); err != nil {
			return raw, fmt.Errorf("block %q: read prefix: %w", msg, err)
		}
		raw = append(raw, buf[0])
		if buf[0] == '#' {
			break
		}
		if len(raw) > maxBlockPrefix {
			return raw, fmt.Errorf("block %q: no '#' marker within %d bytes", msg, maxBlockPrefix)
		}
	}

	if err := m.readAll(buf); err != nil {
		return raw, fmt.Errorf("block %q: read digit count: %w", msg, err)
	}
	raw = append(raw, buf[0])
	digits := int(buf[0] - '0')
	if digits < 1 || digits > 9 {
		return raw, fmt.Errorf("block %q: invalid length digit count %q", msg, buf[0])
	}

	lenField := make([]byte, digits)
	if err := m.readAll(lenField); err != nil {
		return raw, fmt.Errorf("block %q: read length field: %w", msg, err)
	}
	raw = append(raw, lenField...)
	declared := 0
	for _, c := range lenField {
		if c < '0' || c > '9' {
			return raw, fmt.Errorf("block %q: non-digit %q in length field", msg, c)
		}
		declared = declared*10 + int(c-'0')
	}

	payload := make([]byte, declared)
	m.applyReadDeadline()
	n, err := io.ReadFull(m.conn, payload)
	raw = append(raw, payload[:n]...)
	if err != nil {
		return raw, fmt.Errorf("block %q: read %d payload bytes, got %d: %w", msg, declared, n, err)
	}

	// Consume the trailing terminator if the instrument sends one. Uses a
	// short deadline of its own so a scope that omits it does not stall
	// every acquisition for the full read timeout.
	if m.conn != nil {
		_ = m.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		if n, err := m.conn.Read(buf); err == nil && n == 1 && buf[0] == '\n' {
			raw = append(raw, buf[0])
		}
	}

	return raw, nil
}
