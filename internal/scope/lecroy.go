package scope

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rjboer/GoScope/internal/logging"
	"github.com/rjboer/GoScope/internal/scpi"
	"github.com/rjboer/GoScope/wavedesc"
)

// LeCroy drives a WaveRunner-class oscilloscope over its raw SCPI socket.
// Init programs the reply and transfer formats the decoder expects; after
// that every acquisition is a single block query per channel.
type LeCroy struct {
	mu     sync.Mutex
	mgr    *scpi.Manager
	logger logging.Logger
}

func NewLeCroy() *LeCroy {
	return &LeCroy{logger: logging.Default()}
}

// SetLogger configures the backend logger. Must be called before Init.
func (s *LeCroy) SetLogger(l logging.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Init connects to the instrument and programs the session formats:
// CHDR OFF for numeric-only replies, CFMT for 16-bit binary waveform
// transfers, CORD LO for little-endian sample data.
func (s *LeCroy) Init(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.Address == "" {
		return fmt.Errorf("scope address is required")
	}

	mgr := scpi.New(cfg.Address)
	mgr.SetLogger(s.logger)
	if cfg.Timeout > 0 {
		mgr.SetTimeout(cfg.Timeout)
	}
	if err := mgr.Connect(); err != nil {
		return fmt.Errorf("connect scope: %w", err)
	}

	setup := []string{
		"CHDR OFF",
		"CFMT DEF9,WORD,BIN",
		"CORD LO",
	}
	for _, cmd := range setup {
		if err := mgr.Command(cmd); err != nil {
			_ = mgr.Close()
			return fmt.Errorf("setup %q: %w", cmd, err)
		}
	}

	s.mgr = mgr

	if cfg.TriggerMode != "" {
		if err := s.setTriggerModeLocked(cfg.TriggerMode); err != nil {
			_ = mgr.Close()
			s.mgr = nil
			return err
		}
	}

	s.logger.Info("scope initialized", logging.Field{Key: "addr", Value: cfg.Address})
	return nil
}

func (s *LeCroy) manager() (*scpi.Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mgr == nil {
		return nil, fmt.Errorf("scope not initialized")
	}
	return s.mgr, nil
}

// Identify returns the instrument identification string.
func (s *LeCroy) Identify(_ context.Context) (string, error) {
	mgr, err := s.manager()
	if err != nil {
		return "", err
	}
	idn, err := mgr.Query("*IDN?")
	if err != nil {
		return "", fmt.Errorf("identify: %w", err)
	}
	return idn, nil
}

// Acquire fetches one channel's waveform block and decodes it.
func (s *LeCroy) Acquire(_ context.Context, channel int) (*wavedesc.Waveform, error) {
	if err := validateChannel(channel); err != nil {
		return nil, err
	}
	mgr, err := s.manager()
	if err != nil {
		return nil, err
	}

	block, err := mgr.QueryBlock(fmt.Sprintf("C%d:WF? ALL", channel))
	if err != nil {
		return nil, fmt.Errorf("read waveform block C%d: %w", channel, err)
	}

	w, err := wavedesc.Decode(block)
	if err != nil {
		return nil, fmt.Errorf("decode waveform C%d: %w", channel, err)
	}

	s.logger.Debug("waveform acquired",
		logging.Field{Key: "channel", Value: channel},
		logging.Field{Key: "segments", Value: len(w.Segments)},
		logging.Field{Key: "samples", Value: w.Descriptor.SampleCount})
	return w, nil
}

// AcquireAll fetches the listed channels in order and returns them keyed
// by channel number.
func (s *LeCroy) AcquireAll(ctx context.Context, channels []int) (map[int]*wavedesc.Waveform, error) {
	out := make(map[int]*wavedesc.Waveform, len(channels))
	for _, ch := range channels {
		w, err := s.Acquire(ctx, ch)
		if err != nil {
			return nil, err
		}
		out[ch] = w
	}
	return out, nil
}

func (s *LeCroy) setTriggerModeLocked(mode string) error {
	mode = strings.ToUpper(mode)
	if err := validateTriggerMode(mode); err != nil {
		return err
	}
	if err := s.mgr.Command("TRIG_MODE " + mode); err != nil {
		return fmt.Errorf("set trigger mode: %w", err)
	}
	return nil
}

func (s *LeCroy) SetTriggerMode(_ context.Context, mode string) error {
	if _, err := s.manager(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTriggerModeLocked(mode)
}

// SetVDiv sets the vertical scale of a channel in volts per division.
func (s *LeCroy) SetVDiv(_ context.Context, channel int, voltsPerDiv float64) error {
	if err := validateChannel(channel); err != nil {
		return err
	}
	mgr, err := s.manager()
	if err != nil {
		return err
	}
	if err := mgr.Command(fmt.Sprintf("C%d:VDIV %g", channel, voltsPerDiv)); err != nil {
		return fmt.Errorf("set vdiv C%d: %w", channel, err)
	}
	return nil
}

// GetVDiv reads the vertical scale of a channel in volts per division.
func (s *LeCroy) GetVDiv(_ context.Context, channel int) (float64, error) {
	if err := validateChannel(channel); err != nil {
		return 0, err
	}
	mgr, err := s.manager()
	if err != nil {
		return 0, err
	}
	reply, err := mgr.Query(fmt.Sprintf("C%d:VDIV?", channel))
	if err != nil {
		return 0, fmt.Errorf("query vdiv C%d: %w", channel, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("parse vdiv reply %q: %w", reply, err)
	}
	return v, nil
}

// triggerPollInterval paces INR? status polling while waiting for an
// acquisition to complete.
const triggerPollInterval = 100 * time.Millisecond

// WaitTrigger polls the internal state change register until the
// instrument reports a completed acquisition (bit 0 of INR?).
func (s *LeCroy) WaitTrigger(ctx context.Context) error {
	mgr, err := s.manager()
	if err != nil {
		return err
	}
	for {
		reply, err := mgr.Query("INR?")
		if err != nil {
			return fmt.Errorf("poll trigger status: %w", err)
		}
		status, err := strconv.Atoi(strings.TrimSpace(reply))
		if err != nil {
			return fmt.Errorf("parse INR reply %q: %w", reply, err)
		}
		if status&1 != 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(triggerPollInterval):
		}
	}
}

func (s *LeCroy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mgr == nil {
		return nil
	}
	err := s.mgr.Close()
	s.mgr = nil
	return err
}
