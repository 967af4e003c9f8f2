package scope

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rjboer/GoScope/wavedesc"
)

// mockGain is the volts-per-count scaling the mock writes into its
// descriptors: a full-scale 1 V tone spans +/-25000 counts.
const mockGain = 4e-5

// Mock synthesizes waveform blocks through the same encode/decode path a
// real instrument exercises, so callers see byte-faithful descriptors.
// Each channel carries a sine tone with a channel-dependent phase.
type Mock struct {
	mu   sync.RWMutex
	cfg  Config
	vdiv map[int]float64
	mode string
}

func NewMock() *Mock {
	return &Mock{vdiv: map[int]float64{}, mode: "AUTO"}
}

func (m *Mock) Init(_ context.Context, cfg Config) error {
	if cfg.NumSamples <= 0 {
		cfg.NumSamples = 1000
	}
	if cfg.SegmentCount <= 0 {
		cfg.SegmentCount = 1
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 1e9
	}
	if cfg.ToneFreq <= 0 {
		cfg.ToneFreq = 1e6
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

func (m *Mock) Identify(_ context.Context) (string, error) {
	return "GOSCOPE,SIM,000000000,1.0", nil
}

func (m *Mock) Acquire(_ context.Context, channel int) (*wavedesc.Waveform, error) {
	if err := validateChannel(channel); err != nil {
		return nil, err
	}
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()
	if cfg.NumSamples == 0 {
		return nil, fmt.Errorf("mock scope not initialized")
	}

	dt := 1 / cfg.SampleRate
	horizOffset := -float64(cfg.NumSamples) * dt / 2
	phase := math.Pi / 4 * float64(channel)

	var segOffsets []float64
	if cfg.SegmentCount > 1 {
		segOffsets = make([]float64, cfg.SegmentCount)
		spacing := float64(cfg.NumSamples) * dt * 10
		for i := range segOffsets {
			segOffsets[i] = float64(i) * spacing
		}
	}

	segments := make([][]int16, cfg.SegmentCount)
	for i := range segments {
		seg := make([]int16, cfg.NumSamples)
		for j := range seg {
			t := float64(j) * dt
			seg[j] = int16(math.Round(25000 * math.Sin(2*math.Pi*cfg.ToneFreq*t+phase)))
		}
		segments[i] = seg
	}

	block, err := wavedesc.EncodeBlock(wavedesc.Descriptor{
		TraceLabel:         fmt.Sprintf("C%d", channel),
		SampleWidth:        2,
		VerticalGain:       mockGain,
		HorizInterval:      dt,
		HorizOffset:        horizOffset,
		SegmentTimeOffsets: segOffsets,
		MaxValue:           25000,
		MinValue:           -25000,
	}, segments)
	if err != nil {
		return nil, fmt.Errorf("synthesize block: %w", err)
	}

	w, err := wavedesc.Decode(block)
	if err != nil {
		return nil, fmt.Errorf("decode synthesized block: %w", err)
	}
	return w, nil
}

func (m *Mock) AcquireAll(ctx context.Context, channels []int) (map[int]*wavedesc.Waveform, error) {
	out := make(map[int]*wavedesc.Waveform, len(channels))
	for _, ch := range channels {
		w, err := m.Acquire(ctx, ch)
		if err != nil {
			return nil, err
		}
		out[ch] = w
	}
	return out, nil
}

func (m *Mock) SetTriggerMode(_ context.Context, mode string) error {
	mode = strings.ToUpper(mode)
	if err := validateTriggerMode(mode); err != nil {
		return err
	}
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	return nil
}

func (m *Mock) SetVDiv(_ context.Context, channel int, voltsPerDiv float64) error {
	if err := validateChannel(channel); err != nil {
		return err
	}
	m.mu.Lock()
	m.vdiv[channel] = voltsPerDiv
	m.mu.Unlock()
	return nil
}

func (m *Mock) GetVDiv(_ context.Context, channel int) (float64, error) {
	if err := validateChannel(channel); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vdiv[channel]; ok {
		return v, nil
	}
	return 0.5, nil
}

// WaitTrigger completes immediately; the mock always has data ready.
func (m *Mock) WaitTrigger(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (m *Mock) Close() error { return nil }
