// Package scope provides oscilloscope backends: a LeCroy instrument driven
// over the SCPI transport and a mock that synthesizes waveform blocks for
// offline runs and tests. Backends hand raw blocks to wavedesc and return
// fully scaled waveforms.
package scope

import (
	"context"
	"fmt"
	"time"

	"github.com/rjboer/GoScope/wavedesc"
)

// Config carries parameters required to initialize a scope backend.
type Config struct {
	Address     string        // host:port of the instrument's raw SCPI socket
	Timeout     time.Duration // per-exchange I/O timeout
	TriggerMode string        // optional initial trigger mode

	// Mock synthesis parameters, ignored by hardware backends.
	NumSamples   int     // samples per segment
	SegmentCount int     // segments per acquisition (sequence mode when > 1)
	SampleRate   float64 // samples per second
	ToneFreq     float64 // synthesized tone frequency in Hz
}

// Scope captures the instrument operations required for waveform capture.
type Scope interface {
	Init(ctx context.Context, cfg Config) error
	// Identify returns the instrument's *IDN? response.
	Identify(ctx context.Context) (string, error)
	// Acquire fetches and decodes one waveform block for the channel.
	Acquire(ctx context.Context, channel int) (*wavedesc.Waveform, error)
	// AcquireAll fetches every listed channel, keyed by channel number.
	AcquireAll(ctx context.Context, channels []int) (map[int]*wavedesc.Waveform, error)
	SetTriggerMode(ctx context.Context, mode string) error
	SetVDiv(ctx context.Context, channel int, voltsPerDiv float64) error
	GetVDiv(ctx context.Context, channel int) (float64, error)
	// WaitTrigger blocks until the instrument reports a completed
	// acquisition or the context ends.
	WaitTrigger(ctx context.Context) error
	Close() error
}

// channels are numbered 1..4 on WaveRunner-class front panels.
func validateChannel(channel int) error {
	if channel < 1 || channel > 4 {
		return fmt.Errorf("channel %d out of range 1..4", channel)
	}
	return nil
}

var triggerModes = map[string]bool{
	"AUTO":   true,
	"NORM":   true,
	"SINGLE": true,
	"STOP":   true,
}

func validateTriggerMode(mode string) error {
	if !triggerModes[mode] {
		return fmt.Errorf("trigger mode %q, must be one of AUTO, NORM, SINGLE, STOP", mode)
	}
	return nil
}
