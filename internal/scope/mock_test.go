package scope

import (
	"context"
	"reflect"
	"testing"
)

func initMock(t *testing.T, cfg Config) *Mock {
	t.Helper()
	m := NewMock()
	if err := m.Init(context.Background(), cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return m
}

func TestMockAcquireShape(t *testing.T) {
	m := initMock(t, Config{NumSamples: 256, SegmentCount: 3})

	w, err := m.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if len(w.Segments) != 3 {
		t.Fatalf("segments: got %d, want 3", len(w.Segments))
	}
	for i, seg := range w.Segments {
		if len(seg.Time) != 256 || len(seg.Amplitude) != 256 {
			t.Fatalf("segment %d shape: %d/%d samples", i, len(seg.Time), len(seg.Amplitude))
		}
	}
	if w.Descriptor.SegmentCount != 3 || w.Descriptor.SampleCount != 768 {
		t.Fatalf("descriptor counts: %d segments, %d samples", w.Descriptor.SegmentCount, w.Descriptor.SampleCount)
	}

	// Later segments must start later on the shared time base.
	if w.Segments[1].TimeOrigin <= w.Segments[0].TimeOrigin {
		t.Fatalf("segment origins not increasing: %g then %g", w.Segments[0].TimeOrigin, w.Segments[1].TimeOrigin)
	}
}

func TestMockAcquireDeterministic(t *testing.T) {
	m := initMock(t, Config{NumSamples: 128})

	first, err := m.Acquire(context.Background(), 2)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	second, err := m.Acquire(context.Background(), 2)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("mock acquisitions are not deterministic")
	}
}

func TestMockAcquireAll(t *testing.T) {
	m := initMock(t, Config{NumSamples: 64})

	waves, err := m.AcquireAll(context.Background(), []int{1, 2, 3})
	if err != nil {
		t.Fatalf("AcquireAll failed: %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("channel count: got %d", len(waves))
	}
	for ch, w := range waves {
		if w == nil || len(w.Segments) != 1 {
			t.Fatalf("channel %d: bad waveform", ch)
		}
	}
}

func TestMockVDiv(t *testing.T) {
	m := initMock(t, Config{})

	if _, err := m.GetVDiv(context.Background(), 9); err == nil {
		t.Fatal("expected error for channel 9")
	}
	v, err := m.GetVDiv(context.Background(), 1)
	if err != nil || v != 0.5 {
		t.Fatalf("default vdiv: got %v, %v", v, err)
	}
	if err := m.SetVDiv(context.Background(), 1, 0.2); err != nil {
		t.Fatalf("SetVDiv failed: %v", err)
	}
	v, err = m.GetVDiv(context.Background(), 1)
	if err != nil || v != 0.2 {
		t.Fatalf("vdiv after set: got %v, %v", v, err)
	}
}

func TestMockTriggerMode(t *testing.T) {
	m := initMock(t, Config{})

	if err := m.SetTriggerMode(context.Background(), "norm"); err != nil {
		t.Fatalf("SetTriggerMode failed: %v", err)
	}
	if err := m.SetTriggerMode(context.Background(), "NEVER"); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}
