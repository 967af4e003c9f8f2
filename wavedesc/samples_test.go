package wavedesc

import (
	"errors"
	"testing"
)

func TestSplitSegmentsSingle(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{10, -20, 30, -40}})
	d, err := ParseDescriptor(block)
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}

	segments, err := SplitSegments(block, d)
	if err != nil {
		t.Fatalf("SplitSegments failed: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("segment count: got %d", len(segments))
	}
	want := []int16{10, -20, 30, -40}
	for i, w := range want {
		if segments[0][i] != w {
			t.Errorf("sample %d: got %d, want %d", i, segments[0][i], w)
		}
	}
}

func TestSplitSegmentsSequence(t *testing.T) {
	d := baseDescriptor()
	d.SegmentTimeOffsets = []float64{0, 1e-6}
	block := buildBlock(t, d, [][]int16{{1, 2, 3}, {4, 5, 6}})
	parsed, err := ParseDescriptor(block)
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}

	segments, err := SplitSegments(block, parsed)
	if err != nil {
		t.Fatalf("SplitSegments failed: %v", err)
	}
	if len(segments) != 2 || len(segments[0]) != 3 || len(segments[1]) != 3 {
		t.Fatalf("unexpected segmentation: %v", segments)
	}
	if segments[0][2] != 3 || segments[1][0] != 4 {
		t.Fatalf("segment boundary wrong: %v", segments)
	}
}

func TestSplitSegmentsTruncatedPayload(t *testing.T) {
	samples := make([]int16, 1000)
	block := buildBlock(t, baseDescriptor(), [][]int16{samples})
	d, err := ParseDescriptor(block)
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}

	// Keep the descriptor intact but cut the sample payload to 100 bytes,
	// simulating a transport read that stopped early.
	short := block[:d.PayloadStart+100]

	_, err = SplitSegments(short, d)
	var truncated *TruncatedPayloadError
	if !errors.As(err, &truncated) {
		t.Fatalf("expected TruncatedPayloadError, got %v", err)
	}
	if truncated.Expected != 2000 || truncated.Actual != 100 {
		t.Fatalf("unexpected detail: %+v", truncated)
	}
}

func TestSplitSegmentsByteWidthExtremes(t *testing.T) {
	d := baseDescriptor()
	d.SampleWidth = 1
	block := buildBlock(t, d, [][]int16{{-128, -1, 0, 127}})
	parsed, err := ParseDescriptor(block)
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}
	if parsed.SampleWidth != 1 {
		t.Fatalf("sample width: got %d", parsed.SampleWidth)
	}

	segments, err := SplitSegments(block, parsed)
	if err != nil {
		t.Fatalf("SplitSegments failed: %v", err)
	}
	want := []int16{-128, -1, 0, 127}
	for i, w := range want {
		if segments[0][i] != w {
			t.Errorf("sample %d: got %d, want %d", i, segments[0][i], w)
		}
	}
}

func TestSplitSegmentsWordWidthExtremes(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{-32768, -1, 0, 32767}})
	d, err := ParseDescriptor(block)
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}

	segments, err := SplitSegments(block, d)
	if err != nil {
		t.Fatalf("SplitSegments failed: %v", err)
	}
	want := []int16{-32768, -1, 0, 32767}
	for i, w := range want {
		if segments[0][i] != w {
			t.Errorf("sample %d: got %d, want %d", i, segments[0][i], w)
		}
	}
}
