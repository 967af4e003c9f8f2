package wavedesc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// buildBlock encodes a synthetic waveform block or fails the test.
func buildBlock(t *testing.T, d Descriptor, segments [][]int16) []byte {
	t.Helper()
	block, err := EncodeBlock(d, segments)
	if err != nil {
		t.Fatalf("EncodeBlock failed: %v", err)
	}
	return block
}

// descStart locates the descriptor within a block so tests can corrupt
// individual fields.
func descStart(t *testing.T, block []byte) int {
	t.Helper()
	idx := bytes.Index(block, []byte("WAVEDESC"))
	if idx < 0 {
		t.Fatalf("no WAVEDESC marker in test block")
	}
	return idx
}

func baseDescriptor() Descriptor {
	return Descriptor{
		SampleWidth:    2,
		VerticalGain:   2.0,
		VerticalOffset: 1.0,
		HorizInterval:  1e-9,
		HorizOffset:    -5e-7,
	}
}

func TestParseDescriptorFields(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{10, 20, 30, 40}})

	d, err := ParseDescriptor(block)
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}

	if d.Template != "LECROY_2_3" {
		t.Errorf("template: got %q", d.Template)
	}
	if d.SampleWidth != 2 {
		t.Errorf("sample width: got %d, want 2", d.SampleWidth)
	}
	if d.SampleCount != 4 || d.SegmentCount != 1 {
		t.Errorf("counts: got %d samples in %d segments", d.SampleCount, d.SegmentCount)
	}
	if d.SamplesPerSegment() != 4 {
		t.Errorf("samples per segment: got %d", d.SamplesPerSegment())
	}
	if d.VerticalGain != 2.0 || d.VerticalOffset != 1.0 {
		t.Errorf("vertical scaling: gain %g offset %g", d.VerticalGain, d.VerticalOffset)
	}
	if d.HorizOffset != -5e-7 {
		t.Errorf("horizontal offset: got %g", d.HorizOffset)
	}
	if d.VerticalUnit != "V" || d.HorizontalUnit != "S" {
		t.Errorf("units: got %q / %q", d.VerticalUnit, d.HorizontalUnit)
	}
	if len(d.SegmentTimeOffsets) != 0 {
		t.Errorf("single segment must have no segment offsets, got %v", d.SegmentTimeOffsets)
	}
	if d.DescriptorLength != 346 {
		t.Errorf("descriptor length: got %d", d.DescriptorLength)
	}
	wantPayload := descStart(t, block) + 346
	if d.PayloadStart != wantPayload {
		t.Errorf("payload start: got %d, want %d", d.PayloadStart, wantPayload)
	}
}

func TestParseDescriptorBigEndian(t *testing.T) {
	d := baseDescriptor()
	d.ByteOrder = binary.BigEndian
	block := buildBlock(t, d, [][]int16{{1, 2, 3, 4}})

	parsed, err := ParseDescriptor(block)
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}
	if parsed.ByteOrder != binary.BigEndian {
		t.Fatalf("byte order: got %v", parsed.ByteOrder)
	}
	if parsed.VerticalGain != 2.0 || parsed.SampleCount != 4 {
		t.Fatalf("big-endian fields decoded wrong: gain %g count %d", parsed.VerticalGain, parsed.SampleCount)
	}
}

func TestParseDescriptorSequenceOffsets(t *testing.T) {
	d := baseDescriptor()
	d.SegmentTimeOffsets = []float64{0, 2e-6, 4e-6}
	block := buildBlock(t, d, [][]int16{{1, 2}, {3, 4}, {5, 6}})

	parsed, err := ParseDescriptor(block)
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}
	if parsed.SegmentCount != 3 {
		t.Fatalf("segment count: got %d", parsed.SegmentCount)
	}
	want := []float64{0, 2e-6, 4e-6}
	if len(parsed.SegmentTimeOffsets) != len(want) {
		t.Fatalf("segment offsets: got %v", parsed.SegmentTimeOffsets)
	}
	for i, w := range want {
		if parsed.SegmentTimeOffsets[i] != w {
			t.Errorf("segment offset %d: got %g, want %g", i, parsed.SegmentTimeOffsets[i], w)
		}
	}
}

func TestParseDescriptorRejectsMissingPrefix(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{1, 2}})
	stripped := block[bytes.IndexByte(block, 'W'):]

	_, err := ParseDescriptor(stripped)
	var malformed *MalformedDescriptorError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDescriptorError, got %v", err)
	}
}

func TestParseDescriptorRejectsShortBlock(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{1, 2}})

	_, err := ParseDescriptor(block[:100])
	var malformed *MalformedDescriptorError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDescriptorError, got %v", err)
	}
}

func TestParseDescriptorRejectsShortLengthPrefix(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{1, 2}})
	// Rewrite the prefix so it declares fewer bytes than one descriptor.
	copy(block[:11], fmt.Sprintf("#9%09d", 100))

	_, err := ParseDescriptor(block)
	var malformed *MalformedDescriptorError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDescriptorError, got %v", err)
	}
	if !strings.Contains(malformed.Reason, "length prefix") {
		t.Fatalf("unexpected reason: %s", malformed.Reason)
	}
}

func TestParseDescriptorRejectsBadTrigTimeLength(t *testing.T) {
	d := baseDescriptor()
	d.SegmentTimeOffsets = []float64{0, 2e-6}
	block := buildBlock(t, d, [][]int16{{1, 2}, {3, 4}})
	start := descStart(t, block)
	// Two segments need a 32-byte trigtime array; declare 8.
	binary.LittleEndian.PutUint32(block[start+48:start+52], 8)

	_, err := ParseDescriptor(block)
	var malformed *MalformedDescriptorError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDescriptorError, got %v", err)
	}
	if !strings.Contains(malformed.Reason, "trigtime") {
		t.Fatalf("unexpected reason: %s", malformed.Reason)
	}
}

func TestParseDescriptorRejectsBadByteOrderFlag(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{1, 2}})
	start := descStart(t, block)
	block[start+34] = 0xFF
	block[start+35] = 0xFF

	_, err := ParseDescriptor(block)
	var malformed *MalformedDescriptorError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDescriptorError, got %v", err)
	}
	if !strings.Contains(malformed.Reason, "byte order") {
		t.Fatalf("unexpected reason: %s", malformed.Reason)
	}
}

func TestParseDescriptorRejectsIndivisibleSegmentCount(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}})
	start := descStart(t, block)
	// Rewrite SUBARRAY_COUNT so 10 samples cannot split evenly.
	binary.LittleEndian.PutUint32(block[start+144:start+148], 3)

	_, err := ParseDescriptor(block)
	var malformed *MalformedDescriptorError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDescriptorError, got %v", err)
	}
	if !strings.Contains(malformed.Reason, "not divisible") {
		t.Fatalf("unexpected reason: %s", malformed.Reason)
	}
}

func TestParseDescriptorRejectsUnknownSampleWidth(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{1, 2}})
	start := descStart(t, block)
	binary.LittleEndian.PutUint16(block[start+32:start+34], 7)

	_, err := ParseDescriptor(block)
	var unsupported *UnsupportedLayoutError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedLayoutError, got %v", err)
	}
	if unsupported.Field != "COMM_TYPE" || unsupported.Value != 7 {
		t.Fatalf("unexpected error detail: %+v", unsupported)
	}
}

func TestParseDescriptorRejectsBadSelfReportedLength(t *testing.T) {
	block := buildBlock(t, baseDescriptor(), [][]int16{{1, 2}})
	start := descStart(t, block)
	binary.LittleEndian.PutUint32(block[start+36:start+40], 100)

	_, err := ParseDescriptor(block)
	var malformed *MalformedDescriptorError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDescriptorError, got %v", err)
	}
	if !strings.Contains(malformed.Reason, "self-reported") {
		t.Fatalf("unexpected reason: %s", malformed.Reason)
	}
}
