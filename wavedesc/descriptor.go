// Package wavedesc decodes the binary waveform blocks returned by LeCroy
// WaveRunner-class oscilloscopes into physically scaled time/voltage data.
//
// A raw block is structured as
//
//	[definite-length prefix][WAVEDESC descriptor][trigtime array][samples]
//
// and may carry either a single acquisition or several back-to-back
// segments ("Sequence" mode) sharing one descriptor. Decoding is a pure
// in-memory transformation; the package performs no I/O and keeps no state
// between calls, so blocks can be decoded concurrently by independent
// callers.
package wavedesc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Descriptor holds the metadata parsed from one WAVEDESC block.
type Descriptor struct {
	Template   string // firmware template name, e.g. "LECROY_2_3"
	Instrument string
	TraceLabel string

	ByteOrder   binary.ByteOrder // byte order of descriptor fields (COMM_ORDER)
	SampleWidth int              // bytes per raw sample (COMM_TYPE): 1 or 2

	DescriptorLength int // self-reported descriptor byte length
	SampleCount      int // raw samples across all segments
	SegmentCount     int // acquisitions packed into this block, >= 1

	VerticalGain   float64 // volts per raw sample unit
	VerticalOffset float64 // volts subtracted after scaling
	HorizInterval  float64 // seconds between consecutive samples
	HorizOffset    float64 // seconds from trigger to first sample

	// SegmentTimeOffsets holds, for each segment, the seconds from the
	// first segment's trigger to that segment's trigger. Empty when
	// SegmentCount == 1.
	SegmentTimeOffsets []float64

	VerticalUnit   string
	HorizontalUnit string
	NominalBits    int
	MaxValue       float64
	MinValue       float64
	SweepsPerAcq   int
	TriggerTime    time.Time

	// PayloadStart is the index of the first sample byte within the raw
	// block the descriptor was parsed from.
	PayloadStart int
}

// SamplesPerSegment returns the fixed per-segment sample length.
func (d *Descriptor) SamplesPerSegment() int {
	return d.SampleCount / d.SegmentCount
}

// prefixSearchLimit bounds how far into a block the definite-length '#'
// marker and the descriptor start marker may sit. Instruments prepend at
// most a short command echo (e.g. "C1:WF ALL,").
const prefixSearchLimit = 32

// ParseDescriptor locates and decodes the descriptor within a raw waveform
// block. It validates the block's length prefix, the descriptor's
// self-reported lengths, and the segment/sample-count invariant before
// returning. The block itself is not modified.
func ParseDescriptor(block []byte) (*Descriptor, error) {
	t := lecroy23

	payloadStart, declared, err := parseBlockPrefix(block)
	if err != nil {
		return nil, err
	}
	// A prefix declaring less than one descriptor can never be valid. A
	// prefix declaring more than the block holds is left to the sample
	// demultiplexer, which reports the shortfall as a truncated payload.
	if declared < t.length {
		return nil, &MalformedDescriptorError{
			Offset: 0,
			Reason: fmt.Sprintf("length prefix declares %d bytes, template %s needs %d", declared, t.name, t.length),
		}
	}

	limit := payloadStart + prefixSearchLimit + len(t.marker)
	if limit > len(block) {
		limit = len(block)
	}
	rel := bytes.Index(block[payloadStart:limit], []byte(t.marker))
	if rel < 0 {
		return nil, &MalformedDescriptorError{
			Offset: payloadStart,
			Reason: fmt.Sprintf("descriptor marker %q not found", t.marker),
		}
	}
	descStart := payloadStart + rel
	if len(block) < descStart+t.length {
		return nil, &MalformedDescriptorError{
			Offset: descStart,
			Reason: fmt.Sprintf("block ends after %d descriptor bytes, template %s needs %d", len(block)-descStart, t.name, t.length),
		}
	}
	desc := block[descStart:]

	order, err := commOrder(desc, descStart)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		Template:   t.str(desc, "TEMPLATE_NAME"),
		Instrument: t.str(desc, "INSTRUMENT_NAME"),
		TraceLabel: t.str(desc, "TRACE_LABEL"),
		ByteOrder:  order,
	}

	switch commType := t.word(desc, order, "COMM_TYPE"); commType {
	case 0:
		d.SampleWidth = 1
	case 1:
		d.SampleWidth = 2
	default:
		return nil, &UnsupportedLayoutError{Field: "COMM_TYPE", Value: int64(commType)}
	}

	d.DescriptorLength = int(t.long(desc, order, "WAVE_DESCRIPTOR"))
	if d.DescriptorLength < t.length || descStart+d.DescriptorLength > len(block) {
		return nil, &MalformedDescriptorError{
			Offset: descStart + t.lookup("WAVE_DESCRIPTOR", kindLong).offset,
			Reason: fmt.Sprintf("self-reported descriptor length %d inconsistent with block length %d", d.DescriptorLength, len(block)),
		}
	}

	d.SampleCount = int(t.long(desc, order, "WAVE_ARRAY_COUNT"))
	d.SegmentCount = int(t.long(desc, order, "SUBARRAY_COUNT"))
	if d.SampleCount < 0 {
		return nil, &MalformedDescriptorError{
			Offset: descStart + t.lookup("WAVE_ARRAY_COUNT", kindLong).offset,
			Reason: fmt.Sprintf("negative sample count %d", d.SampleCount),
		}
	}
	if d.SegmentCount < 1 {
		return nil, &MalformedDescriptorError{
			Offset: descStart + t.lookup("SUBARRAY_COUNT", kindLong).offset,
			Reason: fmt.Sprintf("segment count %d, must be at least 1", d.SegmentCount),
		}
	}
	if d.SampleCount%d.SegmentCount != 0 {
		return nil, &MalformedDescriptorError{
			Offset: descStart + t.lookup("SUBARRAY_COUNT", kindLong).offset,
			Reason: fmt.Sprintf("sample count %d not divisible by segment count %d", d.SampleCount, d.SegmentCount),
		}
	}

	userText := int(t.long(desc, order, "USER_TEXT"))
	trigTime := int(t.long(desc, order, "TRIGTIME_ARRAY"))
	risTime := int(t.long(desc, order, "RIS_TIME_ARRAY"))
	if userText < 0 || trigTime < 0 || risTime < 0 {
		return nil, &MalformedDescriptorError{
			Offset: descStart + t.lookup("USER_TEXT", kindLong).offset,
			Reason: fmt.Sprintf("negative auxiliary array length (user_text=%d trigtime=%d ristime=%d)", userText, trigTime, risTime),
		}
	}

	waveArray := int(t.long(desc, order, "WAVE_ARRAY_1"))
	if waveArray > 0 && waveArray != d.SampleCount*d.SampleWidth {
		return nil, &MalformedDescriptorError{
			Offset: descStart + t.lookup("WAVE_ARRAY_1", kindLong).offset,
			Reason: fmt.Sprintf("data array length %d disagrees with %d samples of %d bytes", waveArray, d.SampleCount, d.SampleWidth),
		}
	}

	d.VerticalGain = t.float(desc, order, "VERTICAL_GAIN")
	d.VerticalOffset = t.float(desc, order, "VERTICAL_OFFSET")
	d.HorizInterval = t.float(desc, order, "HORIZ_INTERVAL")
	d.HorizOffset = t.double(desc, order, "HORIZ_OFFSET")
	d.MaxValue = t.float(desc, order, "MAX_VALUE")
	d.MinValue = t.float(desc, order, "MIN_VALUE")
	d.NominalBits = int(t.word(desc, order, "NOMINAL_BITS"))
	d.SweepsPerAcq = int(t.long(desc, order, "SWEEPS_PER_ACQ"))
	d.VerticalUnit = t.str(desc, "VERTUNIT")
	d.HorizontalUnit = t.str(desc, "HORUNIT")
	d.TriggerTime = t.timestamp(desc, order, "TRIGGER_TIME")

	arraysEnd := descStart + d.DescriptorLength + userText + trigTime + risTime
	if arraysEnd > len(block) {
		return nil, &MalformedDescriptorError{
			Offset: descStart + d.DescriptorLength,
			Reason: fmt.Sprintf("auxiliary arrays end at byte %d, block holds %d", arraysEnd, len(block)),
		}
	}

	if d.SegmentCount > 1 {
		offsets, err := parseTrigTimes(block, descStart+d.DescriptorLength+userText, trigTime, d.SegmentCount, order)
		if err != nil {
			return nil, err
		}
		d.SegmentTimeOffsets = offsets
	}

	d.PayloadStart = arraysEnd
	return d, nil
}

// parseBlockPrefix consumes the IEEE-488.2 definite-length prefix
// "#<n><length>" and returns the payload start index plus the declared
// payload length. Any command echo before '#' is skipped.
func parseBlockPrefix(block []byte) (start, declared int, err error) {
	limit := prefixSearchLimit
	if limit > len(block) {
		limit = len(block)
	}
	hash := bytes.IndexByte(block[:limit], '#')
	if hash < 0 {
		return 0, 0, &MalformedDescriptorError{Offset: 0, Reason: "missing definite-length block prefix '#'"}
	}
	if hash+1 >= len(block) {
		return 0, 0, &MalformedDescriptorError{Offset: hash, Reason: "block ends inside length prefix"}
	}
	n := int(block[hash+1] - '0')
	if n < 1 || n > 9 {
		return 0, 0, &MalformedDescriptorError{
			Offset: hash + 1,
			Reason: fmt.Sprintf("invalid length digit count %q", block[hash+1]),
		}
	}
	if hash+2+n > len(block) {
		return 0, 0, &MalformedDescriptorError{Offset: hash, Reason: "block ends inside length prefix"}
	}
	for _, c := range block[hash+2 : hash+2+n] {
		if c < '0' || c > '9' {
			return 0, 0, &MalformedDescriptorError{
				Offset: hash + 2,
				Reason: fmt.Sprintf("non-digit %q in length prefix", c),
			}
		}
		declared = declared*10 + int(c-'0')
	}
	return hash + 2 + n, declared, nil
}

// commOrder interprets the COMM_ORDER flag. The flag is encoded in the byte
// order it declares, which leaves exactly two self-consistent encodings:
// 1 stored low-byte-first (little endian) and 0 stored high-byte-first
// (big endian).
func commOrder(desc []byte, descStart int) (binary.ByteOrder, error) {
	f := lecroy23.lookup("COMM_ORDER", kindWord)
	b0, b1 := desc[f.offset], desc[f.offset+1]
	switch {
	case b0 == 1 && b1 == 0:
		return binary.LittleEndian, nil
	case b0 == 0 && b1 == 0:
		return binary.BigEndian, nil
	default:
		return nil, &MalformedDescriptorError{
			Offset: descStart + f.offset,
			Reason: fmt.Sprintf("unrecognized byte order flag 0x%02x%02x", b0, b1),
		}
	}
}

// parseTrigTimes reads the TRIGTIME array: one {trigger time, trigger
// offset} double pair per segment. The trigger time of each entry is the
// delay from the first segment's trigger.
func parseTrigTimes(block []byte, start, length, segments int, order binary.ByteOrder) ([]float64, error) {
	const entrySize = 16
	if length != segments*entrySize {
		return nil, &MalformedDescriptorError{
			Offset: start,
			Reason: fmt.Sprintf("trigtime array is %d bytes, %d segments need %d", length, segments, segments*entrySize),
		}
	}
	offsets := make([]float64, segments)
	for i := 0; i < segments; i++ {
		entry := block[start+i*entrySize:]
		offsets[i] = math.Float64frombits(order.Uint64(entry[:8]))
		// entry[8:16] is the per-segment trigger offset; the shared
		// HORIZ_OFFSET already covers trigger-to-first-sample delay.
	}
	return offsets, nil
}
