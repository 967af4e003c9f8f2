package wavedesc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeBlock synthesizes a raw waveform block from a descriptor and
// per-segment integer samples, producing the same layout ParseDescriptor
// consumes. It exists for the mock instrument backend and for tests; real
// blocks come from the oscilloscope.
//
// Segment count and sample count are derived from the segments argument;
// all segments must share one length. Gain, offsets, units, and trigger
// metadata are taken from d. A nil ByteOrder defaults to little endian.
func EncodeBlock(d Descriptor, segments [][]int16) ([]byte, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("encode block: no segments")
	}
	perSegment := len(segments[0])
	for i, s := range segments {
		if len(s) != perSegment {
			return nil, fmt.Errorf("encode block: segment %d has %d samples, want %d", i, len(s), perSegment)
		}
	}
	width := d.SampleWidth
	if width == 0 {
		width = 2
	}
	if width != 1 && width != 2 {
		return nil, fmt.Errorf("encode block: unsupported sample width %d", width)
	}
	order := d.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}

	t := lecroy23
	segCount := len(segments)
	sampleCount := segCount * perSegment
	trigTimeLen := 0
	if segCount > 1 {
		trigTimeLen = segCount * 16
	}

	desc := make([]byte, t.length)
	putString(desc, t, "DESCRIPTOR_NAME", t.marker)
	putString(desc, t, "TEMPLATE_NAME", orDefault(d.Template, t.name))
	putString(desc, t, "INSTRUMENT_NAME", orDefault(d.Instrument, "GOSCOPE-SIM"))
	putString(desc, t, "TRACE_LABEL", d.TraceLabel)
	putString(desc, t, "VERTUNIT", orDefault(d.VerticalUnit, "V"))
	putString(desc, t, "HORUNIT", orDefault(d.HorizontalUnit, "S"))

	if width == 2 {
		putWord(desc, t, order, "COMM_TYPE", 1)
		putWord(desc, t, order, "NOMINAL_BITS", 16)
	} else {
		putWord(desc, t, order, "COMM_TYPE", 0)
		putWord(desc, t, order, "NOMINAL_BITS", 8)
	}
	// COMM_ORDER is stored in the order it declares.
	f := t.lookup("COMM_ORDER", kindWord)
	if order == binary.LittleEndian {
		desc[f.offset] = 1
	}

	putLong(desc, t, order, "WAVE_DESCRIPTOR", int32(t.length))
	putLong(desc, t, order, "TRIGTIME_ARRAY", int32(trigTimeLen))
	putLong(desc, t, order, "WAVE_ARRAY_1", int32(sampleCount*width))
	putLong(desc, t, order, "WAVE_ARRAY_COUNT", int32(sampleCount))
	putLong(desc, t, order, "LAST_VALID_PNT", int32(sampleCount-1))
	putLong(desc, t, order, "SUBARRAY_COUNT", int32(segCount))
	putLong(desc, t, order, "SWEEPS_PER_ACQ", 1)
	putFloat(desc, t, order, "VERTICAL_GAIN", d.VerticalGain)
	putFloat(desc, t, order, "VERTICAL_OFFSET", d.VerticalOffset)
	putFloat(desc, t, order, "MAX_VALUE", d.MaxValue)
	putFloat(desc, t, order, "MIN_VALUE", d.MinValue)
	putFloat(desc, t, order, "HORIZ_INTERVAL", d.HorizInterval)
	putDouble(desc, t, order, "HORIZ_OFFSET", d.HorizOffset)

	payload := make([]byte, 0, t.length+trigTimeLen+sampleCount*width)
	payload = append(payload, desc...)

	if segCount > 1 {
		entry := make([]byte, 16)
		for i := 0; i < segCount; i++ {
			var segOffset float64
			if i < len(d.SegmentTimeOffsets) {
				segOffset = d.SegmentTimeOffsets[i]
			}
			order.PutUint64(entry[0:8], math.Float64bits(segOffset))
			order.PutUint64(entry[8:16], math.Float64bits(d.HorizOffset))
			payload = append(payload, entry...)
		}
	}

	for _, s := range segments {
		for _, v := range s {
			if width == 1 {
				payload = append(payload, byte(int8(v)))
			} else {
				var b [2]byte
				binary.LittleEndian.PutUint16(b[:], uint16(v))
				payload = append(payload, b[:]...)
			}
		}
	}

	block := make([]byte, 0, len(payload)+12)
	block = append(block, fmt.Sprintf("#9%09d", len(payload))...)
	block = append(block, payload...)
	block = append(block, '\n')
	return block, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func putString(desc []byte, t *template, name, value string) {
	f := t.lookup(name, kindString)
	copy(desc[f.offset:f.offset+f.size], value)
}

func putWord(desc []byte, t *template, order binary.ByteOrder, name string, v int16) {
	f := t.lookup(name, kindWord)
	order.PutUint16(desc[f.offset:f.offset+2], uint16(v))
}

func putLong(desc []byte, t *template, order binary.ByteOrder, name string, v int32) {
	f := t.lookup(name, kindLong)
	order.PutUint32(desc[f.offset:f.offset+4], uint32(v))
}

func putFloat(desc []byte, t *template, order binary.ByteOrder, name string, v float64) {
	f := t.lookup(name, kindFloat)
	order.PutUint32(desc[f.offset:f.offset+4], math.Float32bits(float32(v)))
}

func putDouble(desc []byte, t *template, order binary.ByteOrder, name string, v float64) {
	f := t.lookup(name, kindDouble)
	order.PutUint64(desc[f.offset:f.offset+8], math.Float64bits(v))
}
