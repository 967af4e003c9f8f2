package wavedesc

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

// The descriptor layout is a fixed contract dictated by the instrument
// firmware. It is kept here as a single versioned field table so that a
// future firmware revision becomes a data change, not a logic change.

type fieldKind int

const (
	kindString fieldKind = iota
	kindWord             // signed 16-bit
	kindLong             // signed 32-bit
	kindFloat            // IEEE 754 single
	kindDouble           // IEEE 754 double
	kindTimeStamp        // double seconds + byte min/hour/day/month + word year
)

type field struct {
	name   string
	offset int
	size   int
	kind   fieldKind
}

// template describes one firmware revision of the binary descriptor.
// Offsets are relative to the descriptor start marker, not the block start.
type template struct {
	name   string
	marker string // descriptor start marker within the raw block
	length int    // fixed byte length of the descriptor itself
	fields map[string]field
}

func newTemplate(name, marker string, length int, fields []field) *template {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.name] = f
	}
	return &template{name: name, marker: marker, length: length, fields: m}
}

// lecroy23 is the LECROY_2_3 WAVEDESC template (346 bytes) used by
// WaveRunner-class instruments. Only fields the decoder consumes are listed;
// extending the table is the supported way to surface new metadata.
var lecroy23 = newTemplate("LECROY_2_3", "WAVEDESC", 346, []field{
	{"DESCRIPTOR_NAME", 0, 16, kindString},
	{"TEMPLATE_NAME", 16, 16, kindString},
	{"COMM_TYPE", 32, 2, kindWord},
	{"COMM_ORDER", 34, 2, kindWord},
	{"WAVE_DESCRIPTOR", 36, 4, kindLong},
	{"USER_TEXT", 40, 4, kindLong},
	{"TRIGTIME_ARRAY", 48, 4, kindLong},
	{"RIS_TIME_ARRAY", 52, 4, kindLong},
	{"WAVE_ARRAY_1", 60, 4, kindLong},
	{"INSTRUMENT_NAME", 76, 16, kindString},
	{"INSTRUMENT_NUMBER", 92, 4, kindLong},
	{"TRACE_LABEL", 96, 16, kindString},
	{"WAVE_ARRAY_COUNT", 116, 4, kindLong},
	{"FIRST_VALID_PNT", 124, 4, kindLong},
	{"LAST_VALID_PNT", 128, 4, kindLong},
	{"SUBARRAY_COUNT", 144, 4, kindLong},
	{"SWEEPS_PER_ACQ", 148, 4, kindLong},
	{"VERTICAL_GAIN", 156, 4, kindFloat},
	{"VERTICAL_OFFSET", 160, 4, kindFloat},
	{"MAX_VALUE", 164, 4, kindFloat},
	{"MIN_VALUE", 168, 4, kindFloat},
	{"NOMINAL_BITS", 172, 2, kindWord},
	{"HORIZ_INTERVAL", 176, 4, kindFloat},
	{"HORIZ_OFFSET", 180, 8, kindDouble},
	{"PIXEL_OFFSET", 188, 8, kindDouble},
	{"VERTUNIT", 196, 48, kindString},
	{"HORUNIT", 244, 48, kindString},
	{"TRIGGER_TIME", 296, 16, kindTimeStamp},
	{"RECORD_TYPE", 316, 2, kindWord},
	{"TIMEBASE", 324, 2, kindWord},
	{"VERT_COUPLING", 326, 2, kindWord},
	{"PROBE_ATT", 328, 4, kindFloat},
	{"BANDWIDTH_LIMIT", 334, 2, kindWord},
	{"WAVE_SOURCE", 344, 2, kindWord},
})

// lookup returns the field entry, panicking on unknown names. The table is
// static, so a miss is a programming error rather than bad input.
func (t *template) lookup(name string, kind fieldKind) field {
	f, ok := t.fields[name]
	if !ok || f.kind != kind {
		panic(fmt.Sprintf("wavedesc: template %s has no %v field %q", t.name, kind, name))
	}
	return f
}

func (t *template) word(desc []byte, order binary.ByteOrder, name string) int16 {
	f := t.lookup(name, kindWord)
	return int16(order.Uint16(desc[f.offset : f.offset+2]))
}

func (t *template) long(desc []byte, order binary.ByteOrder, name string) int32 {
	f := t.lookup(name, kindLong)
	return int32(order.Uint32(desc[f.offset : f.offset+4]))
}

func (t *template) float(desc []byte, order binary.ByteOrder, name string) float64 {
	f := t.lookup(name, kindFloat)
	return float64(math.Float32frombits(order.Uint32(desc[f.offset : f.offset+4])))
}

func (t *template) double(desc []byte, order binary.ByteOrder, name string) float64 {
	f := t.lookup(name, kindDouble)
	return math.Float64frombits(order.Uint64(desc[f.offset : f.offset+8]))
}

func (t *template) str(desc []byte, name string) string {
	f := t.lookup(name, kindString)
	return strings.TrimRight(string(desc[f.offset:f.offset+f.size]), "\x00")
}

// timestamp decodes the vendor time_stamp unit: a double of seconds followed
// by minute, hour, day, month bytes and a 16-bit year.
func (t *template) timestamp(desc []byte, order binary.ByteOrder, name string) time.Time {
	f := t.lookup(name, kindTimeStamp)
	b := desc[f.offset : f.offset+f.size]
	seconds := math.Float64frombits(order.Uint64(b[0:8]))
	minute := int(b[8])
	hour := int(b[9])
	day := int(b[10])
	month := time.Month(b[11])
	year := int(order.Uint16(b[12:14]))
	if year == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(seconds)
	return time.Date(year, month, day, hour, minute, int(sec), int(frac*1e9), time.UTC)
}
