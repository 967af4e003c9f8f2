package wavedesc

// Segment is one acquisition's worth of scaled samples. Time values are
// seconds relative to the first segment's trigger; Amplitude values are
// volts. TimeOrigin is the segment's own first-sample instant on that
// shared time base, exposed so callers can align channels acquired in the
// same sequence.
type Segment struct {
	TimeOrigin float64
	Time       []float64
	Amplitude  []float64
}

// Waveform is the fully reconstructed result of decoding one raw block.
type Waveform struct {
	Descriptor Descriptor
	Segments   []Segment
}

// Reconstruct applies the descriptor's vertical and horizontal scaling to
// the demultiplexed integer segments.
//
// Vertical scaling is acquisition-wide: amplitude = raw*gain - offset for
// every segment alike. Horizontal scaling is per segment: sample j of
// segment i sits at HorizOffset + SegmentTimeOffsets[i] + j*HorizInterval,
// so sequence-mode segments keep their true trigger spacing instead of all
// restarting at the first segment's origin.
func Reconstruct(d *Descriptor, segments [][]int16) *Waveform {
	w := &Waveform{
		Descriptor: *d,
		Segments:   make([]Segment, len(segments)),
	}

	for i, raw := range segments {
		origin := d.HorizOffset
		if len(d.SegmentTimeOffsets) > 0 {
			origin += d.SegmentTimeOffsets[i]
		}
		seg := Segment{
			TimeOrigin: origin,
			Time:       make([]float64, len(raw)),
			Amplitude:  make([]float64, len(raw)),
		}
		for j, v := range raw {
			seg.Time[j] = origin + float64(j)*d.HorizInterval
			seg.Amplitude[j] = float64(v)*d.VerticalGain - d.VerticalOffset
		}
		w.Segments[i] = seg
	}
	return w
}

// Decode parses, demultiplexes, and reconstructs a raw waveform block in
// one call. It is a pure function of its input: decoding the same block
// twice yields bit-identical results.
func Decode(block []byte) (*Waveform, error) {
	d, err := ParseDescriptor(block)
	if err != nil {
		return nil, err
	}
	segments, err := SplitSegments(block, d)
	if err != nil {
		return nil, err
	}
	return Reconstruct(d, segments), nil
}
