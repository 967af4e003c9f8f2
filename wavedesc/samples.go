package wavedesc

import "encoding/binary"

// SplitSegments slices the sample payload that follows the descriptor into
// SegmentCount contiguous runs of SampleCount/SegmentCount samples each.
// Raw samples are signed little-endian integers of the descriptor's sample
// width. Segment boundaries are derived purely from descriptor fields;
// there is no in-band delimiter, which is why this stage runs strictly
// after the descriptor has been validated.
func SplitSegments(block []byte, d *Descriptor) ([][]int16, error) {
	need := d.SampleCount * d.SampleWidth
	avail := len(block) - d.PayloadStart
	if avail < need {
		return nil, &TruncatedPayloadError{Expected: need, Actual: avail}
	}
	payload := block[d.PayloadStart : d.PayloadStart+need]

	perSegment := d.SamplesPerSegment()
	segments := make([][]int16, d.SegmentCount)
	for i := range segments {
		chunk := payload[i*perSegment*d.SampleWidth:]
		segments[i] = decodeSamples(chunk, perSegment, d.SampleWidth)
	}
	return segments, nil
}

func decodeSamples(chunk []byte, count, width int) []int16 {
	out := make([]int16, count)
	switch width {
	case 1:
		for i := 0; i < count; i++ {
			out[i] = int16(int8(chunk[i]))
		}
	case 2:
		for i := 0; i < count; i++ {
			out[i] = int16(binary.LittleEndian.Uint16(chunk[i*2 : i*2+2]))
		}
	}
	return out
}
