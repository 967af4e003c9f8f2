package wavedesc

import "fmt"

// MalformedDescriptorError reports a structural inconsistency in the
// descriptor block: bad self-reported lengths, an impossible
// segment/sample-count ratio, or an unrecognized byte-order flag.
// The offset points at the byte that failed validation, relative to the
// start of the raw block.
type MalformedDescriptorError struct {
	Offset int
	Reason string
}

func (e *MalformedDescriptorError) Error() string {
	return fmt.Sprintf("malformed descriptor at byte %d: %s", e.Offset, e.Reason)
}

// TruncatedPayloadError reports that fewer sample bytes follow the
// descriptor than it promises. This usually means the transport read was
// cut short; the caller may retry the underlying query.
type TruncatedPayloadError struct {
	Expected int // bytes the descriptor declares
	Actual   int // bytes actually present after the descriptor
}

func (e *TruncatedPayloadError) Error() string {
	return fmt.Sprintf("truncated payload: descriptor declares %d sample bytes, block holds %d", e.Expected, e.Actual)
}

// UnsupportedLayoutError reports a descriptor field combination this
// decoder does not handle, e.g. an unknown COMM_TYPE sample width.
// Decoding fails closed rather than guessing.
type UnsupportedLayoutError struct {
	Field string
	Value int64
}

func (e *UnsupportedLayoutError) Error() string {
	return fmt.Sprintf("unsupported descriptor layout: %s=%d", e.Field, e.Value)
}
