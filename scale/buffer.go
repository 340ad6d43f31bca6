package scale

// Buffer accumulates scanner input delivered in chunks. Scanners flush in
// bursts, so an input of exactly 13 digits is held for one cycle: it may be a
// complete single-product frame, or the first frame of a longer ticket still
// in flight.
type Buffer struct {
	pending string
	held    bool
}

// Offer feeds one input cycle. It returns the scan ready for decoding and
// true, or "" and false when the buffer is still waiting on more digits.
func (b *Buffer) Offer(chunk string) (string, bool) {
	b.pending += chunk

	if len(b.pending) == FrameLen && !b.held && chunk != "" {
		b.held = true
		return "", false
	}

	if b.pending == "" {
		return "", false
	}
	scan := b.pending
	b.pending = ""
	b.held = false
	return scan, true
}

// Flush releases whatever is pending without waiting another cycle.
func (b *Buffer) Flush() (string, bool) {
	scan := b.pending
	b.pending = ""
	b.held = false
	return scan, scan != ""
}
