// Package scale decodes digit strings produced by the weighing-scale barcode
// printer. A scan is either a single product code (5-13 digits) or a ticket:
// a concatenation of fixed 13-digit frames, one per line item.
package scale

import (
	"errors"
	"fmt"
	"strconv"
)

// FrameLen is the fixed width of one ticket frame.
const FrameLen = 13

var (
	ErrNotDigits = errors.New("scan contains non-digit characters")
	ErrFrameLen  = errors.New("scan length is not a multiple of 13")
)

// Frame is one decoded ticket entry: a 9-digit product code candidate and a
// 3-digit magnitude. The trailing checksum digit is not validated; the scale
// firmware emits it inconsistently and the code lookup already rejects junk.
type Frame struct {
	Code      string
	Magnitude int
}

// IsTicket reports whether a scan should be decoded as a multi-frame ticket
// rather than resolved as a single code.
func IsTicket(scan string) bool {
	return len(scan) > FrameLen && len(scan)%FrameLen == 0
}

// SplitTicket splits a multi-product ticket into frames, in input order.
// For k valid frames in, exactly k frames come out.
func SplitTicket(scan string) ([]Frame, error) {
	if len(scan) == 0 || len(scan)%FrameLen != 0 {
		return nil, ErrFrameLen
	}
	for _, r := range scan {
		if r < '0' || r > '9' {
			return nil, ErrNotDigits
		}
	}
	frames := make([]Frame, 0, len(scan)/FrameLen)
	for i := 0; i < len(scan); i += FrameLen {
		chunk := scan[i : i+FrameLen]
		mag, err := strconv.Atoi(chunk[9:12])
		if err != nil {
			return nil, fmt.Errorf("frame %d magnitude: %w", i/FrameLen, err)
		}
		frames = append(frames, Frame{Code: chunk[:9], Magnitude: mag})
	}
	return frames, nil
}

// WeightKg interprets a magnitude for a by-weight product. Values of 200 and
// above are grams; below that the scale printed decagrams. Magnitudes whose
// true grams value is 100-199 are ambiguous under this rule and come out as
// decagrams.
func WeightKg(magnitude int) float64 {
	grams := magnitude
	if magnitude < 200 {
		grams = magnitude * 10
	}
	return float64(grams) / 1000.0
}

// UnitCount interprets a magnitude for a by-unit product. The base reading is
// magnitude/100; when that exceeds 10 and magnitude/1000 is a count the shop
// could plausibly have on hand, the thousands reading wins. A zero reading
// defaults to one unit. The coupling to on-hand stock is inherited from the
// scale's ambiguous digit layout.
func UnitCount(magnitude, onHandUnits int) int {
	count := magnitude / 100
	if count > 10 {
		if alt := magnitude / 1000; alt >= 1 && alt <= onHandUnits {
			count = alt
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}
