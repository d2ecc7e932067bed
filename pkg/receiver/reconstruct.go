package receiver

import (
	"strings"
	"time"

	"luxlink/pkg/linecode"
	"luxlink/pkg/signal"
)

// ErrorMarker replaces a byte whose 10-bit group decodes to an invalid
// code word. Decoding continues past it.
const ErrorMarker = '�'

// reconstruct expands the recorded edge list into the transmitted bit
// vector. Each run between consecutive edges contributes
// round(run/BitPeriod) copies of its level, at least one; the run after
// the last edge is measured against the stop timestamp.
func reconstruct(edges []signal.Edge, stop time.Duration) []signal.Level {
	var bits []signal.Level

	for i, e := range edges {
		end := stop
		if i+1 < len(edges) {
			end = edges[i+1].Timestamp
		}

		dur := end - e.Timestamp
		if dur < signal.MinRun {
			// runs this short are filtered on ingest; skip defensively
			continue
		}

		n := int((dur + signal.BitPeriod/2) / signal.BitPeriod)
		if n < 1 {
			n = 1
		}
		for j := 0; j < n; j++ {
			bits = append(bits, e.Level)
		}
	}

	return bits
}

// decode translates a reconstructed bit vector into text. With fewer
// bits than one code group it returns a raw-bit diagnostic instead of a
// decode attempt. Invalid groups become inline error markers. Trailing
// bits shorter than a group are returned as leftover, not appended: a
// frame whose last data bit is high always picks up one surplus low bit
// from the stop offset.
func decode(bits []signal.Level) (text string, leftover int) {
	if len(bits) < linecode.ByteBits {
		return "bits " + bitString(bits), 0
	}

	var sb strings.Builder
	for i := 0; i+linecode.ByteBits <= len(bits); i += linecode.ByteBits {
		b, ok := linecode.DecodeTenBits(bits[i : i+linecode.ByteBits])
		if ok {
			sb.WriteByte(b)
		} else {
			sb.WriteRune(ErrorMarker)
		}
	}

	return sb.String(), len(bits) % linecode.ByteBits
}

func bitString(bits []signal.Level) string {
	var sb strings.Builder
	for _, b := range bits {
		sb.WriteByte('0' + b.Bit())
	}
	return sb.String()
}
