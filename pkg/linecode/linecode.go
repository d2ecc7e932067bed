// Package linecode implements the 4B5B line code of the optical link.
// Each nibble maps to one of 16 five-bit code words chosen so that any
// concatenation of code words never contains a run of more than three
// zeros, which keeps the data segment distinguishable from the
// continuous-low stop marker.
package linecode

import "luxlink/pkg/signal"

const (
	// SymbolBits is the width of one code word.
	SymbolBits = 5
	// ByteBits is the encoded width of one byte (two code words).
	ByteBits = 10
)

// encodeTable maps a nibble to its 5-bit code word (MSB first).
var encodeTable = [16]byte{
	0x0: 0b11110,
	0x1: 0b01001,
	0x2: 0b10100,
	0x3: 0b10101,
	0x4: 0b01010,
	0x5: 0b01011,
	0x6: 0b01110,
	0x7: 0b01111,
	0x8: 0b10010,
	0x9: 0b10011,
	0xA: 0b10110,
	0xB: 0b10111,
	0xC: 0b11010,
	0xD: 0b11011,
	0xE: 0b11100,
	0xF: 0b11101,
}

// decodeTable is the inverse of encodeTable; -1 marks the 16 invalid
// 5-bit patterns.
var decodeTable [32]int8

func init() {
	for i := range decodeTable {
		decodeTable[i] = -1
	}
	for nibble, code := range encodeTable {
		decodeTable[code] = int8(nibble)
	}
}

// EncodeByte expands a byte into its 10-bit line representation, high
// nibble's code word first, MSB first within each code word.
func EncodeByte(b byte) []signal.Level {
	bits := make([]signal.Level, 0, ByteBits)
	bits = appendSymbol(bits, b>>4)
	bits = appendSymbol(bits, b&0x0F)
	return bits
}

func appendSymbol(bits []signal.Level, nibble byte) []signal.Level {
	code := encodeTable[nibble&0x0F]
	for i := SymbolBits - 1; i >= 0; i-- {
		if code>>i&1 == 1 {
			bits = append(bits, signal.High)
		} else {
			bits = append(bits, signal.Low)
		}
	}
	return bits
}

// DecodeSymbol maps a 5-bit code word back to its nibble. ok is false
// for the 16 patterns outside the code.
func DecodeSymbol(code byte) (nibble byte, ok bool) {
	n := decodeTable[code&0x1F]
	if n < 0 {
		return 0, false
	}
	return byte(n), true
}

// DecodeTenBits decodes one encoded byte. ok is false if either code
// word is invalid.
func DecodeTenBits(bits []signal.Level) (b byte, ok bool) {
	if len(bits) != ByteBits {
		return 0, false
	}
	hi, okHi := DecodeSymbol(packSymbol(bits[:SymbolBits]))
	lo, okLo := DecodeSymbol(packSymbol(bits[SymbolBits:]))
	if !okHi || !okLo {
		return 0, false
	}
	return hi<<4 | lo, true
}

func packSymbol(bits []signal.Level) byte {
	var code byte
	for _, l := range bits {
		code = code<<1 | l.Bit()
	}
	return code
}
