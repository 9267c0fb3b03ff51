package topic

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// HeaderSize is the size of a response frame header in bytes.
const HeaderSize = 4

// MaxQueryLength is the longest query whose frame length still fits the
// single length byte of a request frame.
const MaxQueryLength = math.MaxUint8 - requestOverhead

// requestOverhead is what the length byte counts besides the query text.
const requestOverhead = 6

// Payload type tags, carried in the first payload byte of a response.
const (
	TypeNull   byte = 0x00
	TypeFloat  byte = 0x2A
	TypeString byte = 0x06
)

// Header is the fixed prefix of a response frame.
type Header struct {
	Type uint16
	Size uint16
}

// EncodeRequest builds the request frame for query.
func EncodeRequest(query string) ([]byte, error) {
	if len(query) > MaxQueryLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrQueryTooLong, len(query), MaxQueryLength)
	}
	return appendRequest(make([]byte, 0, len(query)+10), query), nil
}

// appendRequest writes the frame without validating the length; for queries
// longer than MaxQueryLength the length byte wraps.
func appendRequest(dst []byte, query string) []byte {
	dst = append(dst, 0x00, 0x83, 0x00, byte(len(query)+requestOverhead))
	dst = append(dst, 0x00, 0x00, 0x00, 0x00, 0x00)
	dst = append(dst, query...)
	return append(dst, 0x00)
}

// DecodeHeader parses a response header. b must hold at least HeaderSize bytes.
func DecodeHeader(b []byte) Header {
	return Header{
		Type: binary.BigEndian.Uint16(b[0:2]),
		Size: binary.BigEndian.Uint16(b[2:4]),
	}
}

// DecodePayload interprets a response payload.
func DecodePayload(payload []byte) (Response, error) {
	if len(payload) <= 2 {
		return Response{}, fmt.Errorf("%w: payload of %d bytes", ErrInvalidResponse, len(payload))
	}

	switch payload[0] {
	case TypeNull:
		return Null(), nil
	case TypeFloat:
		if len(payload) < 5 {
			return Response{}, fmt.Errorf("%w: float payload of %d bytes", ErrInvalidResponse, len(payload))
		}
		bits := binary.BigEndian.Uint32(payload[1:5])
		return Float(math.Float32frombits(bits)), nil
	case TypeString:
		text := payload[1 : len(payload)-1]
		if utf8.Valid(text) {
			return String(string(text)), nil
		}
		return String(lossyUTF8(text)), nil
	default:
		return Response{}, fmt.Errorf("%w: unknown type tag 0x%02x", ErrInvalidResponse, payload[0])
	}
}

// lossyUTF8 replaces every maximal ill-formed subsequence of b with one
// U+FFFD, so "\xff\xfe" becomes two replacement characters while a
// truncated sequence such as "\xe2\x82" becomes one.
func lossyUTF8(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r != utf8.RuneError || size > 1 {
			sb.Write(b[:size])
			b = b[size:]
			continue
		}
		sb.WriteRune(utf8.RuneError)
		b = b[invalidPrefixLen(b):]
	}
	return sb.String()
}

// invalidPrefixLen returns the length of the maximal subpart at the start
// of b: a lead byte plus the continuation bytes that could still have
// completed it.
func invalidPrefixLen(b []byte) int {
	lo, hi, need := byte(0x80), byte(0xbf), 0
	switch c := b[0]; {
	case c >= 0xc2 && c <= 0xdf:
		need = 1
	case c == 0xe0:
		lo, need = 0xa0, 2
	case c == 0xed:
		hi, need = 0x9f, 2
	case c >= 0xe1 && c <= 0xef:
		need = 2
	case c == 0xf0:
		lo, need = 0x90, 3
	case c == 0xf4:
		hi, need = 0x8f, 3
	case c >= 0xf1 && c <= 0xf3:
		need = 3
	default:
		return 1
	}
	if len(b) < 2 || b[1] < lo || b[1] > hi {
		return 1
	}
	n := 2
	for n <= need && n < len(b) && b[n] >= 0x80 && b[n] <= 0xbf {
		n++
	}
	return n
}
