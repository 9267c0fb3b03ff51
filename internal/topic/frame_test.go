package topic

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeRequestLayout(t *testing.T) {
	frame, err := EncodeRequest("?status")
	require.NoError(t, err)

	want := []byte{0x00, 0x83, 0x00, byte(len("?status") + 6), 0, 0, 0, 0, 0}
	want = append(want, "?status"...)
	want = append(want, 0x00)
	require.Equal(t, want, frame)
}

func TestEncodeRequestLengthByte(t *testing.T) {
	for _, k := range []int{0, 1, 100, MaxQueryLength} {
		frame, err := EncodeRequest(strings.Repeat("a", k))
		require.NoError(t, err)
		require.Equal(t, byte(k+6), frame[3], "query length %d", k)
		require.Len(t, frame, k+10)
	}
}

func TestEncodeRequestRejectsOversizedQuery(t *testing.T) {
	_, err := EncodeRequest(strings.Repeat("a", MaxQueryLength+1))
	require.ErrorIs(t, err, ErrQueryTooLong)
}

func TestAppendRequestLengthByteWraps(t *testing.T) {
	frame := appendRequest(nil, strings.Repeat("a", 250))
	require.Equal(t, byte(0), frame[3])

	frame = appendRequest(nil, strings.Repeat("a", 260))
	require.Equal(t, byte(10), frame[3])
}

func TestDecodeHeader(t *testing.T) {
	h := DecodeHeader([]byte{0x00, 0x83, 0x01, 0x02})
	require.Equal(t, uint16(0x83), h.Type)
	require.Equal(t, uint16(0x0102), h.Size)
}

func TestDecodePayload(t *testing.T) {
	floatPayload := make([]byte, 5)
	floatPayload[0] = TypeFloat
	binary.BigEndian.PutUint32(floatPayload[1:], math.Float32bits(42.5))

	tests := []struct {
		name    string
		payload []byte
		want    Response
		wantErr error
	}{
		{name: "string excludes last byte", payload: []byte{0x06, 'h', 'i', 0x00}, want: String("hi")},
		{name: "null", payload: []byte{0x00, 0x00, 0x00}, want: Null()},
		{name: "float", payload: floatPayload, want: Float(42.5)},
		{name: "single byte", payload: []byte{0x00}, wantErr: ErrInvalidResponse},
		{name: "two bytes", payload: []byte{0x06, 'x'}, wantErr: ErrInvalidResponse},
		{name: "empty", payload: nil, wantErr: ErrInvalidResponse},
		{name: "short float", payload: []byte{0x2A, 0x01, 0x02}, wantErr: ErrInvalidResponse},
		{name: "unknown tag", payload: []byte{0x07, 0x00, 0x00}, wantErr: ErrInvalidResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodePayload(tc.payload)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodePayloadReplacesInvalidUTF8(t *testing.T) {
	got, err := DecodePayload([]byte{0x06, 'o', 0xff, 'k', 0x00})
	require.NoError(t, err)

	text, ok := got.AsString()
	require.True(t, ok)
	require.Equal(t, "o�k", text)
}

func TestDecodePayloadReplacesEachIllFormedSubsequence(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{"two invalid bytes", []byte{0x06, 'a', 0xff, 0xfe, 'b', 0x00}, "a\ufffd\ufffdb"},
		{"truncated three byte sequence", []byte{0x06, 'a', 0xe2, 0x82, 'b', 0x00}, "a\ufffdb"},
		{"surrogate encoding", []byte{0x06, 0xed, 0xa0, 0x80, 0x00}, "\ufffd\ufffd\ufffd"},
		{"lone continuation bytes", []byte{0x06, 0x80, 0x80, 0x00}, "\ufffd\ufffd"},
		{"valid multibyte kept", []byte{0x06, 0xc3, 0xa9, 0xff, 0x00}, "\u00e9\ufffd"},
		{"truncated at end", []byte{0x06, 'x', 0xf0, 0x9f, 0x98, 0x00}, "x\ufffd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.payload)
			require.NoError(t, err)

			text, ok := got.AsString()
			require.True(t, ok)
			require.Equal(t, tt.want, text)
		})
	}
}
