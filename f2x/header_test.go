package f2x

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationHeaderSegment_Write(t *testing.T) {
	require := require.New(t)

	header := ApplicationHeaderSegment{
		MessageNumber:         5,
		ApiCategory:           12,
		Channel:               2,
		TransactionIdentifier: 0,
		StatusCode:            0,
	}

	buf := make([]byte, HeaderSize)
	require.NoError(header.Write(buf, 0))
	require.Equal([]byte{
		0x00, 0x00, 0x00, 0x05,
		0x00, 0x00, 0x00, 0x0C,
		0x02,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}, buf)
	require.Equal(HeaderSize, header.Size())
}

func TestApplicationHeaderSegment_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		header ApplicationHeaderSegment
		offset int
	}{
		{
			name:   "zero",
			header: ApplicationHeaderSegment{},
		},
		{
			name: "max values",
			header: ApplicationHeaderSegment{
				MessageNumber:         0xFFFFFFFF,
				ApiCategory:           0xFFFFFFFF,
				Channel:               0xFF,
				TransactionIdentifier: 0xFFFFFFFF,
				StatusCode:            -7,
			},
		},
		{
			name: "with offset",
			header: ApplicationHeaderSegment{
				MessageNumber:         2,
				ApiCategory:           1,
				Channel:               1,
				TransactionIdentifier: 0x01020304,
				StatusCode:            1,
			},
			offset: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.offset+HeaderSize)
			require.NoError(t, tt.header.Write(buf, tt.offset))

			var decoded ApplicationHeaderSegment
			require.NoError(t, decoded.Read(buf, tt.offset))
			assert.Equal(t, tt.header, decoded)
		})
	}
}

func TestApplicationHeaderSegment_NegativeStatusEncoding(t *testing.T) {
	data, err := ApplicationHeaderSegment{StatusCode: -1}.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, data[13:17])

	var h ApplicationHeaderSegment
	require.NoError(t, h.UnmarshalBinary(data))
	assert.Equal(t, int32(-1), h.StatusCode)
}

func TestApplicationHeaderSegment_BufferBounds(t *testing.T) {
	h := ApplicationHeaderSegment{MessageNumber: 1}

	require.ErrorIs(t, h.Write(make([]byte, HeaderSize-1), 0), ErrBufferOverflow)
	require.ErrorIs(t, h.Write(make([]byte, HeaderSize), 1), ErrBufferOverflow)
	require.ErrorIs(t, h.Write(make([]byte, HeaderSize), -1), ErrBufferOverflow)

	var decoded ApplicationHeaderSegment
	require.ErrorIs(t, decoded.Read(make([]byte, 10), 0), ErrBufferUnderflow)
	require.ErrorIs(t, decoded.Read(make([]byte, HeaderSize+2), 3), ErrBufferUnderflow)
	require.ErrorIs(t, decoded.UnmarshalBinary(nil), ErrBufferUnderflow)
}

func TestApplicationHeaderSegment_IsReply(t *testing.T) {
	assert.False(t, ApplicationHeaderSegment{MessageNumber: 1}.IsReply())
	assert.True(t, ApplicationHeaderSegment{MessageNumber: 2}.IsReply())
	assert.False(t, ApplicationHeaderSegment{MessageNumber: 7}.IsReply())
}

func TestDecodeFrame(t *testing.T) {
	require := require.New(t)

	header := ApplicationHeaderSegment{MessageNumber: 3, ApiCategory: 100, Channel: 2}
	frame := EncodeFrame(header, []byte("<Ping/>\x00\x00"))
	require.Len(frame, HeaderSize+9)

	decoded, payload, err := DecodeFrame(frame)
	require.NoError(err)
	require.Equal(header, decoded)
	require.Equal("<Ping/>", string(payload))

	decoded, payload, err = DecodeFrame(EncodeFrame(header, nil))
	require.NoError(err)
	require.Equal(header, decoded)
	require.Empty(payload)

	_, _, err = DecodeFrame(frame[:HeaderSize-1])
	require.ErrorIs(err, ErrBufferUnderflow)
}

func TestApplicationHeaderSegment_String(t *testing.T) {
	h := ApplicationHeaderSegment{MessageNumber: 4, ApiCategory: 2, Channel: 1, TransactionIdentifier: 9}
	assert.Equal(t, "number=4 category=LinkControl channel=foundation txn=9 status=0", h.String())
}
