package f2x

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"
)

// HeaderSize is the wire size of ApplicationHeaderSegment in bytes.
const HeaderSize = 17

// ApplicationHeaderSegment is the fixed-size binary header that precedes the XML payload of every frame.
//
// Wire layout, all multi-byte integers in network byte order:
//
//	[0:4)   message number
//	[4:8)   api category
//	[8:9)   channel
//	[9:13)  transaction identifier
//	[13:17) status code
type ApplicationHeaderSegment struct {
	MessageNumber         uint32
	ApiCategory           uint32 //nolint:revive
	Channel               uint8
	TransactionIdentifier uint32
	StatusCode            int32
}

var (
	_ encoding.BinaryMarshaler   = ApplicationHeaderSegment{}
	_ encoding.BinaryUnmarshaler = (*ApplicationHeaderSegment)(nil)
)

// Size returns the wire size of the header, which is always HeaderSize.
func (h ApplicationHeaderSegment) Size() int { return HeaderSize }

// Write encodes the header into buf starting at offset.
//
// It returns ErrBufferOverflow if fewer than HeaderSize bytes are available after offset.
func (h ApplicationHeaderSegment) Write(buf []byte, offset int) error {
	if offset < 0 || len(buf)-offset < HeaderSize {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrBufferOverflow, HeaderSize, max(len(buf)-offset, 0))
	}

	b := buf[offset : offset+HeaderSize]
	binary.BigEndian.PutUint32(b[0:4], h.MessageNumber)
	binary.BigEndian.PutUint32(b[4:8], h.ApiCategory)
	b[8] = h.Channel
	binary.BigEndian.PutUint32(b[9:13], h.TransactionIdentifier)
	binary.BigEndian.PutUint32(b[13:17], uint32(h.StatusCode)) //nolint:gosec

	return nil
}

// Read decodes the header from buf starting at offset.
//
// It returns ErrBufferUnderflow if fewer than HeaderSize bytes are available after offset.
func (h *ApplicationHeaderSegment) Read(buf []byte, offset int) error {
	if offset < 0 || len(buf)-offset < HeaderSize {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrBufferUnderflow, HeaderSize, max(len(buf)-offset, 0))
	}

	b := buf[offset : offset+HeaderSize]
	h.MessageNumber = binary.BigEndian.Uint32(b[0:4])
	h.ApiCategory = binary.BigEndian.Uint32(b[4:8])
	h.Channel = b[8]
	h.TransactionIdentifier = binary.BigEndian.Uint32(b[9:13])
	h.StatusCode = int32(binary.BigEndian.Uint32(b[13:17])) //nolint:gosec

	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h ApplicationHeaderSegment) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	if err := h.Write(buf, 0); err != nil {
		return nil, err
	}

	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *ApplicationHeaderSegment) UnmarshalBinary(data []byte) error {
	return h.Read(data, 0)
}

// IsReply reports whether the message number marks the frame as a reply (even numbers).
func (h ApplicationHeaderSegment) IsReply() bool {
	return h.MessageNumber%2 == 0
}

func (h ApplicationHeaderSegment) String() string {
	return fmt.Sprintf("number=%d category=%s channel=%s txn=%d status=%d",
		h.MessageNumber, MessageCategory(h.ApiCategory), Channel(h.Channel), h.TransactionIdentifier, h.StatusCode)
}

// EncodeFrame concatenates the encoded header and the XML payload into a new frame.
func EncodeFrame(header ApplicationHeaderSegment, payload []byte) []byte {
	frame := make([]byte, HeaderSize+len(payload))
	_ = header.Write(frame, 0)
	copy(frame[HeaderSize:], payload)

	return frame
}

// DecodeFrame splits a frame into its header and XML payload.
//
// Trailing NUL padding is trimmed from the payload. The payload aliases frame.
func DecodeFrame(frame []byte) (ApplicationHeaderSegment, []byte, error) {
	var header ApplicationHeaderSegment
	if err := header.Read(frame, 0); err != nil {
		return header, nil, err
	}

	return header, bytes.TrimRight(frame[HeaderSize:], "\x00"), nil
}

// logKeys returns structured logging key-values of the header.
func (h ApplicationHeaderSegment) logKeys(keyValues ...any) []any {
	info := []any{
		"number", h.MessageNumber,
		"category", MessageCategory(h.ApiCategory),
		"channel", Channel(h.Channel),
		"txn", h.TransactionIdentifier,
	}
	if h.StatusCode != 0 {
		info = append(info, "status", h.StatusCode)
	}

	result := make([]any, 0, len(keyValues)+len(info))
	result = append(result, keyValues...)
	result = append(result, info...)

	return result
}
