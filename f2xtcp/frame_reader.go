package f2xtcp

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/arloliu/go-f2x/internal/util"
)

const lengthPrefixSize = 4

// frameReader reads length-prefixed frames from a net.Conn.
//
// Framing:
//  1. Read the 4-byte big-endian frame length, without a deadline so the link may idle.
//  2. Reject zero and oversized lengths.
//  3. Read the frame body under the read timeout.
//
// frameReader is not safe for concurrent use; a connection has a single receiver goroutine.
type frameReader struct {
	readTimeout  time.Duration
	maxFrameSize int
}

// ReadFrame reads one frame from conn. lenBuf is a 4-byte scratch buffer reused across calls.
func (fr *frameReader) ReadFrame(conn net.Conn, lenBuf []byte) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("clear read deadline: %w", err)
	}

	if _, err := io.ReadFull(conn, lenBuf[:lengthPrefixSize]); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}

	frameLen := binary.BigEndian.Uint32(lenBuf)
	if frameLen == 0 {
		return nil, ErrZeroLengthFrame
	}
	if uint64(frameLen) > uint64(fr.maxFrameSize) {
		return nil, fmt.Errorf("%w: length %d, maximum %d", ErrFrameTooLarge, frameLen, fr.maxFrameSize)
	}

	if err := conn.SetReadDeadline(time.Now().Add(fr.readTimeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	frame := make([]byte, frameLen)
	if _, err := io.ReadFull(conn, frame); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}

	return frame, nil
}

// prefixFrame returns a copy of frame preceded by its 4-byte big-endian length.
func prefixFrame(frame []byte) []byte {
	prefix := binary.BigEndian.AppendUint32(nil, uint32(len(frame))) //nolint:gosec
	buf := util.CloneSlice(prefix, lengthPrefixSize+len(frame))
	copy(buf[lengthPrefixSize:], frame)

	return buf
}
