package rpc

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	headerLen = 10
	// maxMessage caps a single frame. A full capability set plus a few
	// thousand volumes fits comfortably below this.
	maxMessage = 64 << 20
)

var (
	// ErrMessageTooLarge indicates a frame exceeding maxMessage on either side.
	ErrMessageTooLarge = errors.New("rpc: message exceeds size limit")

	// ErrBadHeader indicates a length header that is not ten ASCII digits.
	ErrBadHeader = errors.New("rpc: malformed frame header")
)

// writeFrame writes the length header and payload as a single Write so
// concurrent writers on the caller's side cannot interleave a frame.
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxMessage {
		return ErrMessageTooLarge
	}
	buf := make([]byte, 0, headerLen+len(payload))
	buf = append(buf, fmt.Sprintf("%0*d", headerLen, len(payload))...)
	buf = append(buf, payload...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("rpc: write frame: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed payload. io.EOF before the first
// header byte means the peer closed cleanly and is returned unchanged.
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("rpc: read frame header: %w", err)
	}
	for _, b := range hdr {
		if b < '0' || b > '9' {
			return nil, ErrBadHeader
		}
	}
	size, err := strconv.Atoi(string(hdr[:]))
	if err != nil {
		return nil, ErrBadHeader
	}
	if size > maxMessage {
		return nil, ErrMessageTooLarge
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("rpc: read frame payload: %w", err)
	}
	return payload, nil
}
