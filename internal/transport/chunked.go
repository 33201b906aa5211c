package transport

import (
	"encoding/binary"
	"errors"
	"io"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

const (
	packetSize   = 64
	reportMagic  = 0x3f
	headerMagic  = 0x23
	headerLength = 8

	// maxReplySize bounds the length a reply header may declare.
	maxReplySize = 1 << 20
)

var errInvalidHeader = errors.New("invalid reply header")

// writeFramed streams a message as 64 byte packets: the first carries
// "?##", the message type and the payload length, the rest carry "?" and
// payload continuation.
func writeFramed(w io.Writer, kind uint16, data []byte) error {
	payload := make([]byte, headerLength+len(data))
	payload[0], payload[1] = headerMagic, headerMagic
	binary.BigEndian.PutUint16(payload[2:], kind)
	binary.BigEndian.PutUint32(payload[4:], uint32(len(data)))
	copy(payload[headerLength:], data)

	chunk := make([]byte, packetSize)
	chunk[0] = reportMagic
	for len(payload) > 0 {
		n := copy(chunk[1:], payload)
		for i := 1 + n; i < packetSize; i++ {
			chunk[i] = 0
		}
		payload = payload[n:]
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// readFramed reassembles one message from 64 byte packets.
func readFramed(r io.Reader) (uint16, []byte, error) {
	var (
		kind  uint16
		reply []byte
		first = true
	)
	chunk := make([]byte, packetSize)
	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			return 0, nil, err
		}
		if chunk[0] != reportMagic || (first && (chunk[1] != headerMagic || chunk[2] != headerMagic)) {
			return 0, nil, errInvalidHeader
		}
		var payload []byte
		if first {
			kind = binary.BigEndian.Uint16(chunk[3:5])
			length := binary.BigEndian.Uint32(chunk[5:9])
			if length > maxReplySize {
				return 0, nil, errInvalidHeader
			}
			reply = make([]byte, 0, int(length))
			payload = chunk[9:]
			first = false
		} else {
			payload = chunk[1:]
		}
		if left := cap(reply) - len(reply); left > len(payload) {
			reply = append(reply, payload...)
		} else {
			reply = append(reply, payload[:left]...)
			return kind, reply, nil
		}
	}
}

// framedEndpoint adapts any packet stream to the Endpoint contract.
type framedEndpoint struct {
	path   string
	rw     io.ReadWriter
	closer func() error
	closed bool
}

func (e *framedEndpoint) Path() string { return e.path }

func (e *framedEndpoint) Write(kind uint16, payload []byte) error {
	if e.closed {
		return clierr.New(clierr.CodeConnection, "endpoint is closed")
	}
	if err := writeFramed(e.rw, kind, payload); err != nil {
		return clierr.Wrap(clierr.CodeConnection, "write to device", err)
	}
	return nil
}

func (e *framedEndpoint) Read() (uint16, []byte, error) {
	if e.closed {
		return 0, nil, clierr.New(clierr.CodeConnection, "endpoint is closed")
	}
	kind, payload, err := readFramed(e.rw)
	if err != nil {
		return 0, nil, clierr.Wrap(clierr.CodeConnection, "read from device", err)
	}
	return kind, payload, nil
}

func (e *framedEndpoint) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.closer == nil {
		return nil
	}
	return e.closer()
}
