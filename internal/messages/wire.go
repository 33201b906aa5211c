// Package messages holds the device messages that have no generated Go
// bindings, encoded directly with protowire.
package messages

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Request is a message the host sends to the device.
type Request interface {
	MessageType() uint16
	Marshal() ([]byte, error)
}

// Response is a message the device sends back.
type Response interface {
	MessageType() uint16
	Unmarshal([]byte) error
}

type encoder struct {
	buf []byte
}

func (e *encoder) uint32s(num protowire.Number, vs []uint32) {
	for _, v := range vs {
		e.uint64(num, uint64(v))
	}
}

func (e *encoder) uint64(num protowire.Number, v uint64) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

func (e *encoder) optUint32(num protowire.Number, v *uint32) {
	if v != nil {
		e.uint64(num, uint64(*v))
	}
}

func (e *encoder) bool(num protowire.Number, v bool) {
	e.uint64(num, protowire.EncodeBool(v))
}

func (e *encoder) optBool(num protowire.Number, v *bool) {
	if v != nil {
		e.bool(num, *v)
	}
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	if v == nil {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, v)
}

func (e *encoder) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, v)
}

func (e *encoder) message(num protowire.Number, inner []byte) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, inner)
}

// field is one decoded wire field. Varint fields set Int, length-delimited
// fields set Bytes.
type field struct {
	Num   protowire.Number
	Int   uint64
	Bytes []byte
}

func decode(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return fmt.Errorf("decode field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
			if err := fn(field{Num: num, Int: v}); err != nil {
				return err
			}
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("decode field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
			if err := fn(field{Num: num, Bytes: append([]byte(nil), v...)}); err != nil {
				return err
			}
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("skip field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return nil
}
