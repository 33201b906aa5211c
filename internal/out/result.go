package out

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Result is the value a command hands to the renderer. It is one of Message,
// Sequence, Mapping or Scalar.
type Result interface {
	isResult()
}

// Field is one named value of a Message. Value is a scalar, []byte, a nested
// Message or a []any of those.
type Field struct {
	Name  string
	Value any
}

// Message is a structured device message with fields in declaration order.
type Message struct {
	Name   string
	Fields []Field
}

// Sequence is an ordered list of items, rendered one per line.
type Sequence []any

// Mapping holds scalars or one level of nested mappings.
type Mapping map[string]any

// Scalar wraps a single string, number, boolean or byte string.
type Scalar struct {
	Value any
}

func (Message) isResult()  {}
func (Sequence) isResult() {}
func (Mapping) isResult()  {}
func (Scalar) isResult()   {}

// Text is shorthand for a string scalar.
func Text(s string) Scalar { return Scalar{Value: s} }

// Get returns the value of a named field.
func (m Message) Get(name string) (any, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// FromProto normalizes a protobuf message using its descriptor. Unset fields
// are omitted; set fields keep declaration order and proto field names.
func FromProto(msg proto.Message) Message {
	m := msg.ProtoReflect()
	desc := m.Descriptor()
	out := Message{Name: string(desc.Name())}
	fields := desc.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if !m.Has(fd) {
			continue
		}
		out.Fields = append(out.Fields, Field{Name: string(fd.Name()), Value: protoValue(fd, m.Get(fd))})
	}
	return out
}

func protoValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	if fd.IsList() {
		list := v.List()
		items := make([]any, list.Len())
		for i := 0; i < list.Len(); i++ {
			items[i] = protoScalar(fd, list.Get(i))
		}
		return items
	}
	if fd.IsMap() {
		nested := Mapping{}
		v.Map().Range(func(k protoreflect.MapKey, mv protoreflect.Value) bool {
			nested[k.String()] = protoScalar(fd.MapValue(), mv)
			return true
		})
		return nested
	}
	return protoScalar(fd, v)
}

func protoScalar(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return FromProto(v.Message().Interface())
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return string(ev.Name())
		}
		return int32(v.Enum())
	case protoreflect.BytesKind:
		return v.Bytes()
	case protoreflect.StringKind:
		return v.String()
	case protoreflect.BoolKind:
		return v.Bool()
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return v.Int()
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return v.Uint()
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return v.Float()
	default:
		return v.Interface()
	}
}
