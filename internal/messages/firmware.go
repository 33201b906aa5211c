package messages

type FirmwareErase struct {
	Length *uint32
}

func (FirmwareErase) MessageType() uint16 { return TypeFirmwareErase }

func (m FirmwareErase) Marshal() ([]byte, error) {
	var e encoder
	e.optUint32(1, m.Length)
	return e.buf, nil
}

type FirmwareUpload struct {
	Payload []byte
	Hash    []byte
}

func (FirmwareUpload) MessageType() uint16 { return TypeFirmwareUpload }

func (m FirmwareUpload) Marshal() ([]byte, error) {
	var e encoder
	e.bytes(1, nonNil(m.Payload))
	e.bytes(2, m.Hash)
	return e.buf, nil
}

// FirmwareRequest asks for a slice of the image during chunked uploads.
type FirmwareRequest struct {
	Offset uint32
	Length uint32
}

func (*FirmwareRequest) MessageType() uint16 { return TypeFirmwareRequest }

func (m *FirmwareRequest) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Offset = uint32(f.Int)
		case 2:
			m.Length = uint32(f.Int)
		}
		return nil
	})
}
