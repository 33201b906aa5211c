package messages

type CipherKeyValue struct {
	AddressN     []uint32
	Key          string
	Value        []byte
	Encrypt      bool
	AskOnEncrypt bool
	AskOnDecrypt bool
	IV           []byte
}

func (CipherKeyValue) MessageType() uint16 { return TypeCipherKeyValue }

func (m CipherKeyValue) Marshal() ([]byte, error) {
	var e encoder
	e.uint32s(1, m.AddressN)
	e.string(2, m.Key)
	e.bytes(3, nonNil(m.Value))
	e.bool(4, m.Encrypt)
	e.bool(5, m.AskOnEncrypt)
	e.bool(6, m.AskOnDecrypt)
	e.bytes(7, m.IV)
	return e.buf, nil
}

type CipheredKeyValue struct {
	Value []byte
}

func (*CipheredKeyValue) MessageType() uint16 { return TypeCipheredKeyValue }

func (m *CipheredKeyValue) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		if f.Num == 1 {
			m.Value = f.Bytes
		}
		return nil
	})
}

type EncryptMessage struct {
	PubKey      []byte
	Message     []byte
	DisplayOnly bool
	AddressN    []uint32
	CoinName    string
}

func (EncryptMessage) MessageType() uint16 { return TypeEncryptMessage }

func (m EncryptMessage) Marshal() ([]byte, error) {
	var e encoder
	e.bytes(1, m.PubKey)
	e.bytes(2, nonNil(m.Message))
	e.bool(3, m.DisplayOnly)
	e.uint32s(4, m.AddressN)
	e.string(5, m.CoinName)
	return e.buf, nil
}

type EncryptedMessage struct {
	Nonce   []byte
	Message []byte
	HMAC    []byte
}

func (*EncryptedMessage) MessageType() uint16 { return TypeEncryptedMessage }

func (m *EncryptedMessage) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Nonce = f.Bytes
		case 2:
			m.Message = f.Bytes
		case 3:
			m.HMAC = f.Bytes
		}
		return nil
	})
}

type DecryptMessage struct {
	AddressN []uint32
	Nonce    []byte
	Message  []byte
	HMAC     []byte
}

func (DecryptMessage) MessageType() uint16 { return TypeDecryptMessage }

func (m DecryptMessage) Marshal() ([]byte, error) {
	var e encoder
	e.uint32s(1, m.AddressN)
	e.bytes(2, m.Nonce)
	e.bytes(3, m.Message)
	e.bytes(4, m.HMAC)
	return e.buf, nil
}

type DecryptedMessage struct {
	Message []byte
	Address string
}

func (*DecryptedMessage) MessageType() uint16 { return TypeDecryptedMessage }

func (m *DecryptedMessage) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Message = f.Bytes
		case 2:
			m.Address = string(f.Bytes)
		}
		return nil
	})
}

type CosiCommit struct {
	AddressN []uint32
	Data     []byte
}

func (CosiCommit) MessageType() uint16 { return TypeCosiCommit }

func (m CosiCommit) Marshal() ([]byte, error) {
	var e encoder
	e.uint32s(1, m.AddressN)
	e.bytes(2, m.Data)
	return e.buf, nil
}

type CosiCommitment struct {
	Commitment []byte
	PubKey     []byte
}

func (*CosiCommitment) MessageType() uint16 { return TypeCosiCommitment }

func (m *CosiCommitment) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Commitment = f.Bytes
		case 2:
			m.PubKey = f.Bytes
		}
		return nil
	})
}

type CosiSign struct {
	AddressN         []uint32
	Data             []byte
	GlobalCommitment []byte
	GlobalPubKey     []byte
}

func (CosiSign) MessageType() uint16 { return TypeCosiSign }

func (m CosiSign) Marshal() ([]byte, error) {
	var e encoder
	e.uint32s(1, m.AddressN)
	e.bytes(2, m.Data)
	e.bytes(3, m.GlobalCommitment)
	e.bytes(4, m.GlobalPubKey)
	return e.buf, nil
}

type CosiSignature struct {
	Signature []byte
}

func (*CosiSignature) MessageType() uint16 { return TypeCosiSignature }

func (m *CosiSignature) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		if f.Num == 1 {
			m.Signature = f.Bytes
		}
		return nil
	})
}
