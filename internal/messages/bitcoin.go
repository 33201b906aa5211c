package messages

import (
	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
	"google.golang.org/protobuf/proto"
)

// InputScriptType selects how an input is spent.
type InputScriptType uint32

const (
	SpendAddress     InputScriptType = 0
	SpendMultisig    InputScriptType = 1
	External         InputScriptType = 2
	SpendWitness     InputScriptType = 3
	SpendP2SHWitness InputScriptType = 4
)

var inputScriptTypes = map[string]InputScriptType{
	"address":    SpendAddress,
	"multisig":   SpendMultisig,
	"external":   External,
	"segwit":     SpendWitness,
	"p2shsegwit": SpendP2SHWitness,
}

// ParseInputScriptType maps a CLI name onto the wire enum.
func ParseInputScriptType(name string) (InputScriptType, bool) {
	v, ok := inputScriptTypes[name]
	return v, ok
}

// InputScriptTypeNames lists the accepted script type names.
func InputScriptTypeNames() []string {
	return []string{"address", "segwit", "p2shsegwit"}
}

// OutputScriptType selects how an output is locked.
type OutputScriptType uint32

const (
	PayToAddress     OutputScriptType = 0
	PayToScriptHash  OutputScriptType = 1
	PayToMultisig    OutputScriptType = 2
	PayToOpReturn    OutputScriptType = 3
	PayToWitness     OutputScriptType = 4
	PayToP2SHWitness OutputScriptType = 5
)

type GetAddress struct {
	AddressN    []uint32
	CoinName    string
	ShowDisplay bool
	ScriptType  InputScriptType
}

func (GetAddress) MessageType() uint16 { return TypeGetAddress }

func (m GetAddress) Marshal() ([]byte, error) {
	var e encoder
	e.uint32s(1, m.AddressN)
	e.string(2, m.CoinName)
	e.bool(3, m.ShowDisplay)
	e.uint64(5, uint64(m.ScriptType))
	return e.buf, nil
}

type Address struct {
	Address string
}

func (*Address) MessageType() uint16 { return TypeAddress }

func (m *Address) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		if f.Num == 1 {
			m.Address = string(f.Bytes)
		}
		return nil
	})
}

type GetPublicKey struct {
	AddressN       []uint32
	ECDSACurveName string
	ShowDisplay    bool
	CoinName       string
}

func (GetPublicKey) MessageType() uint16 { return TypeGetPublicKey }

func (m GetPublicKey) Marshal() ([]byte, error) {
	var e encoder
	e.uint32s(1, m.AddressN)
	e.string(2, m.ECDSACurveName)
	e.bool(3, m.ShowDisplay)
	e.string(4, m.CoinName)
	return e.buf, nil
}

// PublicKey carries the derived node; its layout matches HDNodeType.
type PublicKey struct {
	Node *trezor.HDNodeType
	XPub string
}

func (*PublicKey) MessageType() uint16 { return TypePublicKey }

func (m *PublicKey) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		switch f.Num {
		case 1:
			node := new(trezor.HDNodeType)
			if err := proto.Unmarshal(f.Bytes, node); err != nil {
				return err
			}
			m.Node = node
		case 2:
			m.XPub = string(f.Bytes)
		}
		return nil
	})
}

type SignMessage struct {
	AddressN []uint32
	Message  []byte
	CoinName string
}

func (SignMessage) MessageType() uint16 { return TypeSignMessage }

func (m SignMessage) Marshal() ([]byte, error) {
	var e encoder
	e.uint32s(1, m.AddressN)
	e.bytes(2, nonNil(m.Message))
	e.string(3, m.CoinName)
	return e.buf, nil
}

type MessageSignature struct {
	Address   string
	Signature []byte
}

func (*MessageSignature) MessageType() uint16 { return TypeMessageSignature }

func (m *MessageSignature) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Address = string(f.Bytes)
		case 2:
			m.Signature = f.Bytes
		}
		return nil
	})
}

type VerifyMessage struct {
	Address   string
	Signature []byte
	Message   []byte
	CoinName  string
}

func (VerifyMessage) MessageType() uint16 { return TypeVerifyMessage }

func (m VerifyMessage) Marshal() ([]byte, error) {
	var e encoder
	e.string(1, m.Address)
	e.bytes(2, m.Signature)
	e.bytes(3, nonNil(m.Message))
	e.string(4, m.CoinName)
	return e.buf, nil
}

type SignTx struct {
	OutputsCount uint32
	InputsCount  uint32
	CoinName     string
	Version      uint32
	LockTime     uint32
}

func (SignTx) MessageType() uint16 { return TypeSignTx }

func (m SignTx) Marshal() ([]byte, error) {
	var e encoder
	e.uint64(1, uint64(m.OutputsCount))
	e.uint64(2, uint64(m.InputsCount))
	e.string(3, m.CoinName)
	e.uint64(4, uint64(m.Version))
	e.uint64(5, uint64(m.LockTime))
	return e.buf, nil
}

// RequestType is what the device asks for next while signing.
type RequestType uint32

const (
	RequestInput    RequestType = 0
	RequestOutput   RequestType = 1
	RequestMeta     RequestType = 2
	RequestFinished RequestType = 3
)

type TxRequest struct {
	Type           RequestType
	RequestIndex   *uint32
	TxHash         []byte
	SignatureIndex *uint32
	Signature      []byte
	SerializedTx   []byte
}

func (*TxRequest) MessageType() uint16 { return TypeTxRequest }

func (m *TxRequest) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Type = RequestType(f.Int)
		case 2:
			return decode(f.Bytes, func(d field) error {
				switch d.Num {
				case 1:
					v := uint32(d.Int)
					m.RequestIndex = &v
				case 2:
					m.TxHash = d.Bytes
				}
				return nil
			})
		case 3:
			return decode(f.Bytes, func(s field) error {
				switch s.Num {
				case 1:
					v := uint32(s.Int)
					m.SignatureIndex = &v
				case 2:
					m.Signature = s.Bytes
				case 3:
					m.SerializedTx = s.Bytes
				}
				return nil
			})
		}
		return nil
	})
}

type TxInput struct {
	AddressN   []uint32
	PrevHash   []byte
	PrevIndex  uint32
	ScriptSig  []byte
	Sequence   uint32
	ScriptType InputScriptType
	Amount     *uint64
}

func (in TxInput) marshal() []byte {
	var e encoder
	e.uint32s(1, in.AddressN)
	e.bytes(2, in.PrevHash)
	e.uint64(3, uint64(in.PrevIndex))
	e.bytes(4, in.ScriptSig)
	e.uint64(5, uint64(in.Sequence))
	if len(in.AddressN) > 0 {
		e.uint64(6, uint64(in.ScriptType))
	}
	if in.Amount != nil {
		e.uint64(8, *in.Amount)
	}
	return e.buf
}

type TxOutputBin struct {
	Amount       uint64
	ScriptPubKey []byte
}

func (out TxOutputBin) marshal() []byte {
	var e encoder
	e.uint64(1, out.Amount)
	e.bytes(2, nonNil(out.ScriptPubKey))
	return e.buf
}

type TxOutput struct {
	Address    string
	AddressN   []uint32
	Amount     uint64
	ScriptType OutputScriptType
}

func (out TxOutput) marshal() []byte {
	var e encoder
	e.string(1, out.Address)
	e.uint32s(2, out.AddressN)
	e.uint64(3, out.Amount)
	e.uint64(4, uint64(out.ScriptType))
	return e.buf
}

// TransactionType is the payload of a TxAck. Only the members relevant to
// the current request are set.
type TransactionType struct {
	Version    *uint32
	LockTime   *uint32
	InputsCnt  *uint32
	OutputsCnt *uint32
	Inputs     []TxInput
	BinOutputs []TxOutputBin
	Outputs    []TxOutput
}

type TxAck struct {
	Tx TransactionType
}

func (TxAck) MessageType() uint16 { return TypeTxAck }

func (m TxAck) Marshal() ([]byte, error) {
	var tx encoder
	tx.optUint32(1, m.Tx.Version)
	for _, in := range m.Tx.Inputs {
		tx.message(2, in.marshal())
	}
	for _, out := range m.Tx.BinOutputs {
		tx.message(3, out.marshal())
	}
	tx.optUint32(4, m.Tx.LockTime)
	for _, out := range m.Tx.Outputs {
		tx.message(5, out.marshal())
	}
	tx.optUint32(6, m.Tx.InputsCnt)
	tx.optUint32(7, m.Tx.OutputsCnt)

	var e encoder
	e.message(1, tx.buf)
	return e.buf, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
