package messages

// NEM network identifiers.
const (
	NEMMainnet uint32 = 0x68
	NEMTestnet uint32 = 0x98
	NEMMijin   uint32 = 0x60
)

type NEMGetAddress struct {
	AddressN    []uint32
	Network     uint32
	ShowDisplay bool
}

func (NEMGetAddress) MessageType() uint16 { return TypeNEMGetAddress }

func (m NEMGetAddress) Marshal() ([]byte, error) {
	var e encoder
	e.uint32s(1, m.AddressN)
	e.uint64(2, uint64(m.Network))
	e.bool(3, m.ShowDisplay)
	return e.buf, nil
}

type NEMAddress struct {
	Address string
}

func (*NEMAddress) MessageType() uint16 { return TypeNEMAddress }

func (m *NEMAddress) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		if f.Num == 1 {
			m.Address = string(f.Bytes)
		}
		return nil
	})
}

type NEMTransactionCommon struct {
	AddressN  []uint32
	Network   uint32
	Timestamp uint32
	Fee       uint64
	Deadline  uint32
	Signer    []byte
}

type NEMMosaic struct {
	Namespace string
	Mosaic    string
	Quantity  uint64
}

type NEMTransfer struct {
	Recipient string
	Amount    uint64
	Payload   []byte
	PublicKey []byte
	Mosaics   []NEMMosaic
}

// NEMSignTx covers plain and mosaic transfers.
type NEMSignTx struct {
	Transaction NEMTransactionCommon
	Transfer    *NEMTransfer
}

func (NEMSignTx) MessageType() uint16 { return TypeNEMSignTx }

func (m NEMSignTx) Marshal() ([]byte, error) {
	var common encoder
	common.uint32s(1, m.Transaction.AddressN)
	common.uint64(2, uint64(m.Transaction.Network))
	common.uint64(3, uint64(m.Transaction.Timestamp))
	common.uint64(4, m.Transaction.Fee)
	common.uint64(5, uint64(m.Transaction.Deadline))
	common.bytes(6, m.Transaction.Signer)

	var e encoder
	e.message(1, common.buf)
	if t := m.Transfer; t != nil {
		var tr encoder
		tr.string(1, t.Recipient)
		tr.uint64(2, t.Amount)
		tr.bytes(3, t.Payload)
		tr.bytes(4, t.PublicKey)
		for _, mosaic := range t.Mosaics {
			var me encoder
			me.string(1, mosaic.Namespace)
			me.string(2, mosaic.Mosaic)
			me.uint64(3, mosaic.Quantity)
			tr.message(5, me.buf)
		}
		e.message(3, tr.buf)
	}
	return e.buf, nil
}

type NEMSignedTx struct {
	Data      []byte
	Signature []byte
}

func (*NEMSignedTx) MessageType() uint16 { return TypeNEMSignedTx }

func (m *NEMSignedTx) Unmarshal(b []byte) error {
	return decode(b, func(f field) error {
		switch f.Num {
		case 1:
			m.Data = f.Bytes
		case 2:
			m.Signature = f.Bytes
		}
		return nil
	})
}
