package messages

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

func collect(t *testing.T, b []byte) []field {
	t.Helper()
	var out []field
	if err := decode(b, func(f field) error {
		out = append(out, f)
		return nil
	}); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return out
}

func TestGetAddressEncoding(t *testing.T) {
	buf, err := GetAddress{AddressN: []uint32{0x8000002c, 0}, CoinName: "Bitcoin", ShowDisplay: true, ScriptType: SpendWitness}.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	fields := collect(t, buf)
	if len(fields) != 5 {
		t.Fatalf("unexpected field count %d: %#v", len(fields), fields)
	}
	if fields[0].Num != 1 || fields[0].Int != 0x8000002c || fields[1].Int != 0 {
		t.Fatalf("unexpected address_n: %#v", fields[:2])
	}
	if fields[2].Num != 2 || string(fields[2].Bytes) != "Bitcoin" {
		t.Fatalf("unexpected coin: %#v", fields[2])
	}
	if fields[3].Num != 3 || fields[3].Int != 1 {
		t.Fatalf("unexpected show_display: %#v", fields[3])
	}
	if fields[4].Num != 5 || fields[4].Int != uint64(SpendWitness) {
		t.Fatalf("unexpected script_type: %#v", fields[4])
	}
}

func TestTxRequestDecoding(t *testing.T) {
	var details, serialized, msg []byte
	details = protowire.AppendTag(details, 1, protowire.VarintType)
	details = protowire.AppendVarint(details, 2)
	details = protowire.AppendTag(details, 2, protowire.BytesType)
	details = protowire.AppendBytes(details, []byte{0xaa, 0xbb})
	serialized = protowire.AppendTag(serialized, 1, protowire.VarintType)
	serialized = protowire.AppendVarint(serialized, 0)
	serialized = protowire.AppendTag(serialized, 3, protowire.BytesType)
	serialized = protowire.AppendBytes(serialized, []byte{0x01, 0x02})
	msg = protowire.AppendTag(msg, 1, protowire.VarintType)
	msg = protowire.AppendVarint(msg, uint64(RequestMeta))
	msg = protowire.AppendTag(msg, 2, protowire.BytesType)
	msg = protowire.AppendBytes(msg, details)
	msg = protowire.AppendTag(msg, 3, protowire.BytesType)
	msg = protowire.AppendBytes(msg, serialized)
	// Unknown fixed32 field is skipped.
	msg = protowire.AppendTag(msg, 9, protowire.Fixed32Type)
	msg = protowire.AppendFixed32(msg, 7)

	var req TxRequest
	if err := req.Unmarshal(msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if req.Type != RequestMeta || req.RequestIndex == nil || *req.RequestIndex != 2 {
		t.Fatalf("unexpected request: %#v", req)
	}
	if !bytes.Equal(req.TxHash, []byte{0xaa, 0xbb}) || !bytes.Equal(req.SerializedTx, []byte{0x01, 0x02}) {
		t.Fatalf("unexpected payloads: %#v", req)
	}
	if req.SignatureIndex == nil || *req.SignatureIndex != 0 {
		t.Fatalf("expected signature index 0, got %#v", req.SignatureIndex)
	}
}

func TestTxRequestRejectsTruncated(t *testing.T) {
	var req TxRequest
	if err := req.Unmarshal([]byte{0x12, 0x05, 0x01}); err == nil {
		t.Fatal("expected error for truncated message")
	}
}

func TestPublicKeyDecodesNode(t *testing.T) {
	node, err := proto.Marshal(&trezor.HDNodeType{
		Depth:       proto.Uint32(3),
		Fingerprint: proto.Uint32(0x01020304),
		ChildNum:    proto.Uint32(0x80000000),
		ChainCode:   bytes.Repeat([]byte{1}, 32),
		PublicKey:   bytes.Repeat([]byte{2}, 33),
	})
	if err != nil {
		t.Fatalf("marshal node: %v", err)
	}
	var e encoder
	e.message(1, node)
	e.string(2, "xpub-test")

	var pk PublicKey
	if err := pk.Unmarshal(e.buf); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if pk.XPub != "xpub-test" || pk.Node.GetDepth() != 3 || pk.Node.GetFingerprint() != 0x01020304 {
		t.Fatalf("unexpected public key: %+v", pk)
	}
}

func TestTxAckNestsTransaction(t *testing.T) {
	amount := uint64(5000)
	buf, err := TxAck{Tx: TransactionType{
		Inputs: []TxInput{{AddressN: []uint32{1}, PrevHash: []byte{0xff}, PrevIndex: 1, Sequence: 0xffffffff, Amount: &amount}},
	}}.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	outer := collect(t, buf)
	if len(outer) != 1 || outer[0].Num != 1 {
		t.Fatalf("expected single tx field, got %#v", outer)
	}
	tx := collect(t, outer[0].Bytes)
	if len(tx) != 1 || tx[0].Num != 2 {
		t.Fatalf("expected single input, got %#v", tx)
	}
	input := collect(t, tx[0].Bytes)
	var sawAmount bool
	for _, f := range input {
		if f.Num == 8 && f.Int == amount {
			sawAmount = true
		}
	}
	if !sawAmount {
		t.Fatalf("amount missing from input: %#v", input)
	}
}

func TestNEMSignTxEncoding(t *testing.T) {
	buf, err := NEMSignTx{
		Transaction: NEMTransactionCommon{AddressN: []uint32{0x8000002c}, Network: NEMTestnet, Timestamp: 10, Fee: 100, Deadline: 20},
		Transfer:    &NEMTransfer{Recipient: "TALICE", Amount: 7, Mosaics: []NEMMosaic{{Namespace: "nem", Mosaic: "xem", Quantity: 1}}},
	}.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	outer := collect(t, buf)
	if len(outer) != 2 || outer[0].Num != 1 || outer[1].Num != 3 {
		t.Fatalf("unexpected layout: %#v", outer)
	}
	transfer := collect(t, outer[1].Bytes)
	if string(transfer[0].Bytes) != "TALICE" || transfer[1].Int != 7 || transfer[2].Num != 5 {
		t.Fatalf("unexpected transfer: %#v", transfer)
	}
}

func TestName(t *testing.T) {
	if Name(TypeCosiSign) != "CosiSign" {
		t.Fatalf("unexpected local name %q", Name(TypeCosiSign))
	}
	if Name(17) != "Features" {
		t.Fatalf("unexpected generated name %q", Name(17))
	}
	if Name(65000) != "Unknown" {
		t.Fatalf("unexpected fallback %q", Name(65000))
	}
}
