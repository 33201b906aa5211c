package signer

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/protobuf/proto"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

type replyFunc func(req any, result any) error

type fakeCaller struct {
	requests []any
	replies  []replyFunc
}

func (f *fakeCaller) Call(req any, results ...any) (int, error) {
	f.requests = append(f.requests, req)
	if len(f.replies) == 0 {
		return -1, fmt.Errorf("unexpected call %T", req)
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	return 0, next(req, results[0])
}

func TestDeviceAddressCached(t *testing.T) {
	caller := &fakeCaller{replies: []replyFunc{
		func(_ any, result any) error {
			result.(*trezor.EthereumAddress).AddressHex = proto.String("0x00000000000000000000000000000000000000aa")
			return nil
		},
	}}
	dev := NewDevice(caller, []uint32{0x8000002c, 0x8000003c, 0x80000000, 0, 0})
	for i := 0; i < 2; i++ {
		addr, err := dev.Address(context.Background())
		if err != nil {
			t.Fatalf("Address failed: %v", err)
		}
		if addr != common.HexToAddress("0xaa") {
			t.Fatalf("unexpected address %s", addr.Hex())
		}
	}
	if len(caller.requests) != 1 {
		t.Fatalf("expected a single device call, got %d", len(caller.requests))
	}
}

func TestDeviceSignTxStreamsData(t *testing.T) {
	data := bytes.Repeat([]byte{0xab}, 1500)
	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	chainID := uint64(1)
	caller := &fakeCaller{replies: []replyFunc{
		func(req any, result any) error {
			sign := req.(*trezor.EthereumSignTx)
			if len(sign.GetDataInitialChunk()) != initialChunkSize {
				return fmt.Errorf("initial chunk %d", len(sign.GetDataInitialChunk()))
			}
			if sign.GetDataLength() != 1500 || sign.GetChainId() != 1 || sign.GetToHex() != to.Hex() {
				return fmt.Errorf("unexpected request %v", sign)
			}
			result.(*trezor.EthereumTxRequest).DataLength = proto.Uint32(476)
			return nil
		},
		func(req any, result any) error {
			ack := req.(*trezor.EthereumTxAck)
			if len(ack.GetDataChunk()) != 476 {
				return fmt.Errorf("chunk %d", len(ack.GetDataChunk()))
			}
			reply := result.(*trezor.EthereumTxRequest)
			reply.SignatureV = proto.Uint32(37)
			reply.SignatureR = []byte{1}
			reply.SignatureS = []byte{2}
			return nil
		},
	}}
	dev := NewDevice(caller, nil)
	sig, err := dev.SignTx(context.Background(), TxRequest{
		Nonce:    1,
		GasPrice: big.NewInt(1),
		GasLimit: 21000,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     data,
		ChainID:  &chainID,
	})
	if err != nil {
		t.Fatalf("SignTx failed: %v", err)
	}
	if sig.V != 37 || !bytes.Equal(sig.R, []byte{1}) || !bytes.Equal(sig.S, []byte{2}) {
		t.Fatalf("unexpected signature %+v", sig)
	}
	if len(caller.requests) != 2 {
		t.Fatalf("expected two device calls, got %d", len(caller.requests))
	}
}

func TestDeviceSignTxMissingSignature(t *testing.T) {
	caller := &fakeCaller{replies: []replyFunc{
		func(_ any, _ any) error { return nil },
	}}
	dev := NewDevice(caller, nil)
	if _, err := dev.SignTx(context.Background(), TxRequest{GasPrice: big.NewInt(1), Value: big.NewInt(0)}); err == nil {
		t.Fatal("expected missing signature error")
	}
}

func TestDeviceSignTxRejectsWideChainID(t *testing.T) {
	caller := &fakeCaller{}
	chainID := uint64(1)<<32 + 1
	_, err := NewDevice(caller, []uint32{0}).SignTx(context.Background(), TxRequest{
		GasPrice: big.NewInt(1),
		Value:    big.NewInt(0),
		ChainID:  &chainID,
	})
	if !clierr.Is(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if len(caller.requests) != 0 {
		t.Fatalf("expected no device calls, got %d", len(caller.requests))
	}
}
