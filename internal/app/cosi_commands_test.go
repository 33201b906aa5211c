package app

import (
	"bytes"
	"testing"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/messages"
	"github.com/ggonzalez94/trezorctl/internal/out"
)

func TestCosiCommitAndSign(t *testing.T) {
	c := &stepCaller{steps: []func([]any) (int, error){
		func(results []any) (int, error) {
			*results[0].(*messages.CosiCommitment) = messages.CosiCommitment{Commitment: []byte{0x01}, PubKey: []byte{0x02}}
			return 0, nil
		},
		func(results []any) (int, error) {
			*results[0].(*messages.CosiSignature) = messages.CosiSignature{Signature: []byte{0x03}}
			return 0, nil
		},
	}}
	path := []uint32{0x8000000a}
	committed, err := cosiCommit(c, messages.CosiCommit{AddressN: path, Data: []byte{0xaa}})
	if err != nil {
		t.Fatalf("cosiCommit failed: %v", err)
	}
	commitment := committed.(out.Mapping)
	if !bytes.Equal(commitment["commitment"].([]byte), []byte{0x01}) || !bytes.Equal(commitment["pubkey"].([]byte), []byte{0x02}) {
		t.Fatalf("unexpected commitment %v", commitment)
	}

	signed, err := cosiSign(c, messages.CosiSign{
		AddressN:         path,
		Data:             []byte{0xaa},
		GlobalCommitment: commitment["commitment"].([]byte),
		GlobalPubKey:     commitment["pubkey"].([]byte),
	})
	if err != nil {
		t.Fatalf("cosiSign failed: %v", err)
	}
	if !bytes.Equal(signed.(out.Mapping)["signature"].([]byte), []byte{0x03}) {
		t.Fatalf("unexpected signature %v", signed)
	}
	req := c.sent[1].(messages.CosiSign)
	if !bytes.Equal(req.GlobalCommitment, []byte{0x01}) || !bytes.Equal(req.GlobalPubKey, []byte{0x02}) {
		t.Fatalf("unexpected sign request %+v", req)
	}
}

func TestCosiSignCancelIsRejection(t *testing.T) {
	cancelled := clierr.Wrap(clierr.CodeDeviceProtocol, "device failure", &clierr.DeviceFailure{Kind: "ActionCancelled"})
	c := &stepCaller{steps: []func([]any) (int, error){
		func([]any) (int, error) { return -1, cancelled },
	}}
	_, err := cosiSign(c, messages.CosiSign{Data: []byte{0xaa}})
	if !clierr.Is(err, clierr.CodeSigningRejected) {
		t.Fatalf("expected signing rejection, got %v", err)
	}
}
