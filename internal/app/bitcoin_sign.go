package app

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/wire"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/messages"
	"github.com/ggonzalez94/trezorctl/internal/txapi"
)

// prevTxSource resolves the previous transactions the device asks about.
type prevTxSource interface {
	FetchByWireHash(ctx context.Context, id []byte) (*wire.MsgTx, error)
}

type unsignedTx struct {
	CoinName string
	Version  uint32
	LockTime uint32
	Inputs   []messages.TxInput
	Outputs  []messages.TxOutput
}

type signedTx struct {
	Signatures [][]byte
	Serialized []byte
}

// signBitcoinTx answers TxRequests until the device reports it has finished.
// Requests carrying a tx hash refer to a previous transaction, the rest to
// the one being signed.
func signBitcoinTx(ctx context.Context, c caller, tx unsignedTx, prev prevTxSource) (signedTx, error) {
	result := signedTx{Signatures: make([][]byte, len(tx.Inputs))}
	var req any = messages.SignTx{
		OutputsCount: uint32(len(tx.Outputs)),
		InputsCount:  uint32(len(tx.Inputs)),
		CoinName:     tx.CoinName,
		Version:      tx.Version,
		LockTime:     tx.LockTime,
	}
	for {
		res := new(messages.TxRequest)
		if _, err := c.Call(req, res); err != nil {
			return signedTx{}, err
		}
		if res.SignatureIndex != nil {
			idx := int(*res.SignatureIndex)
			if idx >= len(result.Signatures) {
				return signedTx{}, clierr.New(clierr.CodeDeviceProtocol, fmt.Sprintf("signature for unknown input %d", idx))
			}
			result.Signatures[idx] = res.Signature
		}
		result.Serialized = append(result.Serialized, res.SerializedTx...)
		if res.Type == messages.RequestFinished {
			return result, nil
		}

		var idx uint32
		if res.RequestIndex != nil {
			idx = *res.RequestIndex
		}
		var ack messages.TxAck
		var err error
		if len(res.TxHash) > 0 {
			ack, err = prevTxAck(ctx, prev, res.Type, res.TxHash, idx)
		} else {
			ack, err = currentTxAck(tx, res.Type, idx)
		}
		if err != nil {
			return signedTx{}, err
		}
		req = ack
	}
}

func currentTxAck(tx unsignedTx, kind messages.RequestType, idx uint32) (messages.TxAck, error) {
	var ack messages.TxAck
	switch kind {
	case messages.RequestMeta:
		inputs, outputs := uint32(len(tx.Inputs)), uint32(len(tx.Outputs))
		ack.Tx = messages.TransactionType{Version: &tx.Version, LockTime: &tx.LockTime, InputsCnt: &inputs, OutputsCnt: &outputs}
	case messages.RequestInput:
		if int(idx) >= len(tx.Inputs) {
			return ack, requestRangeError("input", idx)
		}
		ack.Tx.Inputs = []messages.TxInput{tx.Inputs[idx]}
	case messages.RequestOutput:
		if int(idx) >= len(tx.Outputs) {
			return ack, requestRangeError("output", idx)
		}
		ack.Tx.Outputs = []messages.TxOutput{tx.Outputs[idx]}
	default:
		return ack, clierr.New(clierr.CodeDeviceProtocol, fmt.Sprintf("unknown request type %d", kind))
	}
	return ack, nil
}

func prevTxAck(ctx context.Context, prev prevTxSource, kind messages.RequestType, hash []byte, idx uint32) (messages.TxAck, error) {
	var ack messages.TxAck
	tx, err := prev.FetchByWireHash(ctx, hash)
	if err != nil {
		return ack, err
	}
	switch kind {
	case messages.RequestMeta:
		version, lockTime := uint32(tx.Version), tx.LockTime
		inputs, outputs := uint32(len(tx.TxIn)), uint32(len(tx.TxOut))
		ack.Tx = messages.TransactionType{Version: &version, LockTime: &lockTime, InputsCnt: &inputs, OutputsCnt: &outputs}
	case messages.RequestInput:
		if int(idx) >= len(tx.TxIn) {
			return ack, requestRangeError("previous input", idx)
		}
		in := tx.TxIn[idx]
		ack.Tx.Inputs = []messages.TxInput{{
			PrevHash:  txapi.WireHash(in.PreviousOutPoint.Hash),
			PrevIndex: in.PreviousOutPoint.Index,
			ScriptSig: in.SignatureScript,
			Sequence:  in.Sequence,
		}}
	case messages.RequestOutput:
		if int(idx) >= len(tx.TxOut) {
			return ack, requestRangeError("previous output", idx)
		}
		out := tx.TxOut[idx]
		ack.Tx.BinOutputs = []messages.TxOutputBin{{Amount: uint64(out.Value), ScriptPubKey: out.PkScript}}
	default:
		return ack, clierr.New(clierr.CodeDeviceProtocol, fmt.Sprintf("unknown request type %d", kind))
	}
	return ack, nil
}

func requestRangeError(what string, idx uint32) error {
	return clierr.New(clierr.CodeDeviceProtocol, fmt.Sprintf("device requested %s %d which does not exist", what, idx))
}
