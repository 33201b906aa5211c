package execution

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// State is a step of the transaction pipeline.
type State string

const (
	StateCollecting State = "collecting"
	StateResolving  State = "resolving"
	StateSigning    State = "signing"
	StateEncoding   State = "encoding"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// TxFields are the unsigned transaction inputs. Nil pointers are filled from
// the RPC node; a nil To creates a contract.
type TxFields struct {
	To       *common.Address
	Value    *big.Int
	GasPrice *big.Int
	GasLimit *uint64
	Nonce    *uint64
	Data     []byte
	ChainID  *uint64
}

// Complete reports whether every field the node could fill is already set.
func (f TxFields) Complete() bool {
	return f.GasPrice != nil && f.GasLimit != nil && f.Nonce != nil
}

// SignedTx is a fully resolved transaction with its signature and the RLP
// serialization, produced once.
type SignedTx struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       *common.Address
	Value    *big.Int
	Data     []byte
	ChainID  *uint64
	V        uint64
	R        *big.Int
	S        *big.Int
	Raw      []byte
	Hash     common.Hash
}
