package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxRequest is a fully resolved legacy transaction ready for signing.
type TxRequest struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       *common.Address
	Value    *big.Int
	Data     []byte
	ChainID  *uint64
}

// Signature holds the recoverable signature components of a transaction.
type Signature struct {
	V uint64
	R []byte
	S []byte
}

type Signer interface {
	Address(ctx context.Context) (common.Address, error)
	SignTx(ctx context.Context, tx TxRequest) (Signature, error)
}
