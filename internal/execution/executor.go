package execution

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/execution/signer"
)

// Pipeline completes, signs and encodes one legacy transaction.
type Pipeline struct {
	Signer signer.Signer
	Dial   Dialer
	// OnState is told about every state transition.
	OnState func(State)
	// Notify shows operator-facing notices.
	Notify func(string)
	Log    *zap.Logger

	state   State
	backend Backend
}

// State returns the last state the pipeline entered.
func (p *Pipeline) State() State {
	return p.state
}

func (p *Pipeline) enter(s State) {
	p.state = s
	if p.Log != nil {
		p.Log.Debug("transaction pipeline", zap.String("state", string(s)))
	}
	if p.OnState != nil {
		p.OnState(s)
	}
}

func (p *Pipeline) fail(err error) error {
	p.enter(StateFailed)
	return err
}

// Run resolves missing fields, signs on the device and serializes the
// result. The node is dialed only when a field is missing.
func (p *Pipeline) Run(ctx context.Context, fields TxFields) (*SignedTx, error) {
	if p.Signer == nil {
		return nil, clierr.New(clierr.CodeInternal, "missing signer")
	}
	p.enter(StateCollecting)
	value := fields.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, p.fail(clierr.New(clierr.CodeUsage, "value must be non-negative"))
	}
	data := fields.Data
	if data == nil {
		data = []byte{}
	}

	p.enter(StateResolving)
	resolved, err := p.resolve(ctx, fields, value, data)
	if err != nil {
		return nil, p.fail(err)
	}

	p.enter(StateSigning)
	if p.Notify != nil {
		p.Notify("Please confirm action on your device.")
	}
	sig, err := p.Signer.SignTx(ctx, signer.TxRequest{
		Nonce:    resolved.Nonce,
		GasPrice: resolved.GasPrice,
		GasLimit: resolved.GasLimit,
		To:       resolved.To,
		Value:    resolved.Value,
		Data:     resolved.Data,
		ChainID:  resolved.ChainID,
	})
	if err != nil {
		if _, ok := clierr.As(err); !ok {
			err = clierr.Wrap(clierr.CodeDeviceProtocol, "sign transaction", err)
		}
		return nil, p.fail(clierr.Rejected(err))
	}

	p.enter(StateEncoding)
	resolved.V = sig.V
	resolved.R = new(big.Int).SetBytes(sig.R)
	resolved.S = new(big.Int).SetBytes(sig.S)
	raw, err := encodeLegacy(resolved)
	if err != nil {
		return nil, p.fail(clierr.Wrap(clierr.CodeInternal, "encode transaction", err))
	}
	resolved.Raw = raw
	resolved.Hash = crypto.Keccak256Hash(raw)

	p.enter(StateDone)
	return resolved, nil
}

func (p *Pipeline) resolve(ctx context.Context, fields TxFields, value *big.Int, data []byte) (*SignedTx, error) {
	out := &SignedTx{To: fields.To, Value: value, Data: data, ChainID: fields.ChainID}
	if fields.GasPrice != nil {
		out.GasPrice = fields.GasPrice
	}
	if fields.GasLimit != nil {
		out.GasLimit = *fields.GasLimit
	}
	if fields.Nonce != nil {
		out.Nonce = *fields.Nonce
	}
	if fields.Complete() {
		return out, nil
	}

	backend, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	var from common.Address
	if fields.GasLimit == nil || fields.Nonce == nil {
		from, err = p.Signer.Address(ctx)
		if err != nil {
			return nil, err
		}
	}
	if fields.GasPrice == nil {
		price, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeRPCUnavailable, "eth_gasPrice", err)
		}
		out.GasPrice = price
	}
	if fields.GasLimit == nil {
		gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: fields.To, Value: value, Data: data})
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeRPCUnavailable, "eth_estimateGas", err)
		}
		out.GasLimit = gas
	}
	if fields.Nonce == nil {
		nonce, err := backend.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeRPCUnavailable, "eth_getTransactionCount", err)
		}
		out.Nonce = nonce
	}
	return out, nil
}

func (p *Pipeline) dial(ctx context.Context) (Backend, error) {
	if p.backend != nil {
		return p.backend, nil
	}
	if p.Dial == nil {
		return nil, clierr.New(clierr.CodeRPCUnavailable, "no rpc node configured")
	}
	backend, err := p.Dial(ctx)
	if err != nil {
		if _, ok := clierr.As(err); !ok {
			err = clierr.Wrap(clierr.CodeRPCUnavailable, "connect rpc", err)
		}
		return nil, err
	}
	p.backend = backend
	return backend, nil
}

// Broadcast submits a signed transaction. A failure leaves tx untouched so
// the caller can still report the raw bytes.
func (p *Pipeline) Broadcast(ctx context.Context, tx *SignedTx) (common.Hash, error) {
	if tx == nil || len(tx.Raw) == 0 {
		return common.Hash{}, clierr.New(clierr.CodeInternal, "nothing to broadcast")
	}
	backend, err := p.dial(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := backend.SendRawTransaction(ctx, tx.Raw)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeRPCUnavailable,
			fmt.Sprintf("eth_sendRawTransaction failed, signed transaction 0x%s", hex.EncodeToString(tx.Raw)), err)
	}
	return hash, nil
}

// Close releases the node connection if one was opened.
func (p *Pipeline) Close() {
	if p.backend != nil {
		p.backend.Close()
		p.backend = nil
	}
}

// Dialed reports whether the node was contacted.
func (p *Pipeline) Dialed() bool {
	return p.backend != nil
}

type legacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

func encodeLegacy(tx *SignedTx) ([]byte, error) {
	return rlp.EncodeToBytes(legacyTx{
		Nonce:    tx.Nonce,
		GasPrice: tx.GasPrice,
		Gas:      tx.GasLimit,
		To:       tx.To,
		Value:    tx.Value,
		Data:     tx.Data,
		V:        new(big.Int).SetUint64(tx.V),
		R:        tx.R,
		S:        tx.S,
	})
}

// DecodeHex parses optional 0x-prefixed hex; an empty string is empty data.
func DecodeHex(v string) ([]byte, error) {
	clean := strings.TrimSpace(v)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	if clean == "" {
		return []byte{}, nil
	}
	if len(clean)%2 != 0 {
		clean = "0" + clean
	}
	buf, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return buf, nil
}
