package execution

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

// LocalRPCURL is used when neither a flag, the config file nor the chain
// table names a node.
const LocalRPCURL = "http://localhost:8545"

var defaultRPCByChainID = map[uint64]string{
	1:        "https://eth.llamarpc.com",
	10:       "https://mainnet.optimism.io",
	56:       "https://bsc-dataseed.binance.org",
	61:       "https://etc.rivet.link",
	100:      "https://rpc.gnosischain.com",
	137:      "https://polygon-rpc.com",
	8453:     "https://mainnet.base.org",
	17000:    "https://ethereum-holesky-rpc.publicnode.com",
	42161:    "https://arb1.arbitrum.io/rpc",
	43114:    "https://api.avax.network/ext/bc/C/rpc",
	11155111: "https://ethereum-sepolia-rpc.publicnode.com",
}

func DefaultRPCURL(chainID uint64) (string, bool) {
	v, ok := defaultRPCByChainID[chainID]
	return v, ok
}

// ResolveRPCURL picks the node URL: explicit override, then configured
// per-chain URL, then the built-in table, then a local node.
func ResolveRPCURL(override string, configured map[uint64]string, chainID *uint64) string {
	if v := strings.TrimSpace(override); v != "" {
		if !strings.Contains(v, "://") {
			return "http://" + v
		}
		return v
	}
	if chainID != nil {
		if v, ok := configured[*chainID]; ok && v != "" {
			return v
		}
		if v, ok := DefaultRPCURL(*chainID); ok {
			return v
		}
	}
	return LocalRPCURL
}

// Backend is the subset of node calls the pipeline needs.
type Backend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	Close()
}

// Dialer connects a Backend on demand.
type Dialer func(ctx context.Context) (Backend, error)

type rpcBackend struct {
	client *ethclient.Client
}

// DialRPC returns a Dialer for the JSON-RPC node at url.
func DialRPC(url string) Dialer {
	return func(ctx context.Context) (Backend, error) {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeRPCUnavailable, "connect rpc "+url, err)
		}
		return &rpcBackend{client: client}, nil
	}
}

func (b *rpcBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return b.client.SuggestGasPrice(ctx)
}

func (b *rpcBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return b.client.EstimateGas(ctx, msg)
}

func (b *rpcBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return b.client.PendingNonceAt(ctx, account)
}

func (b *rpcBackend) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := b.client.Client().CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (b *rpcBackend) Close() {
	b.client.Close()
}
