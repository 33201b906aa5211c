// Package txapi fetches previous transactions from an Insight-style block
// explorer so the device can verify the inputs it signs.
package txapi

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/httpx"
)

// Insight reads raw transactions from one explorer. Fetched transactions are
// kept for the life of the value only.
type Insight struct {
	http *httpx.Client
	base string
	txs  map[chainhash.Hash]*wire.MsgTx
}

func NewInsight(client *httpx.Client, base string) *Insight {
	return &Insight{http: client, base: strings.TrimRight(base, "/") + "/", txs: map[chainhash.Hash]*wire.MsgTx{}}
}

type rawTxResponse struct {
	RawTx string `json:"rawtx"`
}

// Fetch returns the transaction with the given display-order id.
func (c *Insight) Fetch(ctx context.Context, txid string) (*wire.MsgTx, error) {
	hash, err := chainhash.NewHashFromStr(strings.TrimSpace(txid))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid transaction id %q", txid), err)
	}
	if tx, ok := c.txs[*hash]; ok {
		return tx, nil
	}
	var resp rawTxResponse
	if _, err := httpx.DoBodyJSON(ctx, c.http, "GET", c.base+"rawtx/"+hash.String(), nil, nil, &resp); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(resp.RawTx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "decode rawtx", err)
	}
	tx, err := decodeTx(raw, hash)
	if err != nil {
		return nil, err
	}
	c.txs[*hash] = tx
	return tx, nil
}

func decodeTx(raw []byte, hash *chainhash.Hash) (*wire.MsgTx, error) {
	tx := new(wire.MsgTx)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "parse rawtx", err)
	}
	if got := tx.TxHash(); got != *hash {
		return nil, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("explorer returned transaction %s for %s", got, hash))
	}
	return tx, nil
}

// FetchByWireHash looks a transaction up by the id bytes the device sends,
// which are in display order.
func (c *Insight) FetchByWireHash(ctx context.Context, id []byte) (*wire.MsgTx, error) {
	return c.Fetch(ctx, hex.EncodeToString(id))
}

// WireHash converts a chain hash to the display-order bytes the device uses.
func WireHash(h chainhash.Hash) []byte {
	out := make([]byte, chainhash.HashSize)
	for i := range h {
		out[chainhash.HashSize-1-i] = h[i]
	}
	return out
}
