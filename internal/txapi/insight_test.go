package txapi

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/httpx"
)

func sampleTx(t *testing.T) (*wire.MsgTx, string) {
	t.Helper()
	tx := wire.NewMsgTx(1)
	prev := chainhash.Hash{0x01, 0x02}
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prev, 3), []byte{0x51}, nil))
	tx.AddTxOut(wire.NewTxOut(5000, []byte{0x76, 0xa9}))
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return tx, hex.EncodeToString(buf.Bytes())
}

func TestFetchCachesAndVerifies(t *testing.T) {
	tx, raw := sampleTx(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !strings.HasSuffix(r.URL.Path, "/api/rawtx/"+tx.TxHash().String()) {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"rawtx": raw})
	}))
	defer srv.Close()

	c := NewInsight(httpx.New(time.Second), srv.URL+"/api")
	for i := 0; i < 2; i++ {
		got, err := c.Fetch(context.Background(), tx.TxHash().String())
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if got.TxOut[0].Value != 5000 {
			t.Fatalf("unexpected output value %d", got.TxOut[0].Value)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one explorer request, got %d", calls)
	}

	byWire, err := c.FetchByWireHash(context.Background(), WireHash(tx.TxHash()))
	if err != nil {
		t.Fatalf("FetchByWireHash failed: %v", err)
	}
	if byWire.TxHash() != tx.TxHash() {
		t.Fatal("wire hash lookup returned a different transaction")
	}
}

func TestFetchRejectsMismatchedTransaction(t *testing.T) {
	_, raw := sampleTx(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"rawtx": raw})
	}))
	defer srv.Close()

	c := NewInsight(httpx.New(time.Second), srv.URL)
	_, err := c.Fetch(context.Background(), strings.Repeat("ab", 32))
	if !clierr.Is(err, clierr.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestFetchRejectsBadID(t *testing.T) {
	c := NewInsight(httpx.New(time.Second), "http://127.0.0.1:1")
	if _, err := c.Fetch(context.Background(), "xyz"); !clierr.Is(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestWireHashIsDisplayOrder(t *testing.T) {
	h := chainhash.Hash{0xaa}
	if hex.EncodeToString(WireHash(h)) != h.String() {
		t.Fatalf("wire hash %x does not match %s", WireHash(h), h.String())
	}
}

func TestFetchIsNotSharedAcrossClients(t *testing.T) {
	tx, raw := sampleTx(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]string{"rawtx": raw})
	}))
	defer srv.Close()

	for i := 0; i < 2; i++ {
		c := NewInsight(httpx.New(time.Second), srv.URL)
		if _, err := c.Fetch(context.Background(), tx.TxHash().String()); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected each client to fetch on its own, got %d requests", calls)
	}
}
