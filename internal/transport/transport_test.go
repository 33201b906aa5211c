package transport

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/httpx"
)

func TestResolveKnownTransports(t *testing.T) {
	for _, name := range Names() {
		d, err := Resolve(name, Options{})
		require.NoError(t, err, name)
		require.Equal(t, name, d.Name())
	}
	require.Equal(t, []string{"usb", "udp", "pipe", "bridge"}, Names())
}

func TestResolveUnknownTransport(t *testing.T) {
	_, err := Resolve("serial", Options{})
	require.Error(t, err)
	require.True(t, clierr.Is(err, clierr.CodeUnsupportedTransport))
}

func startFakeEmulator(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, packetSize)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if bytes.Equal(buf[:n], udpPing) {
				_, _ = conn.WriteTo(udpPong, addr)
				continue
			}
			// Answer every request packet with a Success carrying "ok".
			var reply bytes.Buffer
			_ = writeFramed(&reply, 2, []byte("ok"))
			_, _ = conn.WriteTo(reply.Bytes(), addr)
		}
	}()
	return conn.LocalAddr().String()
}

func TestUDPEnumerateAndCall(t *testing.T) {
	addr := startFakeEmulator(t)
	d, err := Resolve("udp", Options{UDPAddress: addr})
	require.NoError(t, err)

	paths, err := d.Enumerate(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{addr}, paths)

	e, err := Open(context.Background(), d, "")
	require.NoError(t, err)
	defer e.Close()
	require.Equal(t, addr, e.Path())

	require.NoError(t, e.Write(1, []byte("ping")))
	kind, payload, err := e.Read()
	require.NoError(t, err)
	require.Equal(t, uint16(2), kind)
	require.Equal(t, []byte("ok"), payload)
}

func TestUDPEnumerateNothingListening(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := conn.LocalAddr().String()
	require.NoError(t, conn.Close())

	d, err := Resolve("udp", Options{UDPAddress: addr})
	require.NoError(t, err)
	start := time.Now()
	paths, err := d.Enumerate(context.Background())
	require.NoError(t, err)
	require.Empty(t, paths)
	require.Less(t, time.Since(start), 2*time.Second)

	_, err = Open(context.Background(), d, "")
	require.True(t, clierr.Is(err, clierr.CodeConnection))
}

func TestUDPConnectRejectsBadAddress(t *testing.T) {
	d, err := Resolve("udp", Options{})
	require.NoError(t, err)
	_, err = d.Connect(context.Background(), "no-port")
	require.True(t, clierr.Is(err, clierr.CodeConnection))
}

func TestPipeEndpointAndLock(t *testing.T) {
	base := filepath.Join(t.TempDir(), "pipe.trezor")
	var reply bytes.Buffer
	require.NoError(t, writeFramed(&reply, 17, []byte{0x0a, 0x01, 0x41}))
	require.NoError(t, os.WriteFile(base+".to", nil, 0o600))
	require.NoError(t, os.WriteFile(base+".from", reply.Bytes(), 0o600))

	d, err := Resolve("pipe", Options{PipePath: base})
	require.NoError(t, err)
	paths, err := d.Enumerate(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{base}, paths)

	e, err := d.Connect(context.Background(), "")
	require.NoError(t, err)

	_, err = d.Connect(context.Background(), base)
	require.True(t, clierr.Is(err, clierr.CodeConnection), "second connect must fail while locked")

	require.NoError(t, e.Write(0, []byte("init")))
	kind, payload, err := e.Read()
	require.NoError(t, err)
	require.Equal(t, uint16(17), kind)
	require.Equal(t, []byte{0x0a, 0x01, 0x41}, payload)
	require.NoError(t, e.Close())

	written, err := os.ReadFile(base + ".to")
	require.NoError(t, err)
	require.Len(t, written, packetSize)

	again, err := d.Connect(context.Background(), base)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestPipeEnumerateMissing(t *testing.T) {
	d, err := Resolve("pipe", Options{PipePath: filepath.Join(t.TempDir(), "absent")})
	require.NoError(t, err)
	paths, err := d.Enumerate(context.Background())
	require.NoError(t, err)
	require.Empty(t, paths)
}

func TestBridgeSession(t *testing.T) {
	var released bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, bridgeOrigin, r.Header.Get("Origin"))
		switch r.URL.Path {
		case "/enumerate":
			_, _ = w.Write([]byte(`[{"path":"1","session":null,"vendor":4617,"product":21441}]`))
		case "/acquire/1/null":
			_, _ = w.Write([]byte(`{"session":"7"}`))
		case "/call/7":
			body, _ := io.ReadAll(r.Body)
			raw, err := hex.DecodeString(string(body))
			require.NoError(t, err)
			require.Equal(t, encodeBridge(1, []byte("hi")), raw)
			_, _ = w.Write([]byte(hex.EncodeToString(encodeBridge(2, []byte("ok")))))
		case "/release/7":
			released = true
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unknown"}`))
		}
	}))
	defer srv.Close()

	d, err := Resolve("bridge", Options{BridgeURL: srv.URL + "/", HTTP: httpx.New(2 * time.Second)})
	require.NoError(t, err)
	paths, err := d.Enumerate(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, paths)

	e, err := Open(context.Background(), d, "")
	require.NoError(t, err)
	require.NoError(t, e.Write(1, []byte("hi")))
	kind, payload, err := e.Read()
	require.NoError(t, err)
	require.Equal(t, uint16(2), kind)
	require.Equal(t, []byte("ok"), payload)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	require.True(t, released)
}

func TestBridgeUnreachableEnumeratesEmpty(t *testing.T) {
	d, err := Resolve("bridge", Options{BridgeURL: "http://127.0.0.1:1", HTTP: httpx.New(500 * time.Millisecond)})
	require.NoError(t, err)
	paths, err := d.Enumerate(context.Background())
	require.NoError(t, err)
	require.Empty(t, paths)

	_, err = d.Connect(context.Background(), "1")
	require.True(t, clierr.Is(err, clierr.CodeConnection))
}

func TestDecodeBridgeTruncated(t *testing.T) {
	_, _, err := decodeBridge("0002000000ff00")
	require.Error(t, err)
}

type memEndpoint struct {
	kind    uint16
	payload []byte
}

func (m *memEndpoint) Path() string { return "mem" }
func (m *memEndpoint) Write(kind uint16, payload []byte) error {
	m.kind, m.payload = kind, payload
	return nil
}
func (m *memEndpoint) Read() (uint16, []byte, error) { return m.kind + 1, m.payload, nil }
func (m *memEndpoint) Close() error                  { return nil }

func TestTraceLogsWithoutChangingContent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	names := map[uint16]string{0: "Initialize", 1: "Ping"}
	e := Trace(&memEndpoint{}, zap.New(core), func(k uint16) string { return names[k] })

	require.NoError(t, e.Write(0, []byte{0xca, 0xfe}))
	kind, payload, err := e.Read()
	require.NoError(t, err)
	require.Equal(t, uint16(1), kind)
	require.Equal(t, []byte{0xca, 0xfe}, payload)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "sending message", entries[0].Message)
	require.Equal(t, "Initialize", entries[0].ContextMap()["message"])
	require.Equal(t, "cafe", entries[1].ContextMap()["payload"])
}
