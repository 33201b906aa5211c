package transport

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/httpx"
)

// bridgeOrigin is accepted by the bridge daemon's origin allowlist.
const bridgeOrigin = "https://python.trezor.io"

type bridgeTransport struct {
	baseURL string
	http    *httpx.Client
	log     *zap.Logger
}

type bridgeDevice struct {
	Path    string  `json:"path"`
	Session *string `json:"session"`
	Vendor  int     `json:"vendor"`
	Product int     `json:"product"`
}

func (t *bridgeTransport) Name() string { return "bridge" }

func (t *bridgeTransport) post(ctx context.Context, endpoint string, body string, out any) ([]byte, error) {
	if t.http == nil {
		return nil, clierr.New(clierr.CodeInternal, "bridge transport has no http client")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+endpoint, strings.NewReader(body))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build bridge request", err)
	}
	req.Header.Set("Origin", bridgeOrigin)
	if out != nil {
		_, err := t.http.DoJSON(ctx, req, out)
		return nil, err
	}
	buf, _, err := t.http.Do(ctx, req)
	return buf, err
}

func (t *bridgeTransport) list(ctx context.Context) ([]bridgeDevice, error) {
	var devices []bridgeDevice
	if _, err := t.post(ctx, "/enumerate", "", &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Enumerate reports an unreachable daemon as an empty result.
func (t *bridgeTransport) Enumerate(ctx context.Context) ([]string, error) {
	devices, err := t.list(ctx)
	if err != nil {
		t.log.Debug("bridge enumerate failed", zap.Error(err))
		return []string{}, nil
	}
	paths := make([]string, 0, len(devices))
	for _, d := range devices {
		paths = append(paths, d.Path)
	}
	return paths, nil
}

func (t *bridgeTransport) Connect(ctx context.Context, path string) (Endpoint, error) {
	var acquired struct {
		Session string `json:"session"`
	}
	if _, err := t.post(ctx, "/acquire/"+url.PathEscape(path)+"/null", "", &acquired); err != nil {
		return nil, connectionError("bridge", path, err)
	}
	if acquired.Session == "" {
		return nil, connectionError("bridge", path, errors.New("bridge returned no session"))
	}
	t.log.Debug("acquired bridge session", zap.String("path", path), zap.String("session", acquired.Session))
	return &bridgeEndpoint{ctx: ctx, transport: t, path: path, session: acquired.Session}, nil
}

// bridgeEndpoint buffers one request in Write and performs the call in Read,
// since the daemon answers each request in the same HTTP exchange.
type bridgeEndpoint struct {
	ctx       context.Context
	transport *bridgeTransport
	path      string
	session   string
	pending   []byte
	closed    bool
}

func (e *bridgeEndpoint) Path() string { return e.path }

func (e *bridgeEndpoint) Write(kind uint16, payload []byte) error {
	if e.closed {
		return clierr.New(clierr.CodeConnection, "endpoint is closed")
	}
	if e.pending != nil {
		return clierr.New(clierr.CodeInternal, "bridge request already pending")
	}
	e.pending = encodeBridge(kind, payload)
	return nil
}

func (e *bridgeEndpoint) Read() (uint16, []byte, error) {
	if e.closed {
		return 0, nil, clierr.New(clierr.CodeConnection, "endpoint is closed")
	}
	if e.pending == nil {
		return 0, nil, clierr.New(clierr.CodeInternal, "bridge read without request")
	}
	body := hex.EncodeToString(e.pending)
	e.pending = nil
	reply, err := e.transport.post(e.ctx, "/call/"+url.PathEscape(e.session), body, nil)
	if err != nil {
		return 0, nil, clierr.Wrap(clierr.CodeConnection, "bridge call", err)
	}
	kind, payload, err := decodeBridge(strings.TrimSpace(string(reply)))
	if err != nil {
		return 0, nil, clierr.Wrap(clierr.CodeConnection, "bridge call", err)
	}
	return kind, payload, nil
}

func (e *bridgeEndpoint) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if _, err := e.transport.post(e.ctx, "/release/"+url.PathEscape(e.session), "", nil); err != nil {
		return clierr.Wrap(clierr.CodeConnection, "release bridge session", err)
	}
	return nil
}

func encodeBridge(kind uint16, payload []byte) []byte {
	buf := make([]byte, 6+len(payload))
	binary.BigEndian.PutUint16(buf, kind)
	binary.BigEndian.PutUint32(buf[2:], uint32(len(payload)))
	copy(buf[6:], payload)
	return buf
}

func decodeBridge(text string) (uint16, []byte, error) {
	raw, err := hex.DecodeString(text)
	if err != nil {
		return 0, nil, fmt.Errorf("decode reply hex: %w", err)
	}
	if len(raw) < 6 {
		return 0, nil, errInvalidHeader
	}
	kind := binary.BigEndian.Uint16(raw)
	length := binary.BigEndian.Uint32(raw[2:6])
	if uint32(len(raw)-6) < length {
		return 0, nil, fmt.Errorf("reply truncated: want %d bytes, got %d", length, len(raw)-6)
	}
	return kind, raw[6 : 6+length], nil
}
