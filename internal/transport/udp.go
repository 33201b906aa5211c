package transport

import (
	"bytes"
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

var (
	udpPing = []byte("PINGPING")
	udpPong = []byte("PONGPONG")
)

// livenessTimeout bounds the emulator liveness check so enumerate never blocks.
const livenessTimeout = 100 * time.Millisecond

type udpTransport struct {
	defaultAddr string
	log         *zap.Logger
}

func (t *udpTransport) Name() string { return "udp" }

func (t *udpTransport) address(path string) string {
	if path != "" {
		return path
	}
	return t.defaultAddr
}

func (t *udpTransport) Enumerate(ctx context.Context) ([]string, error) {
	addr := t.address("")
	if addr == "" {
		return []string{}, nil
	}
	if !emulatorAlive(ctx, addr) {
		return []string{}, nil
	}
	return []string{addr}, nil
}

func emulatorAlive(ctx context.Context, addr string) bool {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return false
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(livenessTimeout)); err != nil {
		return false
	}
	if _, err := conn.Write(udpPing); err != nil {
		return false
	}
	buf := make([]byte, packetSize)
	n, err := conn.Read(buf)
	if err != nil {
		return false
	}
	return bytes.Equal(buf[:n], udpPong)
}

func (t *udpTransport) Connect(ctx context.Context, path string) (Endpoint, error) {
	addr := t.address(path)
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, connectionError("udp", addr, err)
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, connectionError("udp", addr, err)
	}
	t.log.Debug("opened udp endpoint", zap.String("address", addr))
	return &framedEndpoint{path: addr, rw: conn, closer: conn.Close}, nil
}
