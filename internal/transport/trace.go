package transport

import (
	"encoding/hex"

	"go.uber.org/zap"
)

// Namer maps a wire message type to a readable name for trace output.
type Namer func(kind uint16) string

type traceEndpoint struct {
	inner Endpoint
	name  Namer
	log   *zap.Logger
}

// Trace wraps e so every message in both directions is logged at debug
// level. Payloads pass through unchanged.
func Trace(e Endpoint, log *zap.Logger, name Namer) Endpoint {
	if name == nil {
		name = func(uint16) string { return "" }
	}
	return &traceEndpoint{inner: e, name: name, log: log.With(zap.String("path", e.Path()))}
}

func (t *traceEndpoint) Path() string { return t.inner.Path() }

func (t *traceEndpoint) Write(kind uint16, payload []byte) error {
	t.log.Debug("sending message",
		zap.Uint16("type", kind),
		zap.String("message", t.name(kind)),
		zap.Int("bytes", len(payload)),
		zap.String("payload", hex.EncodeToString(payload)))
	return t.inner.Write(kind, payload)
}

func (t *traceEndpoint) Read() (uint16, []byte, error) {
	kind, payload, err := t.inner.Read()
	if err != nil {
		t.log.Debug("receive failed", zap.Error(err))
		return kind, payload, err
	}
	t.log.Debug("received message",
		zap.Uint16("type", kind),
		zap.String("message", t.name(kind)),
		zap.Int("bytes", len(payload)),
		zap.String("payload", hex.EncodeToString(payload)))
	return kind, payload, nil
}

func (t *traceEndpoint) Close() error {
	t.log.Debug("closing endpoint")
	return t.inner.Close()
}
