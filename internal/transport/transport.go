// Package transport moves framed Trezor messages between the host and a
// signing device over one of several interchangeable links.
package transport

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/httpx"
)

// Endpoint is an open duplex message channel to one device.
type Endpoint interface {
	Path() string
	Write(kind uint16, payload []byte) error
	Read() (kind uint16, payload []byte, err error)
	Close() error
}

// Descriptor enumerates and connects devices reachable over one link type.
// Enumerate returns an empty slice, not an error, when nothing is reachable.
type Descriptor interface {
	Name() string
	Enumerate(ctx context.Context) ([]string, error)
	Connect(ctx context.Context, path string) (Endpoint, error)
}

// Options carries the link-specific defaults resolved from configuration.
type Options struct {
	UDPAddress string
	PipePath   string
	BridgeURL  string
	HTTP       *httpx.Client
	Logger     *zap.Logger
}

var names = []string{"usb", "udp", "pipe", "bridge"}

// Names lists the supported transports in a fixed order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Resolve returns the descriptor registered under name.
func Resolve(name string, opts Options) (Descriptor, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "usb":
		return &usbTransport{log: opts.Logger}, nil
	case "udp":
		return &udpTransport{defaultAddr: opts.UDPAddress, log: opts.Logger}, nil
	case "pipe":
		return &pipeTransport{defaultPath: opts.PipePath, log: opts.Logger}, nil
	case "bridge":
		return &bridgeTransport{baseURL: strings.TrimRight(opts.BridgeURL, "/"), http: opts.HTTP, log: opts.Logger}, nil
	default:
		return nil, clierr.New(clierr.CodeUnsupportedTransport, fmt.Sprintf("unsupported transport %q (expected one of %s)", name, strings.Join(names, ", ")))
	}
}

// Open connects to path, or to the first enumerated device when path is empty.
func Open(ctx context.Context, d Descriptor, path string) (Endpoint, error) {
	if path != "" {
		return d.Connect(ctx, path)
	}
	paths, err := d.Enumerate(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConnection, fmt.Sprintf("enumerate %s devices", d.Name()), err)
	}
	if len(paths) == 0 {
		return nil, clierr.New(clierr.CodeConnection, fmt.Sprintf("no %s device found", d.Name()))
	}
	return d.Connect(ctx, paths[0])
}

func connectionError(transport, path string, err error) error {
	return clierr.Wrap(clierr.CodeConnection, fmt.Sprintf("connect %s device %s", transport, path), err)
}
