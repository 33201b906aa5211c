package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/ggonzalez94/trezorctl/internal/config"
	"github.com/ggonzalez94/trezorctl/internal/device"
	"github.com/ggonzalez94/trezorctl/internal/httpx"
	"github.com/ggonzalez94/trezorctl/internal/logger"
	"github.com/ggonzalez94/trezorctl/internal/messages"
	"github.com/ggonzalez94/trezorctl/internal/transport"
	"github.com/ggonzalez94/trezorctl/internal/ui"
)

// Context carries what commands share within one invocation. No device is
// touched until a command asks for a session.
type Context struct {
	settings config.Settings
	log      *zap.Logger
	console  *ui.Console
	http     *httpx.Client
	connect  connectFunc
	session  *device.Session
}

func newContext(settings config.Settings, r *Runner) *Context {
	log := logger.New(r.stderr, settings.Verbose)
	c := &Context{
		settings: settings,
		log:      log,
		console:  ui.NewConsole(r.stdin, r.stderr),
		http:     httpx.New(settings.Timeout),
		connect:  r.connect,
	}
	if c.connect == nil {
		c.connect = c.openEndpoint
	}
	return c
}

func (c *Context) transportOptions() transport.Options {
	return transport.Options{
		UDPAddress: c.settings.UDPAddress,
		PipePath:   c.settings.PipePath,
		BridgeURL:  c.settings.BridgeURL,
		HTTP:       c.http,
		Logger:     c.log,
	}
}

func (c *Context) openEndpoint(ctx context.Context, settings config.Settings) (transport.Endpoint, error) {
	d, err := transport.Resolve(settings.Transport, c.transportOptions())
	if err != nil {
		return nil, err
	}
	return transport.Open(ctx, d, settings.DevicePath)
}

// Session connects and initializes the device on first use. Later calls
// return the same session.
func (c *Context) Session(ctx context.Context) (*device.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	endpoint, err := c.connect(ctx, c.settings)
	if err != nil {
		return nil, err
	}
	if c.settings.Verbose {
		endpoint = transport.Trace(endpoint, c.log, messages.Name)
	}
	c.log.Debug("connected", zap.String("transport", c.settings.Transport), zap.String("path", endpoint.Path()))
	session, err := device.Open(endpoint, c.console, c.log)
	if err != nil {
		_ = endpoint.Close()
		return nil, err
	}
	c.session = session
	return session, nil
}

// Close releases the session if one was opened.
func (c *Context) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}
