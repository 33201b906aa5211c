// Package device drives a request/response conversation with a signing
// device over an open transport endpoint.
package device

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/messages"
	"github.com/ggonzalez94/trezorctl/internal/transport"
)

// ConfirmNotice is shown whenever the device waits for a button press.
const ConfirmNotice = "Please confirm action on your device."

// UI answers the device's interactive requests.
type UI interface {
	Notify(message string)
	PIN(kind string) (string, error)
	Passphrase() (string, error)
}

// Session owns one endpoint for the life of an invocation.
type Session struct {
	endpoint transport.Endpoint
	ui       UI
	log      *zap.Logger
	features *trezor.Features
	closed   bool
}

// Open initializes the device and caches its features.
func Open(endpoint transport.Endpoint, ui UI, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{endpoint: endpoint, ui: ui, log: log}
	if err := s.Initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// Initialize resets the device's conversation state and refreshes the cached
// features.
func (s *Session) Initialize() error {
	features := new(trezor.Features)
	if _, err := s.Call(&trezor.Initialize{}, features); err != nil {
		return err
	}
	s.features = features
	s.log.Debug("device initialized",
		zap.String("vendor", features.GetVendor()),
		zap.String("label", features.GetLabel()),
		zap.String("version", fmt.Sprintf("%d.%d.%d", features.GetMajorVersion(), features.GetMinorVersion(), features.GetPatchVersion())),
		zap.Bool("bootloader", features.GetBootloaderMode()))
	return nil
}

// Features returns the cached features from the last Initialize.
func (s *Session) Features() *trezor.Features {
	return s.features
}

func (s *Session) Path() string {
	return s.endpoint.Path()
}

// Call sends req and waits for one of results, answering button, PIN and
// passphrase requests on the way. It returns the index of the result that
// was filled. Requests and results are generated protobuf messages or
// messages.Request / messages.Response values.
func (s *Session) Call(req any, results ...any) (int, error) {
	if s.closed {
		return -1, clierr.New(clierr.CodeConnection, "session is closed")
	}
	// One notice per call, however many screens the device asks to confirm.
	notified := false
	for {
		kind, payload, err := encode(req)
		if err != nil {
			return -1, clierr.Wrap(clierr.CodeInternal, "encode request", err)
		}
		if err := s.endpoint.Write(kind, payload); err != nil {
			return -1, err
		}
		replyKind, reply, err := s.endpoint.Read()
		if err != nil {
			return -1, err
		}

		switch replyKind {
		case trezor.Type(&trezor.ButtonRequest{}):
			if !notified {
				s.ui.Notify(ConfirmNotice)
				notified = true
			}
			req = &trezor.ButtonAck{}
			continue

		case trezor.Type(&trezor.PinMatrixRequest{}):
			request := new(trezor.PinMatrixRequest)
			if err := proto.Unmarshal(reply, request); err != nil {
				return -1, protocolError("decode pin request", err)
			}
			pin, err := s.ui.PIN(pinKind(request.GetType()))
			if err != nil {
				return -1, clierr.Wrap(clierr.CodeUsage, "read pin", err)
			}
			req = &trezor.PinMatrixAck{Pin: proto.String(pin)}
			continue

		case trezor.Type(&trezor.PassphraseRequest{}):
			request := new(trezor.PassphraseRequest)
			if err := proto.Unmarshal(reply, request); err != nil {
				return -1, protocolError("decode passphrase request", err)
			}
			if request.GetOnDevice() {
				req = &trezor.PassphraseAck{}
				continue
			}
			passphrase, err := s.ui.Passphrase()
			if err != nil {
				return -1, clierr.Wrap(clierr.CodeUsage, "read passphrase", err)
			}
			req = &trezor.PassphraseAck{Passphrase: proto.String(passphrase)}
			continue

		case trezor.Type(&trezor.PassphraseStateRequest{}):
			req = &trezor.PassphraseStateAck{}
			continue

		case trezor.Type(&trezor.Failure{}):
			failure := new(trezor.Failure)
			if err := proto.Unmarshal(reply, failure); err != nil {
				return -1, protocolError("decode failure", err)
			}
			return -1, failureError(failure)
		}

		for i, res := range results {
			if kindOf(res) != replyKind {
				continue
			}
			if err := decode(reply, res); err != nil {
				return -1, protocolError("decode "+messages.Name(replyKind), err)
			}
			return i, nil
		}
		expected := make([]string, len(results))
		for i, res := range results {
			expected[i] = messages.Name(kindOf(res))
		}
		return -1, clierr.New(clierr.CodeDeviceProtocol,
			fmt.Sprintf("unexpected reply %s, expected %s", messages.Name(replyKind), strings.Join(expected, " or ")))
	}
}

// Close releases the endpoint. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.endpoint.Close()
}

func encode(msg any) (uint16, []byte, error) {
	switch m := msg.(type) {
	case messages.Request:
		payload, err := m.Marshal()
		return m.MessageType(), payload, err
	case proto.Message:
		payload, err := proto.Marshal(m)
		return trezor.Type(m), payload, err
	default:
		return 0, nil, fmt.Errorf("unsupported request %T", msg)
	}
}

func kindOf(msg any) uint16 {
	switch m := msg.(type) {
	case messages.Response:
		return m.MessageType()
	case proto.Message:
		return trezor.Type(m)
	default:
		return 0xffff
	}
}

func decode(payload []byte, msg any) error {
	switch m := msg.(type) {
	case messages.Response:
		return m.Unmarshal(payload)
	case proto.Message:
		return proto.Unmarshal(payload, m)
	default:
		return fmt.Errorf("unsupported result %T", msg)
	}
}

func pinKind(t trezor.PinMatrixRequest_PinMatrixRequestType) string {
	switch t {
	case trezor.PinMatrixRequest_PinMatrixRequestType_NewFirst:
		return "new"
	case trezor.PinMatrixRequest_PinMatrixRequestType_NewSecond:
		return "confirm"
	default:
		return "current"
	}
}

func failureError(f *trezor.Failure) error {
	kind := strings.TrimPrefix(f.GetCode().String(), "Failure_")
	return clierr.Wrap(clierr.CodeDeviceProtocol, "device failure", &clierr.DeviceFailure{Kind: kind, Message: f.GetMessage()})
}

func protocolError(msg string, err error) error {
	return clierr.Wrap(clierr.CodeDeviceProtocol, msg, err)
}
