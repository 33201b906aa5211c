package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

type pipeTransport struct {
	defaultPath string
	log         *zap.Logger
}

func (t *pipeTransport) Name() string { return "pipe" }

func (t *pipeTransport) base(path string) string {
	if path != "" {
		return path
	}
	return t.defaultPath
}

func (t *pipeTransport) Enumerate(ctx context.Context) ([]string, error) {
	base := t.base("")
	if base == "" {
		return []string{}, nil
	}
	if _, err := os.Stat(base + ".to"); err != nil {
		return []string{}, nil
	}
	return []string{base}, nil
}

// pipeStream writes requests to <base>.to and reads replies from <base>.from.
type pipeStream struct {
	to   *os.File
	from *os.File
}

func (p *pipeStream) Write(b []byte) (int, error) { return p.to.Write(b) }
func (p *pipeStream) Read(b []byte) (int, error)  { return p.from.Read(b) }

func (t *pipeTransport) Connect(ctx context.Context, path string) (Endpoint, error) {
	base := t.base(path)
	if base == "" {
		return nil, connectionError("pipe", base, errors.New("pipe path is empty"))
	}
	lock := flock.New(base + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, connectionError("pipe", base, err)
	}
	if !locked {
		return nil, connectionError("pipe", base, fmt.Errorf("%s.lock is held by another process", base))
	}

	to, err := os.OpenFile(base+".to", os.O_WRONLY, 0)
	if err != nil {
		_ = lock.Unlock()
		return nil, connectionError("pipe", base, err)
	}
	from, err := os.OpenFile(base+".from", os.O_RDONLY, 0)
	if err != nil {
		_ = to.Close()
		_ = lock.Unlock()
		return nil, connectionError("pipe", base, err)
	}
	t.log.Debug("opened pipe endpoint", zap.String("path", base), zap.String("lock", lock.Path()))

	stream := &pipeStream{to: to, from: from}
	closer := func() error {
		var result *multierror.Error
		result = multierror.Append(result, to.Close(), from.Close(), lock.Unlock())
		return result.ErrorOrNil()
	}
	return &framedEndpoint{path: base, rw: stream, closer: closer}, nil
}

var _ io.ReadWriter = (*pipeStream)(nil)
