package id

import (
	"fmt"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

// HardenedOffset is added to a hardened index when building the wire path.
const HardenedOffset uint32 = 0x80000000

// PathComponent is one derivation step. Index is always below 2^31; the
// hardening flag is kept separate so callers decide how to encode it.
type PathComponent struct {
	Index    uint32 `json:"index"`
	Hardened bool   `json:"hardened"`
}

// Path is an ordered BIP-32 derivation path.
type Path []PathComponent

// Uint32s encodes the path the way the device expects it.
func (p Path) Uint32s() []uint32 {
	out := make([]uint32, len(p))
	for i, c := range p {
		out[i] = c.Index
		if c.Hardened {
			out[i] += HardenedOffset
		}
	}
	return out
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, c := range p {
		b.WriteString("/")
		b.WriteString(strconv.FormatUint(uint64(c.Index), 10))
		if c.Hardened {
			b.WriteString("'")
		}
	}
	return b.String()
}

// ParsePath parses text like m/44'/0'/0'/0/0. At least one segment is required.
func ParsePath(text string) (Path, error) {
	path, err := ParseOptionalPath(text)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, clierr.New(clierr.CodeMalformedPath, fmt.Sprintf("derivation path %q is empty", text))
	}
	return path, nil
}

// ParseOptionalPath accepts the bare master path "m" (and "") as an empty path.
func ParseOptionalPath(text string) (Path, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return Path{}, nil
	}
	segments := strings.Split(clean, "/")
	if strings.EqualFold(segments[0], "m") {
		segments = segments[1:]
	}
	out := make(Path, 0, len(segments))
	for _, seg := range segments {
		comp, err := parseSegment(seg)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeMalformedPath, fmt.Sprintf("invalid derivation path %q", text), err)
		}
		out = append(out, comp)
	}
	return out, nil
}

func parseSegment(seg string) (PathComponent, error) {
	hardened := false
	if n := len(seg); n > 0 {
		switch seg[n-1] {
		case '\'', 'h', 'H':
			hardened = true
			seg = seg[:n-1]
		}
	}
	if seg == "" {
		return PathComponent{}, fmt.Errorf("empty segment")
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return PathComponent{}, fmt.Errorf("segment %q is not numeric", seg)
		}
	}
	v, err := strconv.ParseUint(seg, 10, 32)
	if err != nil || v >= uint64(HardenedOffset) {
		return PathComponent{}, fmt.Errorf("index %s out of range", seg)
	}
	return PathComponent{Index: uint32(v), Hardened: hardened}, nil
}
