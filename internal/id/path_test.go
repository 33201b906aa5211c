package id

import (
	"reflect"
	"testing"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

func TestParsePathBIP44(t *testing.T) {
	path, err := ParsePath("m/44'/0'/0'/0/0")
	if err != nil {
		t.Fatalf("ParsePath failed: %v", err)
	}
	want := Path{{44, true}, {0, true}, {0, true}, {0, false}, {0, false}}
	if !reflect.DeepEqual(path, want) {
		t.Fatalf("unexpected path: %#v", path)
	}
	wire := path.Uint32s()
	if wire[0] != 44+HardenedOffset || wire[3] != 0 {
		t.Fatalf("unexpected wire encoding: %v", wire)
	}
	if path.String() != "m/44'/0'/0'/0/0" {
		t.Fatalf("unexpected round trip: %s", path.String())
	}
}

func TestParsePathVariants(t *testing.T) {
	path, err := ParsePath("m/0")
	if err != nil {
		t.Fatalf("ParsePath(m/0) failed: %v", err)
	}
	if !reflect.DeepEqual(path, Path{{0, false}}) {
		t.Fatalf("unexpected path: %#v", path)
	}

	path, err = ParsePath("44h/60H/0")
	if err != nil {
		t.Fatalf("ParsePath without prefix failed: %v", err)
	}
	if !reflect.DeepEqual(path, Path{{44, true}, {60, true}, {0, false}}) {
		t.Fatalf("unexpected path: %#v", path)
	}

	path, err = ParsePath("m/2147483647'")
	if err != nil {
		t.Fatalf("ParsePath at max index failed: %v", err)
	}
	if path.Uint32s()[0] != 0xffffffff {
		t.Fatalf("unexpected max encoding: %x", path.Uint32s()[0])
	}
}

func TestParsePathMalformed(t *testing.T) {
	for _, input := range []string{"", "m", "m/abc", "m/1//2", "m/2147483648", "m/-1", "m/1''", "m/0x10"} {
		_, err := ParsePath(input)
		if err == nil {
			t.Fatalf("expected error for %q", input)
		}
		if !clierr.Is(err, clierr.CodeMalformedPath) {
			t.Fatalf("expected malformed path for %q, got %v", input, err)
		}
	}
}

func TestParseOptionalPathMaster(t *testing.T) {
	path, err := ParseOptionalPath("m")
	if err != nil {
		t.Fatalf("ParseOptionalPath(m) failed: %v", err)
	}
	if len(path) != 0 {
		t.Fatalf("expected master path, got %#v", path)
	}
}
