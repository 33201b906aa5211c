package out

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

type bogusResult struct{}

func (bogusResult) isResult() {}

func TestRenderHumanMappingFlattensNested(t *testing.T) {
	result := Mapping{"a": Mapping{"b": 1}, "z": "last"}
	var first, second bytes.Buffer
	if err := Render(&first, result, ModeHuman); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if err := Render(&second, result, ModeHuman); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if first.String() != "a.b: 1\nz: last\n" {
		t.Fatalf("unexpected output: %q", first.String())
	}
	if first.String() != second.String() {
		t.Fatalf("render is not deterministic: %q vs %q", first.String(), second.String())
	}
}

func TestRenderJSONMappingKeepsNesting(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Mapping{"a": Mapping{"b": 1}}, ModeJSON); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var decoded map[string]map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if decoded["a"]["b"] != 1 {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "\n  \"a\"") {
		t.Fatalf("expected two-space indent: %s", buf.String())
	}
}

func TestRenderMessageHuman(t *testing.T) {
	msg := Message{Name: "PublicKey", Fields: []Field{
		{Name: "node", Value: Message{Name: "HDNodeType", Fields: []Field{{Name: "depth", Value: uint64(3)}}}},
		{Name: "xpub", Value: "xpub6"},
		{Name: "chain_code", Value: []byte{0xde, 0xad}},
	}}
	var buf bytes.Buffer
	if err := Render(&buf, msg, ModeHuman); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "PublicKey\n    node: HDNodeType\n        depth: 3\n    xpub: xpub6\n    chain_code: dead\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestRenderMessageJSONOrder(t *testing.T) {
	msg := Message{Name: "Address", Fields: []Field{
		{Name: "zeta", Value: true},
		{Name: "address", Value: "1abc"},
		{Name: "raw", Value: []byte{0x01}},
	}}
	var buf bytes.Buffer
	if err := Render(&buf, msg, ModeJSON); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "zeta") > strings.Index(out, "address") {
		t.Fatalf("field order lost: %s", out)
	}
	if !strings.Contains(out, `"raw": "01"`) {
		t.Fatalf("bytes not hex encoded: %s", out)
	}
}

func TestRenderSequenceAndScalar(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Sequence{"usb:1", map[string]any{"path": "x", "name": "bridge"}}, ModeHuman); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.String() != "usb:1\nname=bridge path=x\n" {
		t.Fatalf("unexpected sequence output: %q", buf.String())
	}

	buf.Reset()
	if err := Render(&buf, Text("pong"), ModeHuman); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.String() != "pong\n" {
		t.Fatalf("unexpected scalar output: %q", buf.String())
	}

	buf.Reset()
	if err := Render(&buf, Scalar{Value: []byte{0xca, 0xfe}}, ModeJSON); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.String() != "\"cafe\"\n" {
		t.Fatalf("unexpected json scalar: %q", buf.String())
	}
}

func TestRenderUnknownVariantIsInternal(t *testing.T) {
	err := Render(&bytes.Buffer{}, bogusResult{}, ModeHuman)
	if !clierr.Is(err, clierr.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestRenderErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	err := clierr.Wrap(clierr.CodeConnection, "open usb device", errors.New("busy"))
	if rerr := RenderError(&buf, err, ModeJSON); rerr != nil {
		t.Fatalf("RenderError failed: %v", rerr)
	}
	var decoded struct {
		Error struct {
			Code int    `json:"code"`
			Type string `json:"type"`
		} `json:"error"`
	}
	if jerr := json.Unmarshal(buf.Bytes(), &decoded); jerr != nil {
		t.Fatalf("json decode failed: %v", jerr)
	}
	if decoded.Error.Code != int(clierr.CodeConnection) || decoded.Error.Type != "connection_failure" {
		t.Fatalf("unexpected error body: %s", buf.String())
	}
}
