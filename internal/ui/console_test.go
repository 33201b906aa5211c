package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestPromptLinesStopsAtEmptyLine(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("a\nb\n\nc\n"), &out)
	var got []string
	if err := c.PromptLines("Input", func(line string) error {
		got = append(got, line)
		return nil
	}); err != nil {
		t.Fatalf("PromptLines failed: %v", err)
	}
	if strings.Join(got, ",") != "a,b" {
		t.Fatalf("unexpected lines: %v", got)
	}
	next, err := c.Prompt("Next")
	if err != nil || next != "c" {
		t.Fatalf("expected remaining input, got %q (%v)", next, err)
	}
}

func TestPINValidation(t *testing.T) {
	c := NewConsole(strings.NewReader("1593\n"), &bytes.Buffer{})
	pin, err := c.PIN("current")
	if err != nil || pin != "1593" {
		t.Fatalf("unexpected pin %q (%v)", pin, err)
	}

	c = NewConsole(strings.NewReader("12a\n"), &bytes.Buffer{})
	if _, err := c.PIN("new"); err == nil {
		t.Fatal("expected error for non-keypad pin")
	}
}

func TestPassphraseMismatch(t *testing.T) {
	c := NewConsole(strings.NewReader("one\ntwo\n"), &bytes.Buffer{})
	if _, err := c.Passphrase(); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestNotifyPrintsEachNotice(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out)
	c.Notify("confirm")
	c.Notify("confirm")
	if out.String() != "confirm\nconfirm\n" {
		t.Fatalf("unexpected notices: %q", out.String())
	}
}

func TestConfirm(t *testing.T) {
	c := NewConsole(strings.NewReader("YES\nno\n"), &bytes.Buffer{})
	if ok, _ := c.Confirm("Continue?"); !ok {
		t.Fatal("expected yes")
	}
	if ok, _ := c.Confirm("Continue?"); ok {
		t.Fatal("expected no")
	}
}
