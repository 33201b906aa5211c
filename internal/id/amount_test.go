package id

import (
	"testing"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

func TestParseAmountUnits(t *testing.T) {
	cases := map[string]string{
		"1 ether":     "1000000000000000000",
		"5 gwei":      "5000000000",
		"100":         "100",
		"5 GWEI":      "5000000000",
		"3 wei":       "3",
		"2 finney":    "2000000000000000",
		"1.5 gwei":    "1500000000",
		"1000 tether": "1000000000000000000000000000000000",
		"0 ether":     "0",
	}
	for input, want := range cases {
		got, err := ParseAmount(input)
		if err != nil {
			t.Fatalf("ParseAmount(%q) failed: %v", input, err)
		}
		if got.String() != want {
			t.Fatalf("ParseAmount(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestParseAmountUnrecognizedUnit(t *testing.T) {
	_, err := ParseAmount("5 bogus")
	if err == nil {
		t.Fatal("expected error for unknown unit")
	}
	if !clierr.Is(err, clierr.CodeUnrecognizedUnit) {
		t.Fatalf("expected unrecognized unit error, got %v", err)
	}
}

func TestParseAmountRejectsFractionalWei(t *testing.T) {
	_, err := ParseAmount("0.5 wei")
	if err == nil {
		t.Fatal("expected error for fractional wei")
	}
	if clierr.Is(err, clierr.CodeUnrecognizedUnit) {
		t.Fatalf("fractional wei must not be reported as a unit error: %v", err)
	}
}

func TestParseAmountValidation(t *testing.T) {
	for _, input := range []string{"", "abc", "-1", "-1 ether", "x ether"} {
		if _, err := ParseAmount(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestFormatEther(t *testing.T) {
	v, err := ParseAmount("1.25 ether")
	if err != nil {
		t.Fatalf("ParseAmount failed: %v", err)
	}
	if got := FormatEther(v); got != "1.25" {
		t.Fatalf("unexpected ether format: %s", got)
	}
}
