package policy

import (
	"testing"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

func TestCheckCommandAllowed(t *testing.T) {
	if err := CheckCommandAllowed(nil, "wipe-device"); err != nil {
		t.Fatalf("unexpected error with empty allowlist: %v", err)
	}
	if err := CheckCommandAllowed([]string{"get-address", " Ethereum-Sign-Tx "}, "ethereum-sign-tx"); err != nil {
		t.Fatalf("expected command to be allowed: %v", err)
	}
	err := CheckCommandAllowed([]string{"get-address"}, "wipe-device")
	if !clierr.Is(err, clierr.CodeBlocked) {
		t.Fatalf("expected blocked error, got %v", err)
	}
}

func TestCheckCommandAllowedRoot(t *testing.T) {
	if err := CheckCommandAllowed([]string{"ping"}, ""); err != nil {
		t.Fatalf("root command should not be blocked: %v", err)
	}
}
