package policy

import (
	"strings"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

// CheckCommandAllowed rejects commandPath unless it appears in allowlist. An
// empty allowlist allows everything.
func CheckCommandAllowed(allowlist []string, commandPath string) error {
	if len(allowlist) == 0 {
		return nil
	}
	normPath := normalize(commandPath)
	if normPath == "" {
		return nil
	}
	for _, allowed := range allowlist {
		if normalize(allowed) == normPath {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, "command "+normPath+" blocked by enable_commands policy")
}

func normalize(v string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(v)))
	return strings.Join(parts, " ")
}
