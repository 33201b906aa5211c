package version

import "fmt"

var (
	CLIName    = "trezorctl"
	CLIVersion = "0.9.1"
	Commit     = "unknown"
	BuildDate  = "unknown"
)

func Long() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", CLIVersion, Commit, BuildDate)
}
