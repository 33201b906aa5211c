package app

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ggonzalez94/trezorctl/internal/config"
	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/out"
	"github.com/ggonzalez94/trezorctl/internal/policy"
	"github.com/ggonzalez94/trezorctl/internal/schema"
	"github.com/ggonzalez94/trezorctl/internal/transport"
	"github.com/ggonzalez94/trezorctl/internal/version"
)

// connectFunc opens the endpoint a session is built on.
type connectFunc func(ctx context.Context, settings config.Settings) (transport.Endpoint, error)

type Runner struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	connect connectFunc
}

func NewRunner() *Runner {
	return NewRunnerWithIO(os.Stdin, os.Stdout, os.Stderr)
}

func NewRunnerWithIO(stdin io.Reader, stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
	loaded   bool
	root     *cobra.Command
	ctx      *Context
	result   out.Result
}

// Run executes one invocation and returns the process exit code. The result
// is rendered on stdout only when the command and the session release both
// succeed; otherwise only the error is written, to stderr.
func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	if state.ctx != nil {
		if cerr := state.ctx.Close(); cerr != nil && err == nil {
			err = clierr.Wrap(clierr.CodeConnection, "release device", cerr)
		}
	}
	err = normalizeRunError(err)
	if err == nil && state.result != nil {
		err = out.Render(r.stdout, state.result, state.outputMode())
	}
	if err == nil {
		return 0
	}
	_ = out.RenderError(r.stderr, err, state.outputMode())
	return clierr.ExitCode(err)
}

func (s *runtimeState) outputMode() string {
	if s.loaded {
		return s.settings.OutputMode
	}
	if s.flags.JSON {
		return out.ModeJSON
	}
	return out.ModeHuman
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Command line client for Trezor hardware wallets",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.loaded = true
			if err := policy.CheckCommandAllowed(settings.EnableCommands, trimRootPath(cmd.CommandPath())); err != nil {
				return err
			}
			s.ctx = newContext(settings, s.runner)
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().StringVarP(&s.flags.Transport, "transport", "t", "", "Transport used for talking with the device (usb, udp, pipe, bridge)")
	cmd.PersistentFlags().StringVarP(&s.flags.Path, "path", "p", "", "Path used by the transport (usually serial port)")
	cmd.PersistentFlags().BoolVarP(&s.flags.Verbose, "verbose", "v", false, "Prints communication to device")
	cmd.PersistentFlags().BoolVarP(&s.flags.JSON, "json", "j", false, "Prints result as json object")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Network request timeout")
	cmd.PersistentFlags().StringVar(&s.flags.EnableCommands, "enable-commands", "", "Comma-separated allowlist of commands that may run")

	cmd.AddCommand(s.newTransportsCommand())
	cmd.AddCommand(s.newListCommand())
	cmd.AddCommand(newVersionCommand(s))
	cmd.AddCommand(s.newSchemaCommand())
	s.addManagementCommands(cmd)
	s.addFirmwareCommands(cmd)
	s.addBitcoinCommands(cmd)
	s.addEthereumCommands(cmd)
	s.addNEMCommands(cmd)
	s.addCosiCommands(cmd)
	markDeviceCommands(cmd)

	return cmd
}

// offlineCommands never open a device session.
var offlineCommands = map[string]bool{
	"transports":              true,
	"list":                    true,
	"version":                 true,
	"schema":                  true,
	"ethereum-verify-message": true,
}

func markDeviceCommands(root *cobra.Command) {
	for _, c := range root.Commands() {
		if offlineCommands[c.Name()] {
			continue
		}
		if c.Annotations == nil {
			c.Annotations = map[string]string{}
		}
		c.Annotations[schema.DeviceAnnotation] = "true"
	}
}

// commandFunc produces the result of one command. It is rendered once by Run.
type commandFunc func(cmd *cobra.Command, args []string) (out.Result, error)

func (s *runtimeState) run(fn commandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		result, err := fn(cmd, args)
		if err != nil {
			return err
		}
		s.result = result
		return nil
	}
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	if errors.Is(err, io.EOF) {
		return clierr.Wrap(clierr.CodeUsage, "input ended early", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}
