package app

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/out"
	"github.com/ggonzalez94/trezorctl/internal/schema"
	"github.com/ggonzalez94/trezorctl/internal/transport"
	"github.com/ggonzalez94/trezorctl/internal/version"
)

func (s *runtimeState) newTransportsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transports",
		Short: "List transports",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			items := out.Sequence{}
			for _, name := range transport.Names() {
				items = append(items, name)
			}
			return items, nil
		}),
	}
}

func (s *runtimeState) newListCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connected devices",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			names := []string{s.settings.Transport}
			if all {
				names = transport.Names()
			}
			items := out.Sequence{}
			var errs *multierror.Error
			for _, name := range names {
				d, err := transport.Resolve(name, s.ctx.transportOptions())
				if err != nil {
					return nil, err
				}
				paths, err := d.Enumerate(cmd.Context())
				if err != nil {
					errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				for _, path := range paths {
					if all {
						items = append(items, name+":"+path)
						continue
					}
					items = append(items, path)
				}
			}
			if err := errs.ErrorOrNil(); err != nil {
				if len(items) == 0 {
					return nil, clierr.Wrap(clierr.CodeConnection, "enumerate devices", err)
				}
				s.ctx.log.Warn("some transports failed to enumerate", zap.Error(err))
			}
			return items, nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "Enumerate every transport")
	return cmd
}

func newVersionCommand(s *runtimeState) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version of trezorctl",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			if long {
				return out.Text(version.Long()), nil
			}
			return out.Text(version.CLIVersion), nil
		}),
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command]",
		Short: "Describe commands and their flags",
		Args:  cobra.ArbitraryArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			tree, err := schema.Build(s.root, strings.Join(args, " "))
			if err != nil {
				return nil, clierr.Wrap(clierr.CodeUsage, "build schema", err)
			}
			items := out.Sequence{}
			for _, c := range schema.Flatten(tree) {
				flags := make([]string, 0, len(c.Flags))
				for _, f := range c.Flags {
					flags = append(flags, "--"+f.Name)
				}
				entry := out.Mapping{
					"command": trimRootPath(c.Path),
					"short":   c.Short,
					"device":  c.Device,
					"flags":   flags,
				}
				if c.Args != "" {
					entry["args"] = c.Args
				}
				items = append(items, entry)
			}
			return items, nil
		}),
	}
}
