package schema

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// DeviceAnnotation marks commands that open a device session.
const DeviceAnnotation = "trezorctl/device"

type CommandSchema struct {
	Path        string          `json:"path"`
	Use         string          `json:"use"`
	Args        string          `json:"args,omitempty"`
	Short       string          `json:"short"`
	Device      bool            `json:"device"`
	Aliases     []string        `json:"aliases,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

type FlagSchema struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
}

// Build describes the command at commandPath below root, or root itself when
// commandPath is empty.
func Build(root *cobra.Command, commandPath string) (CommandSchema, error) {
	cmd := root
	if strings.TrimSpace(commandPath) != "" {
		parts := strings.Fields(strings.TrimSpace(commandPath))
		for _, p := range parts {
			found := false
			for _, c := range cmd.Commands() {
				if c.Name() == p || contains(c.Aliases, p) {
					cmd = c
					found = true
					break
				}
			}
			if !found {
				return CommandSchema{}, fmt.Errorf("command not found: %s", commandPath)
			}
		}
	}
	return serialize(cmd), nil
}

func serialize(cmd *cobra.Command) CommandSchema {
	s := CommandSchema{
		Path:    strings.TrimSpace(cmd.CommandPath()),
		Use:     cmd.Use,
		Short:   cmd.Short,
		Device:  cmd.Annotations[DeviceAnnotation] == "true",
		Aliases: cmd.Aliases,
		Flags:   collectFlags(cmd),
	}
	if fields := strings.Fields(cmd.Use); len(fields) > 1 {
		s.Args = strings.Join(fields[1:], " ")
	}

	subs := cmd.Commands()
	for _, sub := range subs {
		if sub.Hidden {
			continue
		}
		s.Subcommands = append(s.Subcommands, serialize(sub))
	}

	return s
}

// collectFlags lists the command's own flags. Required flags are marked in
// the usage text the way cobra reports them.
func collectFlags(cmd *cobra.Command) []FlagSchema {
	items := []FlagSchema{}
	cmd.NonInheritedFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		usage := f.Usage
		if _, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; ok {
			usage += " (required)"
		}
		item := FlagSchema{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Type:      f.Value.Type(),
			Usage:     usage,
			Default:   f.DefValue,
		}
		items = append(items, item)
	})
	return items
}

// Flatten lists cmd and every visible descendant, depth first.
func Flatten(cmd CommandSchema) []CommandSchema {
	items := []CommandSchema{cmd}
	for _, sub := range cmd.Subcommands {
		items = append(items, Flatten(sub)...)
	}
	return items
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
