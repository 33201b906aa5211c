package app

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
	"github.com/spf13/cobra"
	"github.com/tyler-smith/go-bip39"
	"google.golang.org/protobuf/proto"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/execution"
	"github.com/ggonzalez94/trezorctl/internal/out"
)

// homescreenSize is a 128x64 one-bit bitmap.
const homescreenSize = 1024

func (s *runtimeState) addManagementCommands(root *cobra.Command) {
	root.AddCommand(s.newPingCommand())
	root.AddCommand(s.newGetFeaturesCommand())
	root.AddCommand(s.newGetEntropyCommand())
	root.AddCommand(s.newClearSessionCommand())
	root.AddCommand(s.newChangePinCommand())
	root.AddCommand(s.newPassphraseCommand("enable-passphrase", "Enable passphrase", true))
	root.AddCommand(s.newPassphraseCommand("disable-passphrase", "Disable passphrase", false))
	root.AddCommand(s.newSetLabelCommand())
	root.AddCommand(s.newSetFlagsCommand())
	root.AddCommand(s.newSetHomescreenCommand())
	root.AddCommand(s.newWipeDeviceCommand())
	root.AddCommand(s.newLoadDeviceCommand())
	root.AddCommand(s.newRecoveryDeviceCommand())
	root.AddCommand(s.newResetDeviceCommand())
	root.AddCommand(s.newBackupDeviceCommand())
}

// callSuccess sends req and renders the device's Success message.
func (s *runtimeState) callSuccess(cmd *cobra.Command, req any) (out.Result, error) {
	session, err := s.ctx.Session(cmd.Context())
	if err != nil {
		return nil, err
	}
	res := new(trezor.Success)
	if _, err := session.Call(req, res); err != nil {
		return nil, err
	}
	return out.Text(res.GetMessage()), nil
}

func (s *runtimeState) newPingCommand() *cobra.Command {
	var button, pin, passphrase bool
	cmd := &cobra.Command{
		Use:   "ping MESSAGE",
		Short: "Send ping message",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			return s.callSuccess(cmd, &trezor.Ping{
				Message:              proto.String(args[0]),
				ButtonProtection:     proto.Bool(button),
				PinProtection:        proto.Bool(pin),
				PassphraseProtection: proto.Bool(passphrase),
			})
		}),
	}
	cmd.Flags().BoolVarP(&button, "button-protection", "b", false, "Require a button press")
	cmd.Flags().BoolVarP(&pin, "pin-protection", "P", false, "Require the PIN")
	cmd.Flags().BoolVarP(&passphrase, "passphrase-protection", "r", false, "Require the passphrase")
	return cmd
}

func (s *runtimeState) newGetFeaturesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-features",
		Short: "Retrieve device features and settings",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			return out.FromProto(session.Features()), nil
		}),
	}
}

func (s *runtimeState) newGetEntropyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-entropy SIZE",
		Short: "Get example entropy",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			size, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil || size == 0 {
				return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid entropy size %q", args[0]))
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			res := new(trezor.Entropy)
			if _, err := session.Call(&trezor.GetEntropy{Size: proto.Uint32(uint32(size))}, res); err != nil {
				return nil, err
			}
			return out.Scalar{Value: res.GetEntropy()}, nil
		}),
	}
}

func (s *runtimeState) newClearSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-session",
		Short: "Clear session (remove cached PIN, passphrase, etc.)",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			return s.callSuccess(cmd, &trezor.ClearSession{})
		}),
	}
}

func (s *runtimeState) newChangePinCommand() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "change-pin",
		Short: "Change new PIN or remove existing",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			return s.callSuccess(cmd, &trezor.ChangePin{Remove: proto.Bool(remove)})
		}),
	}
	cmd.Flags().BoolVarP(&remove, "remove", "r", false, "Remove the PIN")
	return cmd
}

func (s *runtimeState) newPassphraseCommand(use, short string, enable bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			return s.callSuccess(cmd, &trezor.ApplySettings{UsePassphrase: proto.Bool(enable)})
		}),
	}
}

func (s *runtimeState) newSetLabelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-label LABEL",
		Short: "Set new device label",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			return s.callSuccess(cmd, &trezor.ApplySettings{Label: proto.String(args[0])})
		}),
	}
}

func (s *runtimeState) newSetFlagsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-flags FLAGS",
		Short: "Set device flags",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			flags, err := strconv.ParseUint(strings.TrimSpace(args[0]), 0, 32)
			if err != nil {
				return nil, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid flags %q", args[0]), err)
			}
			return s.callSuccess(cmd, &trezor.ApplyFlags{Flags: proto.Uint32(uint32(flags))})
		}),
	}
}

func (s *runtimeState) newSetHomescreenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-homescreen FILE|default",
		Short: "Set new homescreen",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			img, err := loadHomescreen(args[0])
			if err != nil {
				return nil, err
			}
			return s.callSuccess(cmd, &trezor.ApplySettings{Homescreen: img})
		}),
	}
}

// loadHomescreen reads a pre-converted bitmap, raw or hex encoded. "default"
// restores the built-in image.
func loadHomescreen(arg string) ([]byte, error) {
	if arg == "default" {
		return []byte{0x00}, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "read homescreen", err)
	}
	if len(data) != homescreenSize {
		decoded, derr := execution.DecodeHex(string(data))
		if derr == nil {
			data = decoded
		}
	}
	if len(data) != homescreenSize {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("homescreen must be %d bytes, got %d", homescreenSize, len(data)))
	}
	return data, nil
}

func (s *runtimeState) newWipeDeviceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wipe-device",
		Short: "Reset device to factory defaults and remove all private data",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			return s.callSuccess(cmd, &trezor.WipeDevice{})
		}),
	}
}

func (s *runtimeState) newLoadDeviceCommand() *cobra.Command {
	var mnemonic, pin, label string
	var passphrase, skipChecksum bool
	cmd := &cobra.Command{
		Use:   "load-device",
		Short: "Load custom configuration to the device",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			words := strings.Join(strings.Fields(mnemonic), " ")
			if words == "" {
				return nil, clierr.New(clierr.CodeUsage, "--mnemonic is required")
			}
			if !skipChecksum && !bip39.IsMnemonicValid(words) {
				return nil, clierr.New(clierr.CodeUsage, "invalid mnemonic checksum, use --skip-checksum to load anyway")
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			if session.Features().GetInitialized() {
				return nil, clierr.New(clierr.CodeUsage, "device is already initialized, call wipe-device first")
			}
			req := &trezor.LoadDevice{
				Mnemonic:             proto.String(words),
				PassphraseProtection: proto.Bool(passphrase),
				SkipChecksum:         proto.Bool(skipChecksum),
			}
			if pin != "" {
				req.Pin = proto.String(pin)
			}
			if label != "" {
				req.Label = proto.String(label)
			}
			res := new(trezor.Success)
			if _, err := session.Call(req, res); err != nil {
				return nil, err
			}
			return out.Text(res.GetMessage()), nil
		}),
	}
	cmd.Flags().StringVarP(&mnemonic, "mnemonic", "m", "", "Mnemonic words")
	cmd.Flags().StringVarP(&pin, "pin", "x", "", "PIN")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Device label")
	cmd.Flags().BoolVarP(&passphrase, "passphrase-protection", "s", false, "Enable passphrase")
	cmd.Flags().BoolVarP(&skipChecksum, "skip-checksum", "i", false, "Skip mnemonic checksum")
	return cmd
}

var wordCounts = map[uint32]bool{12: true, 18: true, 24: true}

func (s *runtimeState) newRecoveryDeviceCommand() *cobra.Command {
	var words uint32
	var label string
	var pin, passphrase bool
	cmd := &cobra.Command{
		Use:   "recovery-device",
		Short: "Start safe recovery workflow",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			if !wordCounts[words] {
				return nil, clierr.New(clierr.CodeUsage, "--words must be 12, 18 or 24")
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			wordlist := make(map[string]bool, 2048)
			for _, w := range bip39.GetWordList() {
				wordlist[w] = true
			}
			var req any = &trezor.RecoveryDevice{
				WordCount:            proto.Uint32(words),
				PassphraseProtection: proto.Bool(passphrase),
				PinProtection:        proto.Bool(pin),
				Label:                proto.String(label),
				EnforceWordlist:      proto.Bool(true),
			}
			for {
				wordReq := new(trezor.WordRequest)
				done := new(trezor.Success)
				idx, err := session.Call(req, wordReq, done)
				if err != nil {
					return nil, err
				}
				if idx == 1 {
					return out.Text(done.GetMessage()), nil
				}
				word, err := s.promptWord(wordlist)
				if err != nil {
					return nil, err
				}
				req = &trezor.WordAck{Word: proto.String(word)}
			}
		}),
	}
	cmd.Flags().Uint32VarP(&words, "words", "w", 24, "Number of mnemonic words (12, 18 or 24)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Device label")
	cmd.Flags().BoolVarP(&pin, "pin-protection", "P", false, "Enable PIN protection")
	cmd.Flags().BoolVarP(&passphrase, "passphrase-protection", "s", false, "Enable passphrase")
	return cmd
}

// promptWord asks until the operator types a word from the BIP-39 list.
func (s *runtimeState) promptWord(wordlist map[string]bool) (string, error) {
	for {
		word, err := s.ctx.console.Prompt("Enter one word of mnemonic")
		if err != nil {
			return "", err
		}
		word = strings.ToLower(strings.TrimSpace(word))
		if wordlist[word] {
			return word, nil
		}
		s.ctx.console.Notify(fmt.Sprintf("%q is not a BIP-39 word, try again.", word))
	}
}

func (s *runtimeState) newResetDeviceCommand() *cobra.Command {
	var strength uint32
	var label string
	var pin, passphrase, displayRandom bool
	cmd := &cobra.Command{
		Use:   "reset-device",
		Short: "Perform device setup and generate new seed",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			if strength != 128 && strength != 192 && strength != 256 {
				return nil, clierr.New(clierr.CodeUsage, "--strength must be 128, 192 or 256")
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			req := &trezor.ResetDevice{
				DisplayRandom:        proto.Bool(displayRandom),
				Strength:             proto.Uint32(strength),
				PassphraseProtection: proto.Bool(passphrase),
				PinProtection:        proto.Bool(pin),
			}
			if label != "" {
				req.Label = proto.String(label)
			}
			if _, err := session.Call(req, new(trezor.EntropyRequest)); err != nil {
				return nil, err
			}
			entropy := make([]byte, 32)
			if _, err := rand.Read(entropy); err != nil {
				return nil, clierr.Wrap(clierr.CodeInternal, "generate host entropy", err)
			}
			res := new(trezor.Success)
			if _, err := session.Call(&trezor.EntropyAck{Entropy: entropy}, res); err != nil {
				return nil, err
			}
			return out.Text(res.GetMessage()), nil
		}),
	}
	cmd.Flags().Uint32VarP(&strength, "strength", "S", 256, "Seed strength in bits")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Device label")
	cmd.Flags().BoolVarP(&pin, "pin-protection", "P", false, "Enable PIN protection")
	cmd.Flags().BoolVarP(&passphrase, "passphrase-protection", "s", false, "Enable passphrase")
	cmd.Flags().BoolVarP(&displayRandom, "display-random", "r", false, "Show internal entropy on the device")
	return cmd
}

func (s *runtimeState) newBackupDeviceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup-device",
		Short: "Perform device seed backup",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			return s.callSuccess(cmd, &trezor.BackupDevice{})
		}),
	}
}
