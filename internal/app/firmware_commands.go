package app

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/firmware"
	"github.com/ggonzalez94/trezorctl/internal/httpx"
	"github.com/ggonzalez94/trezorctl/internal/messages"
	"github.com/ggonzalez94/trezorctl/internal/out"
)

func (s *runtimeState) addFirmwareCommands(root *cobra.Command) {
	root.AddCommand(s.newFirmwareUpdateCommand())
}

func (s *runtimeState) newFirmwareUpdateCommand() *cobra.Command {
	var filename, url, version string
	var skipCheck bool
	cmd := &cobra.Command{
		Use:   "firmware-update",
		Short: "Upload new firmware to device (must be in bootloader mode)",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			if filename != "" && url != "" {
				return nil, clierr.New(clierr.CodeUsage, "use either --filename or --url")
			}
			var data []byte
			var err error
			switch {
			case filename != "":
				data, err = firmware.LoadFile(filename)
			case url != "":
				data, err = httpx.GetBytes(cmd.Context(), s.ctx.http, url)
			default:
				data, err = s.fetchRelease(cmd, version)
			}
			if err != nil {
				return nil, err
			}
			image, err := firmware.Prepare(data, skipCheck)
			if err != nil {
				return nil, err
			}

			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			if !session.Features().GetBootloaderMode() {
				return nil, clierr.New(clierr.CodeUsage, "please switch your device to bootloader mode")
			}
			if err := uploadFirmware(session, image); err != nil {
				return nil, err
			}
			return out.Text("Firmware uploaded"), nil
		}),
	}
	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Firmware image file")
	cmd.Flags().StringVarP(&url, "url", "u", "", "Firmware image URL")
	cmd.Flags().StringVarP(&version, "version", "V", "", "Published firmware version (default latest)")
	cmd.Flags().BoolVarP(&skipCheck, "skip-check", "s", false, "Skip the firmware header check")
	return cmd
}

func (s *runtimeState) fetchRelease(cmd *cobra.Command, version string) ([]byte, error) {
	releases, err := firmware.FetchReleases(cmd.Context(), s.ctx.http, s.settings.ReleasesURL)
	if err != nil {
		return nil, err
	}
	release, err := firmware.SelectRelease(releases, version)
	if err != nil {
		return nil, err
	}
	s.ctx.log.Info("downloading firmware",
		zap.String("version", release.VersionString()),
		zap.String("fingerprint", release.Fingerprint))
	return firmware.Download(cmd.Context(), s.ctx.http, s.settings.FirmwareBase, release)
}

type caller interface {
	Call(req any, results ...any) (int, error)
}

// uploadFirmware erases the flash and streams image. Older bootloaders take
// the whole image at once after Success; newer ones ask for chunks.
func uploadFirmware(c caller, image []byte) error {
	length := uint32(len(image))
	erased := new(trezor.Success)
	request := new(messages.FirmwareRequest)
	idx, err := c.Call(messages.FirmwareErase{Length: &length}, erased, request)
	if err != nil {
		return err
	}
	if idx == 0 {
		_, err := c.Call(messages.FirmwareUpload{Payload: image}, new(trezor.Success))
		return err
	}
	for {
		end := uint64(request.Offset) + uint64(request.Length)
		if end > uint64(len(image)) {
			return clierr.New(clierr.CodeDeviceProtocol,
				fmt.Sprintf("device requested bytes %d-%d of a %d byte image", request.Offset, end, len(image)))
		}
		chunk := image[request.Offset:end]
		done := new(trezor.Success)
		next := new(messages.FirmwareRequest)
		idx, err := c.Call(messages.FirmwareUpload{Payload: chunk}, done, next)
		if err != nil {
			return err
		}
		if idx == 0 {
			return nil
		}
		request = next
	}
}
