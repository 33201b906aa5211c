package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/karalabe/hid"
	"go.uber.org/zap"
)

type usbModel struct {
	vendorID  uint16
	productID uint16
	usageID   uint16
	endpoint  int
}

// Legacy HID firmware and WebUSB capable firmware/bootloaders.
var usbModels = []usbModel{
	{vendorID: 0x534c, productID: 0x0001, usageID: 0xff00, endpoint: 0},
	{vendorID: 0x1209, productID: 0x53c1, usageID: 0xffff, endpoint: 0},
}

type usbTransport struct {
	log *zap.Logger
}

func (t *usbTransport) Name() string { return "usb" }

func (t *usbTransport) devices() ([]hid.DeviceInfo, error) {
	if !hid.Supported() {
		return nil, errors.New("usb hid is not supported on this platform")
	}
	var out []hid.DeviceInfo
	for _, model := range usbModels {
		infos, err := hid.Enumerate(model.vendorID, model.productID)
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			// Windows and macOS match on usage page, Linux on interface.
			if info.UsagePage == model.usageID || info.Interface == model.endpoint {
				out = append(out, info)
			}
		}
	}
	return out, nil
}

func (t *usbTransport) Enumerate(ctx context.Context) ([]string, error) {
	infos, err := t.devices()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		paths = append(paths, info.Path)
	}
	return paths, nil
}

func (t *usbTransport) Connect(ctx context.Context, path string) (Endpoint, error) {
	infos, err := t.devices()
	if err != nil {
		return nil, connectionError("usb", path, err)
	}
	for _, info := range infos {
		if info.Path != path {
			continue
		}
		device, err := info.Open()
		if err != nil {
			return nil, connectionError("usb", path, err)
		}
		t.log.Debug("opened usb device",
			zap.String("path", path),
			zap.String("vendor", fmt.Sprintf("%04x", info.VendorID)),
			zap.String("product", fmt.Sprintf("%04x", info.ProductID)))
		return &framedEndpoint{path: path, rw: device, closer: device.Close}, nil
	}
	return nil, connectionError("usb", path, errors.New("device not found"))
}
