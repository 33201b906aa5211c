package signer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/protobuf/proto"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

// Caller exchanges one request for one of several results with a device.
type Caller interface {
	Call(req any, results ...any) (int, error)
}

// initialChunkSize is the amount of calldata sent with EthereumSignTx; the
// device asks for the remainder in EthereumTxAck chunks.
const initialChunkSize = 1024

// Device signs with the key at Path on a connected device.
type Device struct {
	Caller Caller
	Path   []uint32

	address *common.Address
}

func NewDevice(caller Caller, path []uint32) *Device {
	return &Device{Caller: caller, Path: path}
}

// Address asks the device for the account address once and caches it.
func (d *Device) Address(ctx context.Context) (common.Address, error) {
	if d.address != nil {
		return *d.address, nil
	}
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	addr, err := GetAddress(d.Caller, d.Path, false)
	if err != nil {
		return common.Address{}, err
	}
	d.address = &addr
	return addr, nil
}

// GetAddress requests an Ethereum address, optionally shown on the screen.
func GetAddress(caller Caller, path []uint32, show bool) (common.Address, error) {
	reply := new(trezor.EthereumAddress)
	if _, err := caller.Call(&trezor.EthereumGetAddress{AddressN: path, ShowDisplay: proto.Bool(show)}, reply); err != nil {
		return common.Address{}, err
	}
	if addr := reply.GetAddressBin(); len(addr) > 0 {
		return common.BytesToAddress(addr), nil
	}
	if addr := reply.GetAddressHex(); len(addr) > 0 {
		return common.HexToAddress(addr), nil
	}
	return common.Address{}, clierr.New(clierr.CodeDeviceProtocol, "device returned an empty address")
}

func (d *Device) SignTx(ctx context.Context, tx TxRequest) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, err
	}
	if tx.ChainID != nil && *tx.ChainID > math.MaxUint32 {
		return Signature{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("chain id %d does not fit in 32 bits", *tx.ChainID))
	}
	data := tx.Data
	request := &trezor.EthereumSignTx{
		AddressN:   d.Path,
		Nonce:      new(big.Int).SetUint64(tx.Nonce).Bytes(),
		GasPrice:   bigBytes(tx.GasPrice),
		GasLimit:   new(big.Int).SetUint64(tx.GasLimit).Bytes(),
		Value:      bigBytes(tx.Value),
		DataLength: proto.Uint32(uint32(len(data))),
	}
	if tx.To != nil {
		hex := tx.To.Hex()
		request.ToHex = &hex
		request.ToBin = tx.To.Bytes()
	}
	if len(data) > initialChunkSize {
		request.DataInitialChunk, data = data[:initialChunkSize], data[initialChunkSize:]
	} else {
		request.DataInitialChunk, data = data, nil
	}
	if tx.ChainID != nil {
		request.ChainId = proto.Uint32(uint32(*tx.ChainID))
	}

	response := new(trezor.EthereumTxRequest)
	if _, err := d.Caller.Call(request, response); err != nil {
		return Signature{}, err
	}
	for response.DataLength != nil && int(response.GetDataLength()) <= len(data) {
		chunk := data[:response.GetDataLength()]
		data = data[response.GetDataLength():]
		response = new(trezor.EthereumTxRequest)
		if _, err := d.Caller.Call(&trezor.EthereumTxAck{DataChunk: chunk}, response); err != nil {
			return Signature{}, err
		}
	}
	if len(response.GetSignatureR()) == 0 || len(response.GetSignatureS()) == 0 || response.GetSignatureV() == 0 {
		return Signature{}, clierr.Wrap(clierr.CodeDeviceProtocol, "sign transaction", errors.New("reply lacks signature"))
	}
	return Signature{
		V: uint64(response.GetSignatureV()),
		R: response.GetSignatureR(),
		S: response.GetSignatureS(),
	}, nil
}

func bigBytes(v *big.Int) []byte {
	if v == nil {
		return nil
	}
	return v.Bytes()
}
