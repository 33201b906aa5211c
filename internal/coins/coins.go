// Package coins maps the coin names the device understands onto network
// parameters used for host-side address and key handling.
package coins

import (
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

// Coin is one bitcoin-family network supported by the device firmware.
type Coin struct {
	// Name is the coin_name sent to the device.
	Name   string
	Params *chaincfg.Params
}

var litecoinParams = func() chaincfg.Params {
	p := chaincfg.MainNetParams
	p.Name = "litecoin"
	p.PubKeyHashAddrID = 0x30
	p.ScriptHashAddrID = 0x32
	p.PrivateKeyID = 0xb0
	p.Bech32HRPSegwit = "ltc"
	p.HDPublicKeyID = [4]byte{0x01, 0x9d, 0xa4, 0x62}
	p.HDPrivateKeyID = [4]byte{0x01, 0x9d, 0x9c, 0xfe}
	return p
}()

var dashParams = func() chaincfg.Params {
	p := chaincfg.MainNetParams
	p.Name = "dash"
	p.PubKeyHashAddrID = 0x4c
	p.ScriptHashAddrID = 0x10
	p.PrivateKeyID = 0xcc
	p.Bech32HRPSegwit = ""
	p.HDPublicKeyID = [4]byte{0x02, 0xfe, 0x52, 0xcc}
	p.HDPrivateKeyID = [4]byte{0x02, 0xfe, 0x52, 0xf8}
	return p
}()

var table = map[string]Coin{
	"bitcoin":  {Name: "Bitcoin", Params: &chaincfg.MainNetParams},
	"testnet":  {Name: "Testnet", Params: &chaincfg.TestNet3Params},
	"litecoin": {Name: "Litecoin", Params: &litecoinParams},
	"dash":     {Name: "Dash", Params: &dashParams},
}

// Lookup resolves a coin by case-insensitive name.
func Lookup(name string) (Coin, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "bitcoin"
	}
	if coin, ok := table[key]; ok {
		return coin, nil
	}
	return Coin{}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("unsupported coin %q (supported: %s)", name, strings.Join(Names(), ", ")))
}

// Names lists the supported coins.
func Names() []string {
	out := make([]string, 0, len(table))
	for _, coin := range table {
		out = append(out, coin.Name)
	}
	sort.Strings(out)
	return out
}

// ValidateAddress checks that address belongs to the coin's network.
func (c Coin) ValidateAddress(address string) error {
	addr, err := btcutil.DecodeAddress(address, c.Params)
	if err != nil {
		return clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid %s address %q", c.Name, address), err)
	}
	if !addr.IsForNet(c.Params) {
		return clierr.New(clierr.CodeUsage, fmt.Sprintf("address %q is not a %s address", address, c.Name))
	}
	return nil
}

// Node is the public part of a derived HD node as reported by the device.
type Node struct {
	Depth       uint32
	Fingerprint uint32
	ChildNum    uint32
	ChainCode   []byte
	PublicKey   []byte
}

// ExtendedPublicKey serializes node in the coin's xpub format.
func (c Coin) ExtendedPublicKey(node Node) (string, error) {
	if node.Depth > 255 {
		return "", clierr.New(clierr.CodeDeviceProtocol, fmt.Sprintf("node depth %d out of range", node.Depth))
	}
	parentFP := []byte{
		byte(node.Fingerprint >> 24), byte(node.Fingerprint >> 16),
		byte(node.Fingerprint >> 8), byte(node.Fingerprint),
	}
	key := hdkeychain.NewExtendedKey(c.Params.HDPublicKeyID[:], node.PublicKey, node.ChainCode, parentFP, uint8(node.Depth), node.ChildNum, false)
	return key.String(), nil
}
