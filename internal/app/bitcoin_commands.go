package app

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
	"github.com/spf13/cobra"

	"github.com/ggonzalez94/trezorctl/internal/coins"
	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/execution"
	"github.com/ggonzalez94/trezorctl/internal/id"
	"github.com/ggonzalez94/trezorctl/internal/messages"
	"github.com/ggonzalez94/trezorctl/internal/out"
	"github.com/ggonzalez94/trezorctl/internal/txapi"
)

const defaultSequence = 0xffffffff

func (s *runtimeState) addBitcoinCommands(root *cobra.Command) {
	root.AddCommand(s.newGetAddressCommand())
	root.AddCommand(s.newGetPublicNodeCommand())
	root.AddCommand(s.newSignTxCommand())
	root.AddCommand(s.newSignMessageCommand())
	root.AddCommand(s.newVerifyMessageCommand())
	root.AddCommand(s.newKeyValueCommand("encrypt-keyvalue", "Encrypt value by given key and path", true))
	root.AddCommand(s.newKeyValueCommand("decrypt-keyvalue", "Decrypt value by given key and path", false))
	root.AddCommand(s.newEncryptMessageCommand())
	root.AddCommand(s.newDecryptMessageCommand())
}

func parseAddressN(text string) ([]uint32, error) {
	path, err := id.ParsePath(text)
	if err != nil {
		return nil, err
	}
	return path.Uint32s(), nil
}

func addressFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "address", "n", "", "BIP-32 path, e.g. m/44'/0'/0'/0/0")
	_ = cmd.MarkFlagRequired("address")
}

func coinFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "coin", "c", "Bitcoin", "Coin name")
}

func (s *runtimeState) newGetAddressCommand() *cobra.Command {
	var coinName, address, scriptType string
	var show bool
	cmd := &cobra.Command{
		Use:   "get-address",
		Short: "Get address for specified path",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			coin, err := coins.Lookup(coinName)
			if err != nil {
				return nil, err
			}
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			script, ok := messages.ParseInputScriptType(scriptType)
			if !ok {
				return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown script type %q (supported: %s)",
					scriptType, strings.Join(messages.InputScriptTypeNames(), ", ")))
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			res := new(messages.Address)
			req := messages.GetAddress{AddressN: addressN, CoinName: coin.Name, ShowDisplay: show, ScriptType: script}
			if _, err := session.Call(req, res); err != nil {
				return nil, err
			}
			return out.Text(res.Address), nil
		}),
	}
	coinFlag(cmd, &coinName)
	addressFlag(cmd, &address)
	cmd.Flags().StringVarP(&scriptType, "script-type", "s", "address", "Script type ("+strings.Join(messages.InputScriptTypeNames(), ", ")+")")
	cmd.Flags().BoolVarP(&show, "show-display", "d", false, "Show the address on the device")
	return cmd
}

func (s *runtimeState) newGetPublicNodeCommand() *cobra.Command {
	var coinName, address, curve string
	var show bool
	cmd := &cobra.Command{
		Use:   "get-public-node",
		Short: "Get public node of given path",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			coin, err := coins.Lookup(coinName)
			if err != nil {
				return nil, err
			}
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			res := new(messages.PublicKey)
			req := messages.GetPublicKey{AddressN: addressN, ECDSACurveName: curve, ShowDisplay: show, CoinName: coin.Name}
			if _, err := session.Call(req, res); err != nil {
				return nil, err
			}
			if res.Node == nil {
				return nil, clierr.New(clierr.CodeDeviceProtocol, "device returned no node")
			}
			node := coins.Node{
				Depth:       res.Node.GetDepth(),
				Fingerprint: res.Node.GetFingerprint(),
				ChildNum:    res.Node.GetChildNum(),
				ChainCode:   res.Node.GetChainCode(),
				PublicKey:   res.Node.GetPublicKey(),
			}
			xpub := res.XPub
			if xpub == "" && (curve == "" || curve == "secp256k1") {
				if xpub, err = coin.ExtendedPublicKey(node); err != nil {
					return nil, err
				}
			}
			return out.Mapping{
				"node": out.Mapping{
					"depth":       node.Depth,
					"fingerprint": fmt.Sprintf("%08x", node.Fingerprint),
					"child_num":   node.ChildNum,
					"chain_code":  node.ChainCode,
					"public_key":  node.PublicKey,
				},
				"xpub": xpub,
			}, nil
		}),
	}
	coinFlag(cmd, &coinName)
	addressFlag(cmd, &address)
	cmd.Flags().StringVarP(&curve, "curve", "e", "", "ECDSA curve name")
	cmd.Flags().BoolVarP(&show, "show-display", "d", false, "Show the node on the device")
	return cmd
}

func (s *runtimeState) newSignTxCommand() *cobra.Command {
	var coinName, txAPI string
	cmd := &cobra.Command{
		Use:   "sign-tx",
		Short: "Sign transaction",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			coin, err := coins.Lookup(coinName)
			if err != nil {
				return nil, err
			}
			if txAPI == "" {
				var ok bool
				if txAPI, ok = s.settings.TxAPI(coin.Name); !ok {
					return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("no transaction API configured for %s, use --tx-api", coin.Name))
				}
			}
			insight := txapi.NewInsight(s.ctx.http, txAPI)
			tx, err := s.promptTransaction(cmd, coin, insight)
			if err != nil {
				return nil, err
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			signed, err := signBitcoinTx(cmd.Context(), session, tx, insight)
			if err != nil {
				return nil, clierr.Rejected(err)
			}
			sigs := make([]any, len(signed.Signatures))
			for i, sig := range signed.Signatures {
				sigs[i] = hex.EncodeToString(sig)
			}
			return out.Mapping{
				"signatures":    sigs,
				"serialized_tx": hex.EncodeToString(signed.Serialized),
			}, nil
		}),
	}
	coinFlag(cmd, &coinName)
	cmd.Flags().StringVar(&txAPI, "tx-api", "", "Insight API used to fetch previous transactions")
	return cmd
}

// promptTransaction reads inputs and outputs until an empty line ends each
// list.
func (s *runtimeState) promptTransaction(cmd *cobra.Command, coin coins.Coin, insight *txapi.Insight) (unsignedTx, error) {
	console := s.ctx.console
	tx := unsignedTx{CoinName: coin.Name}
	err := console.PromptLines("Previous output to spend (txid:vout)", func(line string) error {
		txid, voutText, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			return clierr.New(clierr.CodeUsage, fmt.Sprintf("expected txid:vout, got %q", line))
		}
		vout, err := strconv.ParseUint(voutText, 10, 32)
		if err != nil {
			return clierr.Wrap(clierr.CodeUsage, "invalid output index", err)
		}
		prev, err := insight.Fetch(cmd.Context(), txid)
		if err != nil {
			return err
		}
		if vout >= uint64(len(prev.TxOut)) {
			return clierr.New(clierr.CodeUsage, fmt.Sprintf("transaction %s has no output %d", txid, vout))
		}
		pathText, err := console.Prompt("BIP-32 path to derive the key")
		if err != nil {
			return err
		}
		addressN, err := parseAddressN(pathText)
		if err != nil {
			return err
		}
		typeText, err := console.Prompt("Input type (" + strings.Join(messages.InputScriptTypeNames(), ", ") + ") [address]")
		if err != nil {
			return err
		}
		if typeText == "" {
			typeText = "address"
		}
		script, ok := messages.ParseInputScriptType(typeText)
		if !ok {
			return clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown script type %q", typeText))
		}
		amount := uint64(prev.TxOut[vout].Value)
		tx.Inputs = append(tx.Inputs, messages.TxInput{
			AddressN:   addressN,
			PrevHash:   txapi.WireHash(prev.TxHash()),
			PrevIndex:  uint32(vout),
			Sequence:   defaultSequence,
			ScriptType: script,
			Amount:     &amount,
		})
		return nil
	})
	if err != nil {
		return unsignedTx{}, err
	}
	err = console.PromptLines("Destination address", func(line string) error {
		address := strings.TrimSpace(line)
		if err := coin.ValidateAddress(address); err != nil {
			return err
		}
		amountText, err := console.Prompt("Amount to spend (satoshis)")
		if err != nil {
			return err
		}
		amount, err := strconv.ParseUint(strings.TrimSpace(amountText), 10, 64)
		if err != nil {
			return clierr.Wrap(clierr.CodeUsage, "invalid amount", err)
		}
		tx.Outputs = append(tx.Outputs, messages.TxOutput{Address: address, Amount: amount, ScriptType: messages.PayToAddress})
		return nil
	})
	if err != nil {
		return unsignedTx{}, err
	}
	if len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
		return unsignedTx{}, clierr.New(clierr.CodeUsage, "a transaction needs at least one input and one output")
	}
	if tx.Version, err = promptUint32(s, "Transaction version", 2); err != nil {
		return unsignedTx{}, err
	}
	if tx.LockTime, err = promptUint32(s, "Transaction locktime", 0); err != nil {
		return unsignedTx{}, err
	}
	return tx, nil
}

func promptUint32(s *runtimeState, label string, def uint32) (uint32, error) {
	text, err := s.ctx.console.Prompt(fmt.Sprintf("%s [%d]", label, def))
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 32)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeUsage, "invalid "+strings.ToLower(label), err)
	}
	return uint32(v), nil
}

func (s *runtimeState) newSignMessageCommand() *cobra.Command {
	var coinName, address string
	cmd := &cobra.Command{
		Use:   "sign-message MESSAGE",
		Short: "Sign message using address of given path",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			coin, err := coins.Lookup(coinName)
			if err != nil {
				return nil, err
			}
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			res := new(messages.MessageSignature)
			req := messages.SignMessage{AddressN: addressN, Message: []byte(args[0]), CoinName: coin.Name}
			if _, err := session.Call(req, res); err != nil {
				return nil, clierr.Rejected(err)
			}
			return out.Mapping{
				"message":   args[0],
				"address":   res.Address,
				"signature": base64.StdEncoding.EncodeToString(res.Signature),
			}, nil
		}),
	}
	coinFlag(cmd, &coinName)
	addressFlag(cmd, &address)
	return cmd
}

func (s *runtimeState) newVerifyMessageCommand() *cobra.Command {
	var coinName string
	cmd := &cobra.Command{
		Use:   "verify-message ADDRESS SIGNATURE MESSAGE",
		Short: "Verify message",
		Args:  cobra.ExactArgs(3),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			coin, err := coins.Lookup(coinName)
			if err != nil {
				return nil, err
			}
			if err := coin.ValidateAddress(args[0]); err != nil {
				return nil, err
			}
			sig, err := base64.StdEncoding.DecodeString(args[1])
			if err != nil {
				return nil, clierr.Wrap(clierr.CodeUsage, "signature must be base64", err)
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			req := messages.VerifyMessage{Address: args[0], Signature: sig, Message: []byte(args[2]), CoinName: coin.Name}
			if _, err := session.Call(req, new(trezor.Success)); err != nil {
				var failure *clierr.DeviceFailure
				if errors.As(err, &failure) && failure.Kind == "DataError" {
					return out.Scalar{Value: false}, nil
				}
				return nil, err
			}
			return out.Scalar{Value: true}, nil
		}),
	}
	coinFlag(cmd, &coinName)
	return cmd
}

// cipherBlock is the value size granularity of CipherKeyValue.
const cipherBlock = 16

func (s *runtimeState) newKeyValueCommand(use, short string, encrypt bool) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   use + " KEY VALUE",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			value, err := execution.DecodeHex(args[1])
			if err != nil {
				return nil, clierr.Wrap(clierr.CodeUsage, "value must be hex", err)
			}
			if len(value) == 0 || len(value)%cipherBlock != 0 {
				return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("value length must be a multiple of %d bytes", cipherBlock))
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			res := new(messages.CipheredKeyValue)
			req := messages.CipherKeyValue{
				AddressN:     addressN,
				Key:          args[0],
				Value:        value,
				Encrypt:      encrypt,
				AskOnEncrypt: true,
				AskOnDecrypt: true,
			}
			if _, err := session.Call(req, res); err != nil {
				return nil, err
			}
			return out.Scalar{Value: res.Value}, nil
		}),
	}
	addressFlag(cmd, &address)
	return cmd
}

func (s *runtimeState) newEncryptMessageCommand() *cobra.Command {
	var coinName, address string
	var displayOnly bool
	cmd := &cobra.Command{
		Use:   "encrypt-message PUBKEY MESSAGE",
		Short: "Encrypt message",
		Args:  cobra.ExactArgs(2),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			coin, err := coins.Lookup(coinName)
			if err != nil {
				return nil, err
			}
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			pubkey, err := hex.DecodeString(args[0])
			if err != nil {
				return nil, clierr.Wrap(clierr.CodeUsage, "public key must be hex", err)
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			res := new(messages.EncryptedMessage)
			req := messages.EncryptMessage{PubKey: pubkey, Message: []byte(args[1]), DisplayOnly: displayOnly, AddressN: addressN, CoinName: coin.Name}
			if _, err := session.Call(req, res); err != nil {
				return nil, err
			}
			return out.Mapping{
				"nonce":   res.Nonce,
				"message": res.Message,
				"hmac":    res.HMAC,
				"payload": strings.Join([]string{hex.EncodeToString(res.Nonce), hex.EncodeToString(res.Message), hex.EncodeToString(res.HMAC)}, ":"),
			}, nil
		}),
	}
	coinFlag(cmd, &coinName)
	addressFlag(cmd, &address)
	cmd.Flags().BoolVarP(&displayOnly, "display-only", "d", false, "Only show the message on the device")
	return cmd
}

func (s *runtimeState) newDecryptMessageCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "decrypt-message PAYLOAD",
		Short: "Decrypt message (PAYLOAD is nonce:message:hmac in hex)",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			parts := strings.Split(args[0], ":")
			if len(parts) != 3 {
				return nil, clierr.New(clierr.CodeUsage, "payload must be nonce:message:hmac")
			}
			decoded := make([][]byte, 3)
			for i, p := range parts {
				if decoded[i], err = hex.DecodeString(p); err != nil {
					return nil, clierr.Wrap(clierr.CodeUsage, "payload must be hex", err)
				}
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			res := new(messages.DecryptedMessage)
			req := messages.DecryptMessage{AddressN: addressN, Nonce: decoded[0], Message: decoded[1], HMAC: decoded[2]}
			if _, err := session.Call(req, res); err != nil {
				return nil, err
			}
			return out.Mapping{
				"message": string(res.Message),
				"address": res.Address,
			}, nil
		}),
	}
	addressFlag(cmd, &address)
	return cmd
}
