package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/execution"
	"github.com/ggonzalez94/trezorctl/internal/execution/signer"
	"github.com/ggonzalez94/trezorctl/internal/id"
	"github.com/ggonzalez94/trezorctl/internal/out"
)

func (s *runtimeState) addEthereumCommands(root *cobra.Command) {
	root.AddCommand(s.newEthereumGetAddressCommand())
	root.AddCommand(s.newEthereumSignMessageCommand())
	root.AddCommand(newEthereumVerifyMessageCommand(s))
	root.AddCommand(s.newEthereumSignTxCommand())
}

func (s *runtimeState) newEthereumGetAddressCommand() *cobra.Command {
	var address string
	var show bool
	cmd := &cobra.Command{
		Use:   "ethereum-get-address",
		Short: "Get Ethereum address in hex encoding",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			addr, err := signer.GetAddress(session, addressN, show)
			if err != nil {
				return nil, err
			}
			return out.Text(addr.Hex()), nil
		}),
	}
	addressFlag(cmd, &address)
	cmd.Flags().BoolVarP(&show, "show-display", "d", false, "Show the address on the device")
	return cmd
}

func (s *runtimeState) newEthereumSignMessageCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "ethereum-sign-message MESSAGE",
		Short: "Sign message with Ethereum address",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			res := new(trezor.EthereumMessageSignature)
			if _, err := session.Call(&trezor.EthereumSignMessage{AddressN: addressN, Message: []byte(args[0])}, res); err != nil {
				return nil, clierr.Rejected(err)
			}
			addr := common.HexToAddress(res.GetAddressHex())
			if bin := res.GetAddressBin(); len(bin) > 0 {
				addr = common.BytesToAddress(bin)
			}
			return out.Mapping{
				"message":   args[0],
				"address":   addr.Hex(),
				"signature": hexutil.Encode(res.GetSignature()),
			}, nil
		}),
	}
	addressFlag(cmd, &address)
	return cmd
}

func newEthereumVerifyMessageCommand(s *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "ethereum-verify-message ADDRESS SIGNATURE MESSAGE",
		Short: "Verify message signed with Ethereum address",
		Args:  cobra.ExactArgs(3),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			ok, err := verifyEthereumMessage(args[0], args[1], []byte(args[2]))
			if err != nil {
				return nil, err
			}
			return out.Scalar{Value: ok}, nil
		}),
	}
}

// verifyEthereumMessage recovers the signer of an EIP-191 personal message.
// Signatures may carry v as 0/1 or 27/28.
func verifyEthereumMessage(address, signature string, message []byte) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid address %q", address))
	}
	sig, err := execution.DecodeHex(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false, clierr.New(clierr.CodeUsage, "signature must be 65 bytes of hex")
	}
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return false, nil
	}
	return crypto.PubkeyToAddress(*pub) == common.HexToAddress(address), nil
}

func (s *runtimeState) newEthereumSignTxCommand() *cobra.Command {
	var (
		address  string
		host     string
		chainArg string
		gasPrice string
		gasLimit string
		nonce    string
		data     string
		publish  bool
	)
	cmd := &cobra.Command{
		Use:   "ethereum-sign-tx TO VALUE",
		Short: "Sign (and optionally publish) Ethereum transaction",
		Long:  "Sign an Ethereum transaction. VALUE accepts a unit, e.g. \"1 ether\" or \"20 gwei\"; an empty TO creates a contract.",
		Args:  cobra.ExactArgs(2),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			fields, err := parseTxFields(args[0], args[1], chainArg, gasPrice, gasLimit, nonce, data)
			if err != nil {
				return nil, err
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}

			override := host
			if override == "" {
				override = s.settings.RPCURL
			}
			rpcURL := execution.ResolveRPCURL(override, s.settings.RPCByChainID, fields.ChainID)
			pipeline := &execution.Pipeline{
				Signer: signer.NewDevice(session, addressN),
				Dial:   execution.DialRPC(rpcURL),
				Notify: s.ctx.console.Notify,
				Log:    s.ctx.log,
				OnState: func(state execution.State) {
					s.ctx.log.Debug("ethereum-sign-tx", zap.String("state", string(state)), zap.String("rpc", rpcURL))
				},
			}
			defer pipeline.Close()

			tx, err := pipeline.Run(cmd.Context(), fields)
			if err != nil {
				return nil, err
			}
			raw := hexutil.Encode(tx.Raw)
			if !publish {
				return out.Text(raw), nil
			}
			hash, err := pipeline.Broadcast(cmd.Context(), tx)
			if err != nil {
				return nil, err
			}
			return out.Mapping{
				"raw_tx":  raw,
				"tx_hash": hash.Hex(),
			}, nil
		}),
	}
	addressFlag(cmd, &address)
	cmd.Flags().StringVarP(&host, "host", "a", "", "RPC node URL (host:port or URL)")
	cmd.Flags().StringVarP(&chainArg, "chain-id", "c", "", "EIP-155 chain id, name or CAIP-2 id")
	cmd.Flags().StringVarP(&gasPrice, "gas-price", "g", "", "Gas price, e.g. \"20 gwei\"")
	cmd.Flags().StringVarP(&gasLimit, "gas-limit", "l", "", "Gas limit")
	cmd.Flags().StringVarP(&nonce, "nonce", "i", "", "Transaction nonce")
	cmd.Flags().StringVarP(&data, "data", "d", "", "Data as hex string, e.g. 0x12345678")
	cmd.Flags().BoolVarP(&publish, "publish", "s", false, "Publish the transaction via RPC")
	return cmd
}

// parseTxFields validates every literal before anything is dialed.
func parseTxFields(to, value, chainArg, gasPrice, gasLimit, nonce, data string) (execution.TxFields, error) {
	var fields execution.TxFields
	if to = strings.TrimSpace(to); to != "" {
		if !common.IsHexAddress(to) {
			return fields, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid recipient %q", to))
		}
		addr := common.HexToAddress(to)
		fields.To = &addr
	}
	amount, err := id.ParseAmount(value)
	if err != nil {
		return fields, err
	}
	fields.Value = amount
	if chainArg != "" {
		chain, err := id.ParseChain(chainArg)
		if err != nil {
			return fields, err
		}
		// The device message carries a 32-bit chain id.
		if chain.ChainID > math.MaxUint32 {
			return fields, clierr.New(clierr.CodeUsage, fmt.Sprintf("chain id %d does not fit in 32 bits", chain.ChainID))
		}
		fields.ChainID = &chain.ChainID
	}
	if gasPrice != "" {
		price, err := id.ParseAmount(gasPrice)
		if err != nil {
			return fields, err
		}
		fields.GasPrice = price
	}
	if gasLimit != "" {
		v, err := parseQuantity("gas limit", gasLimit)
		if err != nil {
			return fields, err
		}
		fields.GasLimit = &v
	}
	if nonce != "" {
		v, err := parseQuantity("nonce", nonce)
		if err != nil {
			return fields, err
		}
		fields.Nonce = &v
	}
	payload, err := execution.DecodeHex(data)
	if err != nil {
		return fields, clierr.Wrap(clierr.CodeUsage, "invalid --data", err)
	}
	fields.Data = payload
	return fields, nil
}

func parseQuantity(name, text string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 0, 64)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid %s %q", name, text), err)
	}
	return v, nil
}
