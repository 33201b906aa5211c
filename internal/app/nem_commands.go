package app

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/httpx"
	"github.com/ggonzalez94/trezorctl/internal/messages"
	"github.com/ggonzalez94/trezorctl/internal/out"
)

const nemTransferType = 0x0101

func (s *runtimeState) addNEMCommands(root *cobra.Command) {
	root.AddCommand(s.newNEMGetAddressCommand())
	root.AddCommand(s.newNEMSignTxCommand())
}

func (s *runtimeState) newNEMGetAddressCommand() *cobra.Command {
	var address string
	var network uint32
	var show bool
	cmd := &cobra.Command{
		Use:   "nem-get-address",
		Short: "Get NEM address for specified path",
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
			res := new(messages.NEMAddress)
			if _, err := session.Call(messages.NEMGetAddress{AddressN: addressN, Network: network, ShowDisplay: show}, res); err != nil {
				return nil, err
			}
			return out.Text(res.Address), nil
		}),
	}
	addressFlag(cmd, &address)
	cmd.Flags().Uint32VarP(&network, "network", "N", messages.NEMMainnet, "Network id (0x68 mainnet, 0x98 testnet, 0x60 mijin)")
	cmd.Flags().BoolVarP(&show, "show-display", "d", false, "Show the address on the device")
	return cmd
}

// nemTransaction is the NIS JSON form of a transfer.
type nemTransaction struct {
	TimeStamp uint32 `json:"timeStamp"`
	Amount    uint64 `json:"amount"`
	Fee       uint64 `json:"fee"`
	Recipient string `json:"recipient"`
	Type      int    `json:"type"`
	Deadline  uint32 `json:"deadline"`
	Version   int64  `json:"version"`
	Message   *struct {
		Payload string `json:"payload"`
		Type    int    `json:"type"`
	} `json:"message"`
	Mosaics []struct {
		MosaicID struct {
			NamespaceID string `json:"namespaceId"`
			Name        string `json:"name"`
		} `json:"mosaicId"`
		Quantity uint64 `json:"quantity"`
	} `json:"mosaics"`
}

// parseNEMTransaction builds a signing request from a NIS transfer. Only
// plain-message transfers are supported.
func parseNEMTransaction(raw []byte, addressN []uint32) (messages.NEMSignTx, error) {
	var tx nemTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return messages.NEMSignTx{}, clierr.Wrap(clierr.CodeUsage, "parse NEM transaction", err)
	}
	if tx.Type != nemTransferType {
		return messages.NEMSignTx{}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("NEM transaction type %d is not supported", tx.Type))
	}
	if tx.Recipient == "" {
		return messages.NEMSignTx{}, clierr.New(clierr.CodeUsage, "NEM transaction has no recipient")
	}
	transfer := &messages.NEMTransfer{
		Recipient: strings.ReplaceAll(strings.ToUpper(tx.Recipient), "-", ""),
		Amount:    tx.Amount,
	}
	if tx.Message != nil && tx.Message.Payload != "" {
		if tx.Message.Type != 1 {
			return messages.NEMSignTx{}, clierr.New(clierr.CodeUnsupported, "encrypted NEM messages are not supported")
		}
		payload, err := hex.DecodeString(tx.Message.Payload)
		if err != nil {
			return messages.NEMSignTx{}, clierr.Wrap(clierr.CodeUsage, "NEM message payload must be hex", err)
		}
		transfer.Payload = payload
	}
	for _, m := range tx.Mosaics {
		transfer.Mosaics = append(transfer.Mosaics, messages.NEMMosaic{
			Namespace: m.MosaicID.NamespaceID,
			Mosaic:    m.MosaicID.Name,
			Quantity:  m.Quantity,
		})
	}
	return messages.NEMSignTx{
		Transaction: messages.NEMTransactionCommon{
			AddressN:  addressN,
			Network:   uint32(tx.Version) >> 24,
			Timestamp: tx.TimeStamp,
			Fee:       tx.Fee,
			Deadline:  tx.Deadline,
		},
		Transfer: transfer,
	}, nil
}

type nemAnnounceResponse struct {
	Code            int    `json:"code"`
	Message         string `json:"message"`
	TransactionHash struct {
		Data string `json:"data"`
	} `json:"transactionHash"`
}

func (s *runtimeState) newNEMSignTxCommand() *cobra.Command {
	var address, file, broadcast string
	var publish bool
	cmd := &cobra.Command{
		Use:   "nem-sign-tx",
		Short: "Sign (and optionally broadcast) NEM transaction",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return nil, clierr.Wrap(clierr.CodeUsage, "read NEM transaction", err)
			}
			req, err := parseNEMTransaction(raw, addressN)
			if err != nil {
				return nil, err
			}
			node := broadcast
			if node == "" && publish {
				if node = s.settings.NEMNode; node == "" {
					return nil, clierr.New(clierr.CodeUsage, "--publish needs --broadcast or nem.node in the config file")
				}
			}

			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			res := new(messages.NEMSignedTx)
			if _, err := session.Call(req, res); err != nil {
				return nil, clierr.Rejected(err)
			}
			result := out.Mapping{
				"data":      res.Data,
				"signature": res.Signature,
			}
			if node == "" {
				return result, nil
			}

			body, err := json.Marshal(map[string]string{
				"data":      hex.EncodeToString(res.Data),
				"signature": hex.EncodeToString(res.Signature),
			})
			if err != nil {
				return nil, clierr.Wrap(clierr.CodeInternal, "encode announce request", err)
			}
			var announced nemAnnounceResponse
			url := strings.TrimRight(node, "/") + "/transaction/announce"
			if _, err := httpx.DoBodyJSON(cmd.Context(), s.ctx.http, "POST", url, body, nil, &announced); err != nil {
				return nil, err
			}
			if announced.Code != 1 {
				return nil, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("NEM node rejected transaction: %s", announced.Message))
			}
			result["tx_hash"] = announced.TransactionHash.Data
			return result, nil
		}),
	}
	addressFlag(cmd, &address)
	cmd.Flags().StringVarP(&file, "file", "f", "", "Transaction in NIS (RequestPrepareAnnounce) format")
	cmd.Flags().StringVarP(&broadcast, "broadcast", "b", "", "NIS to announce the transaction to")
	cmd.Flags().BoolVar(&publish, "publish", false, "Announce to the configured NEM node")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
