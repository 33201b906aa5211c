package app

import (
	"github.com/spf13/cobra"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/execution"
	"github.com/ggonzalez94/trezorctl/internal/messages"
	"github.com/ggonzalez94/trezorctl/internal/out"
)

func (s *runtimeState) addCosiCommands(root *cobra.Command) {
	root.AddCommand(s.newCosiCommitCommand())
	root.AddCommand(s.newCosiSignCommand())
}

func decodeHexArgs(names []string, args []string) ([][]byte, error) {
	decoded := make([][]byte, len(args))
	for i, arg := range args {
		v, err := execution.DecodeHex(arg)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeUsage, names[i]+" must be hex", err)
		}
		decoded[i] = v
	}
	return decoded, nil
}

func (s *runtimeState) newCosiCommitCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "cosi-commit DATA",
		Short: "Ask device to commit to CoSi signing",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			decoded, err := decodeHexArgs([]string{"DATA"}, args)
			if err != nil {
				return nil, err
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			return cosiCommit(session, messages.CosiCommit{AddressN: addressN, Data: decoded[0]})
		}),
	}
	addressFlag(cmd, &address)
	return cmd
}

func (s *runtimeState) newCosiSignCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "cosi-sign DATA GLOBAL_COMMITMENT GLOBAL_PUBKEY",
		Short: "Ask device to sign using CoSi",
		Args:  cobra.ExactArgs(3),
		RunE: s.run(func(cmd *cobra.Command, args []string) (out.Result, error) {
			addressN, err := parseAddressN(address)
			if err != nil {
				return nil, err
			}
			decoded, err := decodeHexArgs([]string{"DATA", "GLOBAL_COMMITMENT", "GLOBAL_PUBKEY"}, args)
			if err != nil {
				return nil, err
			}
			session, err := s.ctx.Session(cmd.Context())
			if err != nil {
				return nil, err
			}
			return cosiSign(session, messages.CosiSign{AddressN: addressN, Data: decoded[0], GlobalCommitment: decoded[1], GlobalPubKey: decoded[2]})
		}),
	}
	addressFlag(cmd, &address)
	return cmd
}

func cosiCommit(c caller, req messages.CosiCommit) (out.Result, error) {
	res := new(messages.CosiCommitment)
	if _, err := c.Call(req, res); err != nil {
		return nil, clierr.Rejected(err)
	}
	return out.Mapping{
		"commitment": res.Commitment,
		"pubkey":     res.PubKey,
	}, nil
}

func cosiSign(c caller, req messages.CosiSign) (out.Result, error) {
	res := new(messages.CosiSignature)
	if _, err := c.Call(req, res); err != nil {
		return nil, clierr.Rejected(err)
	}
	return out.Mapping{"signature": res.Signature}, nil
}
