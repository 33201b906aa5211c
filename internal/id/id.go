package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

var eip155ChainPattern = regexp.MustCompile(`^eip155:[0-9]+$`)

// Chain identifies an EVM network the device can sign for.
type Chain struct {
	Name    string
	Slug    string
	ChainID uint64
}

func (c Chain) CAIP2() string {
	return fmt.Sprintf("eip155:%d", c.ChainID)
}

var chainBySlug = map[string]Chain{
	"ethereum":  {Name: "Ethereum", Slug: "ethereum", ChainID: 1},
	"mainnet":   {Name: "Ethereum", Slug: "ethereum", ChainID: 1},
	"sepolia":   {Name: "Sepolia", Slug: "sepolia", ChainID: 11155111},
	"holesky":   {Name: "Holesky", Slug: "holesky", ChainID: 17000},
	"classic":   {Name: "Ethereum Classic", Slug: "classic", ChainID: 61},
	"base":      {Name: "Base", Slug: "base", ChainID: 8453},
	"arbitrum":  {Name: "Arbitrum", Slug: "arbitrum", ChainID: 42161},
	"optimism":  {Name: "Optimism", Slug: "optimism", ChainID: 10},
	"polygon":   {Name: "Polygon", Slug: "polygon", ChainID: 137},
	"avalanche": {Name: "Avalanche", Slug: "avalanche", ChainID: 43114},
	"bsc":       {Name: "BSC", Slug: "bsc", ChainID: 56},
	"gnosis":    {Name: "Gnosis", Slug: "gnosis", ChainID: 100},
}

var chainByID = func() map[uint64]Chain {
	out := make(map[uint64]Chain, len(chainBySlug))
	for slug, chain := range chainBySlug {
		if slug != chain.Slug {
			continue
		}
		out[chain.ChainID] = chain
	}
	return out
}()

// ParseChain accepts a slug, a decimal chain id or a CAIP-2 eip155 id.
func ParseChain(input string) (Chain, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Chain{}, clierr.New(clierr.CodeUsage, "chain is required")
	}
	norm := strings.ToLower(raw)

	if chain, ok := chainBySlug[norm]; ok {
		return chain, nil
	}
	if eip155ChainPattern.MatchString(norm) {
		norm = strings.TrimPrefix(norm, "eip155:")
	}
	n, err := strconv.ParseUint(norm, 10, 64)
	if err != nil {
		return Chain{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported chain input: %s", input))
	}
	if chain, ok := chainByID[n]; ok {
		return chain, nil
	}
	return Chain{Name: fmt.Sprintf("EVM-%d", n), Slug: fmt.Sprintf("evm-%d", n), ChainID: n}, nil
}
