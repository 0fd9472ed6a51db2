// Package smartaccount resolves the ERC-4337 smart-contract account that
// belongs to a session owner.
package smartaccount

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"walletcard/pkg/config"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNotReady means the provider cannot produce an address yet.
var ErrNotReady = errors.New("smartaccount: provider not ready")

const factoryABI = `[{"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"uint256","name":"salt","type":"uint256"}],"name":"getAddress","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

var parsedFactoryABI = mustParseABI(factoryABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

type Provider interface {
	Address(ctx context.Context, owner string) (string, error)
}

// ContractCaller is satisfied by rpc.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// FactoryProvider asks a SimpleAccountFactory-compatible contract for the
// counterfactual account address of owner.
type FactoryProvider struct {
	Caller  ContractCaller
	Factory common.Address
	Salt    *big.Int
}

func (p *FactoryProvider) Address(ctx context.Context, owner string) (string, error) {
	if p.Caller == nil || !common.IsHexAddress(owner) {
		return "", ErrNotReady
	}
	data, err := parsedFactoryABI.Pack("getAddress", common.HexToAddress(owner), p.salt())
	if err != nil {
		return "", fmt.Errorf("pack getAddress: %w", err)
	}

	factory := p.Factory
	out, err := p.Caller.CallContract(ctx, ethereum.CallMsg{To: &factory, Data: data})
	if err != nil {
		return "", fmt.Errorf("call getAddress: %w", err)
	}
	if len(out) == 0 {
		// no code at the factory address on this chain
		return "", ErrNotReady
	}

	res, err := parsedFactoryABI.Unpack("getAddress", out)
	if err != nil {
		return "", fmt.Errorf("unpack getAddress: %w", err)
	}
	addr, ok := res[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unpack getAddress: unexpected type %T", res[0])
	}
	return addr.Hex(), nil
}

func (p *FactoryProvider) salt() *big.Int {
	if p.Salt == nil {
		return new(big.Int)
	}
	return p.Salt
}

// StaticProvider returns a fixed, configured account address.
type StaticProvider struct {
	Account string
}

func (p StaticProvider) Address(ctx context.Context, owner string) (string, error) {
	if owner == "" {
		return "", ErrNotReady
	}
	return common.HexToAddress(p.Account).Hex(), nil
}

type unconfigured struct{}

func (unconfigured) Address(context.Context, string) (string, error) {
	return "", ErrNotReady
}

// New picks the provider described by cfg.
func New(cfg config.SmartAccountConfig, caller ContractCaller) (Provider, error) {
	switch {
	case cfg.Address != "":
		if !common.IsHexAddress(cfg.Address) {
			return nil, fmt.Errorf("smart_account.address: invalid address %q", cfg.Address)
		}
		return StaticProvider{Account: cfg.Address}, nil
	case cfg.FactoryAddress != "":
		if !common.IsHexAddress(cfg.FactoryAddress) {
			return nil, fmt.Errorf("smart_account.factory_address: invalid address %q", cfg.FactoryAddress)
		}
		return &FactoryProvider{
			Caller:  caller,
			Factory: common.HexToAddress(cfg.FactoryAddress),
			Salt:    big.NewInt(cfg.Salt),
		}, nil
	default:
		return unconfigured{}, nil
	}
}
