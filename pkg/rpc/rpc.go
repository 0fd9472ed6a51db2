package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
)

var ErrNoRPC = errors.New("rpc: no RPC URLs configured")

// Client queries a chain through an ordered list of RPC URLs, falling back
// to the next URL when one fails.
type Client struct {
	RPCURLs []string
	Timeout time.Duration

	mu         sync.Mutex
	failedRPCs []string
}

func NewClient(rpcURLs []string, timeout time.Duration) *Client {
	return &Client{RPCURLs: rpcURLs, Timeout: timeout}
}

// FailedRPCs returns the URLs that failed during the most recent call.
func (c *Client) FailedRPCs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.failedRPCs...)
}

func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context, client *ethclient.Client) error) error {
	if len(c.RPCURLs) == 0 {
		return ErrNoRPC
	}

	var failed []string
	var lastErr error
	for _, rpcURL := range c.RPCURLs {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		}
		client, err := ethclient.DialContext(callCtx, rpcURL)
		if err != nil {
			cancel()
			failed = append(failed, rpcURL)
			lastErr = err
			continue
		}
		err = fn(callCtx, client)
		client.Close()
		cancel()
		if err != nil {
			log.Debug().Err(err).Str("rpc", rpcURL).Str("op", op).Msg("rpc call failed")
			failed = append(failed, rpcURL)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		c.setFailed(failed)
		return nil
	}
	c.setFailed(failed)
	return fmt.Errorf("%s: %w", op, lastErr)
}

func (c *Client) setFailed(failed []string) {
	c.mu.Lock()
	c.failedRPCs = failed
	c.mu.Unlock()
}

// BalanceAt returns the latest native balance of address in wei.
func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("balance: invalid address %q", address)
	}
	account := common.HexToAddress(address)
	var balance *big.Int
	err := c.do(ctx, "balance", func(ctx context.Context, client *ethclient.Client) error {
		b, err := client.BalanceAt(ctx, account, nil)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// CallContract executes a read-only call at the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	var out []byte
	err := c.do(ctx, "call", func(ctx context.Context, client *ethclient.Client) error {
		res, err := client.CallContract(ctx, msg, nil)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id *big.Int
	err := c.do(ctx, "chain id", func(ctx context.Context, client *ethclient.Client) error {
		v, err := client.ChainID(ctx)
		if err != nil {
			return err
		}
		id = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return id, nil
}

// FetchChainID asks a single RPC URL for its chain ID.
func FetchChainID(ctx context.Context, rpcURL string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	id, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get ChainID: %w", err)
	}
	return id, nil
}
