package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the production Caller and Querier backed by a JSON-RPC node.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	chainID          *big.Int
	privateKey       *ecdsa.PrivateKey
	from             common.Address
	gasFeeMultiplier float64

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// PrivateKeyHex enables transaction sends when set. Read-only clients
	// leave it empty.
	PrivateKeyHex string
	// GasFeeMultiplier scales the suggested gas price. Values at or below
	// zero mean no scaling.
	GasFeeMultiplier float64
}

// NewClient dials the node and prepares the signing account if a key is given.
func NewClient(ctx context.Context, rpcURL string, opts ClientOptions) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	ethClient := ethclient.NewClient(rpcClient)

	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}

	c := &Client{
		rpcClient:        rpcClient,
		ethClient:        ethClient,
		chainID:          chainID,
		gasFeeMultiplier: opts.GasFeeMultiplier,
		tsCache:          make(map[uint64]uint64),
	}

	if opts.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(opts.PrivateKeyHex)
		if err != nil {
			rpcClient.Close()
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		c.privateKey = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// From returns the transacting account, or the zero address for read-only
// clients.
func (c *Client) From() common.Address {
	return c.from
}

// ChainID returns the chain ID discovered at dial time.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Call performs an eth_call and unpacks the outputs.
func (c *Client) Call(ctx context.Context, spec CallSpec) ([]interface{}, error) {
	data, err := spec.ABI.Pack(spec.Method, spec.Args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", spec.Method, err)
	}

	out, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &spec.To,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", spec.Method, err)
	}

	values, err := spec.ABI.Unpack(spec.Method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", spec.Method, err)
	}
	return values, nil
}

// EstimateGas estimates gas for the call as a transaction.
func (c *Client) EstimateGas(ctx context.Context, spec CallSpec) (uint64, error) {
	data, err := spec.ABI.Pack(spec.Method, spec.Args...)
	if err != nil {
		return 0, fmt.Errorf("pack %s: %w", spec.Method, err)
	}
	return c.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &spec.To,
		Data: data,
	})
}

// GasPrice returns the node's suggested gas price scaled by the configured
// multiplier.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	if c.gasFeeMultiplier <= 0 {
		return price, nil
	}
	scaled, _ := new(big.Float).Mul(
		new(big.Float).SetInt(price),
		big.NewFloat(c.gasFeeMultiplier),
	).Int(nil)
	return scaled, nil
}

// Send signs and submits the call as a legacy transaction and waits for it to
// mine. A mined but failed transaction returns the receipt together with
// ErrTxReverted.
func (c *Client) Send(ctx context.Context, spec CallSpec, gasLimit uint64) (*types.Receipt, error) {
	if c.privateKey == nil {
		return nil, fmt.Errorf("send %s: no signing key configured", spec.Method)
	}

	data, err := spec.ABI.Pack(spec.Method, spec.Args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", spec.Method, err)
	}

	nonce, err := c.ethClient.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := c.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	tx := types.NewTransaction(nonce, spec.To, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", spec.Method, err)
	}

	if err := c.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("send %s: %w", spec.Method, err)
	}

	receipt, err := bind.WaitMined(ctx, c.ethClient, signedTx)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", spec.Method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%s: %w", spec.Method, ErrTxReverted)
	}
	return receipt, nil
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("header %d: %w", number, err)
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// FilterLogs returns logs in the given range for addresses and topic filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topics [][]common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
		Topics:    topics,
	}
	return c.ethClient.FilterLogs(ctx, query)
}
