// Package contracts embeds the ABI fragments of the on-chain contracts the
// toolkit talks to. Only the methods and events actually called are carried.
package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "caller", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "tokenIn", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "tokenOut", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "tokenAmountIn", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "tokenAmountOut", "type": "uint256"}
    ],
    "name": "LOG_SWAP",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "caller", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "tokenIn", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "tokenAmountIn", "type": "uint256"}
    ],
    "name": "LOG_JOIN",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "caller", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "tokenOut", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "tokenAmountOut", "type": "uint256"}
    ],
    "name": "LOG_EXIT",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "address", "name": "token", "type": "address"}],
    "name": "getBalance",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "token", "type": "address"}],
    "name": "getDenormalizedWeight",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getTotalDenormalizedWeight",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getSwapFee",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalSupply",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "account", "type": "address"}],
    "name": "balanceOf",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getCurrentTokens",
    "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getFinalTokens",
    "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "dataToken", "type": "address"},
      {"internalType": "uint256", "name": "dataTokenAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "dataTokenWeight", "type": "uint256"},
      {"internalType": "address", "name": "baseToken", "type": "address"},
      {"internalType": "uint256", "name": "baseTokenAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "baseTokenWeight", "type": "uint256"},
      {"internalType": "uint256", "name": "swapFee", "type": "uint256"}
    ],
    "name": "setup",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "tokenIn", "type": "address"},
      {"internalType": "uint256", "name": "tokenAmountIn", "type": "uint256"},
      {"internalType": "address", "name": "tokenOut", "type": "address"},
      {"internalType": "uint256", "name": "minAmountOut", "type": "uint256"},
      {"internalType": "uint256", "name": "maxPrice", "type": "uint256"}
    ],
    "name": "swapExactAmountIn",
    "outputs": [
      {"internalType": "uint256", "name": "tokenAmountOut", "type": "uint256"},
      {"internalType": "uint256", "name": "spotPriceAfter", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "tokenIn", "type": "address"},
      {"internalType": "uint256", "name": "maxAmountIn", "type": "uint256"},
      {"internalType": "address", "name": "tokenOut", "type": "address"},
      {"internalType": "uint256", "name": "tokenAmountOut", "type": "uint256"},
      {"internalType": "uint256", "name": "maxPrice", "type": "uint256"}
    ],
    "name": "swapExactAmountOut",
    "outputs": [
      {"internalType": "uint256", "name": "tokenAmountIn", "type": "uint256"},
      {"internalType": "uint256", "name": "spotPriceAfter", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "tokenIn", "type": "address"},
      {"internalType": "uint256", "name": "tokenAmountIn", "type": "uint256"},
      {"internalType": "uint256", "name": "minPoolAmountOut", "type": "uint256"}
    ],
    "name": "joinswapExternAmountIn",
    "outputs": [{"internalType": "uint256", "name": "poolAmountOut", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "tokenOut", "type": "address"},
      {"internalType": "uint256", "name": "tokenAmountOut", "type": "uint256"},
      {"internalType": "uint256", "name": "maxPoolAmountIn", "type": "uint256"}
    ],
    "name": "exitswapExternAmountOut",
    "outputs": [{"internalType": "uint256", "name": "poolAmountIn", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "tokenOut", "type": "address"},
      {"internalType": "uint256", "name": "poolAmountIn", "type": "uint256"},
      {"internalType": "uint256", "name": "minAmountOut", "type": "uint256"}
    ],
    "name": "exitswapPoolAmountIn",
    "outputs": [{"internalType": "uint256", "name": "tokenAmountOut", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "poolAmountIn", "type": "uint256"},
      {"internalType": "uint256[]", "name": "minAmountsOut", "type": "uint256[]"}
    ],
    "name": "exitPool",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const factoryABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "bpoolAddress", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "registeredBy", "type": "address"}
    ],
    "name": "BPoolRegistered",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "newBPool",
    "outputs": [{"internalType": "address", "name": "bpool", "type": "address"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	poolABI        abi.ABI
	poolABIOnce    sync.Once
	poolABIErr     error
	factoryABI     abi.ABI
	factoryABIOnce sync.Once
	factoryABIErr  error
)

// PoolABI returns the parsed weighted pool ABI.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}

// FactoryABI returns the parsed pool factory ABI.
func FactoryABI() (abi.ABI, error) {
	factoryABIOnce.Do(func() {
		factoryABI, factoryABIErr = abi.JSON(strings.NewReader(factoryABIJSON))
	})
	return factoryABI, factoryABIErr
}
