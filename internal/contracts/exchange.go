package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const exchangeABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "exchangeId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "baseToken", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "dataToken", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "exchangeOwner", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "fixedRate", "type": "uint256"}
    ],
    "name": "ExchangeCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "exchangeId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "by", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "baseTokenSwappedAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "dataTokenSwappedAmount", "type": "uint256"}
    ],
    "name": "Swapped",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "baseToken", "type": "address"},
      {"internalType": "address", "name": "dataToken", "type": "address"},
      {"internalType": "uint256", "name": "fixedRate", "type": "uint256"}
    ],
    "name": "create",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "baseToken", "type": "address"},
      {"internalType": "address", "name": "dataToken", "type": "address"},
      {"internalType": "address", "name": "exchangeOwner", "type": "address"}
    ],
    "name": "generateExchangeId",
    "outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
    "stateMutability": "pure",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "exchangeId", "type": "bytes32"},
      {"internalType": "uint256", "name": "dataTokenAmount", "type": "uint256"}
    ],
    "name": "swap",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getNumberOfExchanges",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "exchangeId", "type": "bytes32"},
      {"internalType": "uint256", "name": "newRate", "type": "uint256"}
    ],
    "name": "setRate",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "exchangeId", "type": "bytes32"}],
    "name": "toggleExchangeState",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "exchangeId", "type": "bytes32"}],
    "name": "getRate",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "exchangeId", "type": "bytes32"}],
    "name": "getSupply",
    "outputs": [{"internalType": "uint256", "name": "supply", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "exchangeId", "type": "bytes32"},
      {"internalType": "uint256", "name": "dataTokenAmount", "type": "uint256"}
    ],
    "name": "CalcInGivenOut",
    "outputs": [{"internalType": "uint256", "name": "baseTokenAmount", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "exchangeId", "type": "bytes32"}],
    "name": "getExchange",
    "outputs": [
      {"internalType": "address", "name": "exchangeOwner", "type": "address"},
      {"internalType": "address", "name": "dataToken", "type": "address"},
      {"internalType": "address", "name": "baseToken", "type": "address"},
      {"internalType": "uint256", "name": "fixedRate", "type": "uint256"},
      {"internalType": "bool", "name": "active", "type": "bool"},
      {"internalType": "uint256", "name": "supply", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getExchanges",
    "outputs": [{"internalType": "bytes32[]", "name": "", "type": "bytes32[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "exchangeId", "type": "bytes32"}],
    "name": "isActive",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	exchangeABI     abi.ABI
	exchangeABIOnce sync.Once
	exchangeABIErr  error
)

// ExchangeABI returns the parsed fixed rate exchange ABI.
func ExchangeABI() (abi.ABI, error) {
	exchangeABIOnce.Do(func() {
		exchangeABI, exchangeABIErr = abi.JSON(strings.NewReader(exchangeABIJSON))
	})
	return exchangeABI, exchangeABIErr
}
