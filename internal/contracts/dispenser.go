package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const dispenserABIJSON = `[
  {
    "inputs": [{"internalType": "address", "name": "dataToken", "type": "address"}],
    "name": "status",
    "outputs": [
      {"internalType": "bool", "name": "active", "type": "bool"},
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "bool", "name": "minterApproved", "type": "bool"},
      {"internalType": "bool", "name": "isTrueMinter", "type": "bool"},
      {"internalType": "uint256", "name": "maxTokens", "type": "uint256"},
      {"internalType": "uint256", "name": "maxBalance", "type": "uint256"},
      {"internalType": "uint256", "name": "balance", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "dataToken", "type": "address"},
      {"internalType": "uint256", "name": "maxTokens", "type": "uint256"},
      {"internalType": "uint256", "name": "maxBalance", "type": "uint256"}
    ],
    "name": "activate",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "dataToken", "type": "address"}],
    "name": "deactivate",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "dataToken", "type": "address"}],
    "name": "acceptMinter",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "dataToken", "type": "address"}],
    "name": "removeMinter",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "dataToken", "type": "address"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "dispense",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "dataToken", "type": "address"}],
    "name": "ownerWithdraw",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	dispenserABI     abi.ABI
	dispenserABIOnce sync.Once
	dispenserABIErr  error
)

// DispenserABI returns the parsed dispenser ABI.
func DispenserABI() (abi.ABI, error) {
	dispenserABIOnce.Do(func() {
		dispenserABI, dispenserABIErr = abi.JSON(strings.NewReader(dispenserABIJSON))
	})
	return dispenserABI, dispenserABIErr
}
