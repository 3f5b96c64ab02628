package model

import "github.com/shopspring/decimal"

// Pool is a read projection of on-chain pool state. It is never cached or
// mutated locally; every operation works from a fresh snapshot.
type Pool struct {
	Address     string          `json:"address"`
	DataToken   string          `json:"data_token"`
	BaseToken   string          `json:"base_token"`
	DataReserve decimal.Decimal `json:"data_reserve"`
	BaseReserve decimal.Decimal `json:"base_reserve"`
	DataWeight  decimal.Decimal `json:"data_weight"`
	BaseWeight  decimal.Decimal `json:"base_weight"`
	SwapFee     decimal.Decimal `json:"swap_fee"`
}

// PoolDetails lists the constituent tokens of a pool.
type PoolDetails struct {
	PoolAddress string   `json:"pool_address"`
	Tokens      []string `json:"tokens"`
}

// PoolShare is a user's share position in one pool.
type PoolShare struct {
	PoolAddress string          `json:"pool_address"`
	Shares      decimal.Decimal `json:"shares"`
	DataToken   string          `json:"data_token"`
}

// TokensReceived is the pair of amounts implied by spending a pool-share
// fraction. Computed per call, never stored.
type TokensReceived struct {
	DataAmount decimal.Decimal `json:"data_amount"`
	BaseAmount decimal.Decimal `json:"base_amount"`
}
