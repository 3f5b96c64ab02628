package model

import "github.com/shopspring/decimal"

// ExchangeRecord is a read projection of one fixed-rate exchange.
type ExchangeRecord struct {
	ExchangeID string          `json:"exchange_id"`
	Owner      string          `json:"owner"`
	BaseToken  string          `json:"base_token"`
	DataToken  string          `json:"data_token"`
	FixedRate  decimal.Decimal `json:"fixed_rate"`
	Active     bool            `json:"active"`
	Supply     decimal.Decimal `json:"supply"`
}

// ExchangeSwap is one decoded fixed-rate swap event.
type ExchangeSwap struct {
	ExchangeID string `json:"exchange_id"`
	Caller     string `json:"caller"`
	BaseAmount string `json:"base_amount"`
	DataAmount string `json:"data_amount"`
}

// DispenserStatus is a read projection of dispenser state for one data token.
type DispenserStatus struct {
	Active         bool            `json:"active"`
	Owner          string          `json:"owner"`
	MinterApproved bool            `json:"minter_approved"`
	IsTrueMinter   bool            `json:"is_true_minter"`
	MaxTokens      decimal.Decimal `json:"max_tokens"`
	MaxBalance     decimal.Decimal `json:"max_balance"`
	Balance        decimal.Decimal `json:"balance"`
}
