package model

// PoolTransactionType tags a decoded pool event.
type PoolTransactionType string

const (
	TxTypeSwap PoolTransactionType = "swap"
	TxTypeJoin PoolTransactionType = "join"
	TxTypeExit PoolTransactionType = "exit"
)

// PoolTransactionRecord is one decoded ledger event. Amount fields depend on
// the type: swaps carry both sides, joins only the inbound token, exits only
// the outbound one. Immutable once constructed.
type PoolTransactionRecord struct {
	PoolAddress    string              `json:"pool_address"`
	DataToken      string              `json:"data_token"`
	Caller         string              `json:"caller"`
	TxHash         string              `json:"tx_hash"`
	BlockNumber    uint64              `json:"block_number"`
	LogIndex       uint64              `json:"log_index"`
	Timestamp      uint64              `json:"timestamp"`
	Type           PoolTransactionType `json:"type"`
	TokenIn        string              `json:"token_in,omitempty"`
	TokenOut       string              `json:"token_out,omitempty"`
	TokenAmountIn  string              `json:"token_amount_in,omitempty"`
	TokenAmountOut string              `json:"token_amount_out,omitempty"`
}
