package model

import "github.com/shopspring/decimal"

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// PairSnapshot is the on-chain state of a constant-product pair used to seed
// a simulated pool. Reserve0/Reserve1 are scaled by token decimals; the raw
// fields keep the integer values as read.
type PairSnapshot struct {
	ChainID            uint64          `json:"chain_id"`
	Pair               string          `json:"pair"`
	Token0             TokenMeta       `json:"token0"`
	Token1             TokenMeta       `json:"token1"`
	Reserve0Raw        string          `json:"reserve0_raw"`
	Reserve1Raw        string          `json:"reserve1_raw"`
	Reserve0           decimal.Decimal `json:"reserve0"`
	Reserve1           decimal.Decimal `json:"reserve1"`
	BlockNumber        uint64          `json:"block_number"`
	BlockTimestampLast uint32          `json:"block_timestamp_last"`
}
