// Package dex reads constant-product pairs from an EVM chain so a simulated
// pool can start from real reserves.
package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolsim/internal/chain"
	"poolsim/internal/model"
)

// ParsePairAddress validates a hex pair address.
func ParsePairAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid pair address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// FetchPairSnapshot reads token0, token1 and getReserves of a Uniswap V2
// compatible pair at block (0 pins the latest block) and scales the reserves
// by token decimals. tokens may be nil.
func FetchPairSnapshot(ctx context.Context, chainClient *chain.Client, pair common.Address, block uint64, tokens *TokenMetaCache, logger *zap.Logger) (model.PairSnapshot, error) {
	if chainClient == nil {
		return model.PairSnapshot{}, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pairABI, err := V2PairABI()
	if err != nil {
		return model.PairSnapshot{}, fmt.Errorf("parse pair abi: %w", err)
	}

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return model.PairSnapshot{}, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return model.PairSnapshot{}, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	if block == 0 {
		block, err = chainClient.LatestBlockNumber(ctx)
		if err != nil {
			return model.PairSnapshot{}, fmt.Errorf("get latest block: %w", err)
		}
	}
	blockPtr := new(big.Int).SetUint64(block)

	token0, err := callAddress(ctx, chainClient, pair, "token0", blockPtr)
	if err != nil {
		return model.PairSnapshot{}, err
	}
	token1, err := callAddress(ctx, chainClient, pair, "token1", blockPtr)
	if err != nil {
		return model.PairSnapshot{}, err
	}

	values, err := callMethod(ctx, chainClient, pair, pairABI, "getReserves", blockPtr)
	if err != nil {
		return model.PairSnapshot{}, err
	}
	if len(values) < 3 {
		return model.PairSnapshot{}, fmt.Errorf("getReserves: expected 3 values, got %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.PairSnapshot{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.PairSnapshot{}, fmt.Errorf("reserve1: %w", err)
	}
	blockTimestampLast, err := asBigInt(values[2])
	if err != nil {
		return model.PairSnapshot{}, fmt.Errorf("block timestamp last: %w", err)
	}
	if reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return model.PairSnapshot{}, fmt.Errorf("pair %s has no liquidity at block %d", pair.Hex(), block)
	}

	meta0, err := tokenMeta(ctx, chainClient, token0, blockPtr, tokens, logger)
	if err != nil {
		return model.PairSnapshot{}, fmt.Errorf("token0 metadata: %w", err)
	}
	meta1, err := tokenMeta(ctx, chainClient, token1, blockPtr, tokens, logger)
	if err != nil {
		return model.PairSnapshot{}, fmt.Errorf("token1 metadata: %w", err)
	}

	snapshot := model.PairSnapshot{
		ChainID:            chainID.Uint64(),
		Pair:               pair.Hex(),
		Token0:             meta0,
		Token1:             meta1,
		Reserve0Raw:        reserve0.String(),
		Reserve1Raw:        reserve1.String(),
		Reserve0:           ScaleAmount(reserve0, meta0.Decimals),
		Reserve1:           ScaleAmount(reserve1, meta1.Decimals),
		BlockNumber:        block,
		BlockTimestampLast: uint32(blockTimestampLast.Uint64()),
	}
	logger.Info("pair snapshot",
		zap.String("pair", snapshot.Pair),
		zap.Uint64("block", block),
		zap.String("token0", meta0.Symbol),
		zap.String("token1", meta1.Symbol),
		zap.String("reserve0", snapshot.Reserve0.String()),
		zap.String("reserve1", snapshot.Reserve1.String()),
	)
	return snapshot, nil
}

// ScaleAmount converts a raw token integer to units using decimals.
func ScaleAmount(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

func callAddress(ctx context.Context, chainClient *chain.Client, contract common.Address, method string, block *big.Int) (common.Address, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := callMethod(ctx, chainClient, contract, pairABI, method, block)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", method, err)
	}
	return addr, nil
}

func tokenMeta(ctx context.Context, chainClient *chain.Client, token common.Address, block *big.Int, cache *TokenMetaCache, logger *zap.Logger) (model.TokenMeta, error) {
	if cache != nil {
		if meta, ok := cache.Get(token); ok {
			return meta, nil
		}
	}
	meta, err := FetchTokenMeta(ctx, chainClient, token, block, logger)
	if err != nil {
		return meta, err
	}
	if cache != nil {
		cache.Set(token, meta)
	}
	return meta, nil
}
