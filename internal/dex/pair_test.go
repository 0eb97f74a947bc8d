package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"poolsim/internal/chain"
)

var (
	testPair  = common.HexToAddress("0x0000000000000000000000000000000000000abc")
	testWETH  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testUSDC  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testEmpty = common.HexToAddress("0x0000000000000000000000000000000000000def")
)

// fakeEth answers eth_chainId, eth_blockNumber and eth_call from canned
// return data keyed by contract and method selector.
type fakeEth struct {
	chainID     uint64
	blockNumber uint64

	mu      sync.Mutex
	results map[common.Address]map[string][]byte
	blocks  []string
}

func (f *fakeEth) ChainId(ctx context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(new(big.Int).SetUint64(f.chainID)), nil
}

func (f *fakeEth) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	return hexutil.Uint64(f.blockNumber), nil
}

func (f *fakeEth) Call(ctx context.Context, args map[string]interface{}, block string) (hexutil.Bytes, error) {
	raw, ok := args["input"].(string)
	if !ok {
		raw, ok = args["data"].(string)
	}
	if !ok {
		return nil, fmt.Errorf("missing call data")
	}
	input, err := hexutil.Decode(raw)
	if err != nil || len(input) < 4 {
		return nil, fmt.Errorf("bad call data %q", raw)
	}
	to, _ := args["to"].(string)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, block)
	out, ok := f.results[common.HexToAddress(to)][hexutil.Encode(input[:4])]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return out, nil
}

func (f *fakeEth) set(t *testing.T, contract common.Address, parsed abi.ABI, method string, values ...interface{}) {
	t.Helper()
	m, ok := parsed.Methods[method]
	if !ok {
		t.Fatalf("unknown method %s", method)
	}
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	if f.results == nil {
		f.results = make(map[common.Address]map[string][]byte)
	}
	if f.results[contract] == nil {
		f.results[contract] = make(map[string][]byte)
	}
	f.results[contract][hexutil.Encode(m.ID)] = out
}

func newInprocClient(t *testing.T, fe *fakeEth) *chain.Client {
	t.Helper()
	srv := gethrpc.NewServer()
	if err := srv.RegisterName("eth", fe); err != nil {
		t.Fatalf("register rpc service: %v", err)
	}
	client := chain.NewClientFromRPC(gethrpc.DialInProc(srv))
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
	})
	return client
}

func exp10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func newPairFake(t *testing.T) *fakeEth {
	t.Helper()
	pairABI, err := V2PairABI()
	if err != nil {
		t.Fatalf("pair abi: %v", err)
	}
	stringABI, err := ERC20ABI()
	if err != nil {
		t.Fatalf("erc20 abi: %v", err)
	}
	bytes32ABI, err := ERC20Bytes32ABI()
	if err != nil {
		t.Fatalf("erc20 bytes32 abi: %v", err)
	}

	fe := &fakeEth{chainID: 1, blockNumber: 100}
	fe.set(t, testPair, pairABI, "token0", testWETH)
	fe.set(t, testPair, pairABI, "token1", testUSDC)
	fe.set(t, testPair, pairABI, "getReserves",
		new(big.Int).Mul(big.NewInt(1000), exp10(18)),
		new(big.Int).Mul(big.NewInt(4800), exp10(6)),
		uint32(1700000000),
	)
	fe.set(t, testWETH, stringABI, "decimals", uint8(18))
	fe.set(t, testWETH, stringABI, "symbol", "WETH")
	fe.set(t, testWETH, stringABI, "name", "Wrapped Ether")

	var symbol [32]byte
	copy(symbol[:], "USDC")
	fe.set(t, testUSDC, stringABI, "decimals", uint8(6))
	fe.set(t, testUSDC, bytes32ABI, "symbol", symbol)
	return fe
}

func TestFetchPairSnapshot(t *testing.T) {
	fe := newPairFake(t)
	client := newInprocClient(t, fe)
	cache := NewTokenMetaCache()

	snapshot, err := FetchPairSnapshot(context.Background(), client, testPair, 0, cache, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.ChainID != 1 || snapshot.BlockNumber != 100 {
		t.Fatalf("chain/block mismatch: %d %d", snapshot.ChainID, snapshot.BlockNumber)
	}
	if snapshot.Reserve0.String() != "1000" || snapshot.Reserve1.String() != "4800" {
		t.Fatalf("scaled reserves mismatch: %s %s", snapshot.Reserve0, snapshot.Reserve1)
	}
	if snapshot.Reserve0Raw != "1000000000000000000000" {
		t.Fatalf("raw reserve mismatch: %s", snapshot.Reserve0Raw)
	}
	if snapshot.BlockTimestampLast != 1700000000 {
		t.Fatalf("timestamp mismatch: %d", snapshot.BlockTimestampLast)
	}
	if snapshot.Token0.Symbol != "WETH" || snapshot.Token0.Name != "Wrapped Ether" || snapshot.Token0.Decimals != 18 {
		t.Fatalf("token0 meta mismatch: %+v", snapshot.Token0)
	}
	if snapshot.Token1.Symbol != "USDC" || snapshot.Token1.Name != "" || snapshot.Token1.Decimals != 6 {
		t.Fatalf("token1 meta mismatch: %+v", snapshot.Token1)
	}

	for _, block := range fe.blocks {
		if block != "0x64" {
			t.Fatalf("call not pinned to block 100: %s", block)
		}
	}

	if _, ok := cache.Get(testUSDC); !ok {
		t.Fatalf("token metadata should be cached")
	}
}

func TestFetchPairSnapshotNotAPair(t *testing.T) {
	client := newInprocClient(t, newPairFake(t))
	if _, err := FetchPairSnapshot(context.Background(), client, testEmpty, 0, nil, nil); err == nil {
		t.Fatalf("expected error for address without pair methods")
	}
}

func TestParsePairAddress(t *testing.T) {
	if _, err := ParsePairAddress("not-an-address"); err == nil {
		t.Fatalf("expected error")
	}
	addr, err := ParsePairAddress(" 0x0000000000000000000000000000000000000abc ")
	if err != nil || addr != testPair {
		t.Fatalf("unexpected result: %s %v", addr.Hex(), err)
	}
}
