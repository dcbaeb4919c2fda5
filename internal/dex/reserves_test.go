package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zero-given/site33/internal/apperrors"
	"github.com/zero-given/site33/internal/chain/chaintest"
)

var pairAddr = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")

func TestPoolReaderRead(t *testing.T) {
	stub := chaintest.NewStub()
	r0 := big.NewInt(10_005_000_000)
	r1, _ := new(big.Int).SetString("10000000000000000000000", 10)
	stub.SetPool(pairAddr, usdcAddr, wethAddr, r0, r1, 1700000000)

	reader := NewPoolReader(stub, fastCalls, nil)
	state, err := reader.Read(context.Background(), pairAddr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if state.Address != pairAddr || state.Token0 != usdcAddr || state.Token1 != wethAddr {
		t.Fatalf("unexpected ordering: %+v", state)
	}
	if state.Reserve0.Cmp(r0) != 0 || state.Reserve1.Cmp(r1) != 0 {
		t.Fatalf("unexpected reserves: %s %s", state.Reserve0, state.Reserve1)
	}
	if state.BlockTimestampLast != 1700000000 {
		t.Fatalf("unexpected timestamp: %d", state.BlockTimestampLast)
	}
	if !state.Has(wethAddr) || state.Has(mkrAddr) {
		t.Fatalf("Has mismatch")
	}
}

func TestPoolReaderNeverCachesReserves(t *testing.T) {
	stub := chaintest.NewStub()
	stub.SetPool(pairAddr, usdcAddr, wethAddr, big.NewInt(100), big.NewInt(200), 1)
	stub.Push(pairAddr, "getReserves", chaintest.Response{Data: reservesWord(big.NewInt(300), big.NewInt(400))})

	reader := NewPoolReader(stub, fastCalls, nil)
	first, err := reader.Read(context.Background(), pairAddr)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := reader.Read(context.Background(), pairAddr)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if first.Reserve0.Int64() != 100 || second.Reserve0.Int64() != 300 {
		t.Fatalf("reserves not re-read: %s then %s", first.Reserve0, second.Reserve0)
	}
	if stub.Calls(pairAddr, "getReserves") != 2 {
		t.Fatalf("expected two getReserves calls")
	}
}

func TestPoolReaderEmptyPool(t *testing.T) {
	stub := chaintest.NewStub()
	stub.SetPool(pairAddr, usdcAddr, wethAddr, big.NewInt(0), big.NewInt(200), 1)

	_, err := NewPoolReader(stub, fastCalls, nil).Read(context.Background(), pairAddr)
	if !errors.Is(err, apperrors.ErrEmptyPool) {
		t.Fatalf("expected empty pool, got %v", err)
	}
}

func TestPoolReaderIdenticalTokens(t *testing.T) {
	stub := chaintest.NewStub()
	stub.SetPool(pairAddr, wethAddr, wethAddr, big.NewInt(1), big.NewInt(1), 1)

	_, err := NewPoolReader(stub, fastCalls, nil).Read(context.Background(), pairAddr)
	if !errors.Is(err, apperrors.ErrContractMismatch) {
		t.Fatalf("expected contract mismatch, got %v", err)
	}
}

func TestPoolReaderNotAPair(t *testing.T) {
	stub := chaintest.NewStub()
	// An ERC20 answers symbol/decimals but reverts on pair methods.
	stub.SetToken(usdcAddr, "USDC", 6)
	stub.Push(usdcAddr, "getReserves", chaintest.Response{Err: errors.New("execution reverted")})

	_, err := NewPoolReader(stub, fastCalls, nil).Read(context.Background(), usdcAddr)
	if !errors.Is(err, apperrors.ErrContractMismatch) {
		t.Fatalf("expected contract mismatch, got %v", err)
	}
}

func TestPoolReaderFailureCancelsSiblings(t *testing.T) {
	stub := chaintest.NewStub()
	stub.Push(pairAddr, "token0", chaintest.Response{Err: errors.New("execution reverted")})
	stub.Push(pairAddr, "token1", chaintest.Response{Block: true})
	stub.Push(pairAddr, "getReserves", chaintest.Response{Block: true})

	reader := NewPoolReader(stub, CallOptions{Timeout: time.Minute, MaxAttempts: 1}, nil)

	start := time.Now()
	_, err := reader.Read(context.Background(), pairAddr)
	if !errors.Is(err, apperrors.ErrContractMismatch) {
		t.Fatalf("expected first failure to win, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("sibling calls were not cancelled")
	}
}

func TestPoolReaderZeroAddress(t *testing.T) {
	stub := chaintest.NewStub()
	_, err := NewPoolReader(stub, fastCalls, nil).Read(context.Background(), common.Address{})
	if !errors.Is(err, apperrors.ErrInvalidIdentifier) {
		t.Fatalf("expected invalid identifier, got %v", err)
	}
}

func reservesWord(r0, r1 *big.Int) []byte {
	out := append(chaintest.Word(r0), chaintest.Word(r1)...)
	return append(out, chaintest.Word(big.NewInt(1))...)
}
