// Package chaintest provides an in-memory chain.Caller that answers pair and
// ERC20 reads, for tests that need deterministic remote behavior.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const stubABIJSON = `[
  {"inputs": [], "name": "token0", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "token1", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getReserves", "outputs": [{"type": "uint112"}, {"type": "uint112"}, {"type": "uint32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

var stubABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(stubABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Response is one scripted answer. Block makes the call wait for its context.
type Response struct {
	Data  []byte
	Err   error
	Block bool
}

type key struct {
	to     common.Address
	method string
}

// Stub answers calls from scripted responses. Each (address, method) has a
// queue; the last response is sticky. Unknown calls return empty data, as a
// node does for an address without code.
type Stub struct {
	mu        sync.Mutex
	responses map[key][]Response
	calls     map[key]int
}

func NewStub() *Stub {
	return &Stub{
		responses: make(map[key][]Response),
		calls:     make(map[key]int),
	}
}

// SetToken scripts ERC20 symbol and decimals answers.
func (s *Stub) SetToken(token common.Address, symbol string, decimals uint8) {
	s.Push(token, "decimals", Response{Data: mustPack("decimals", decimals)})
	s.Push(token, "symbol", Response{Data: mustPack("symbol", symbol)})
}

// SetPool scripts pair token0, token1 and getReserves answers.
func (s *Stub) SetPool(pool, token0, token1 common.Address, reserve0, reserve1 *big.Int, ts uint32) {
	s.Push(pool, "token0", Response{Data: mustPack("token0", token0)})
	s.Push(pool, "token1", Response{Data: mustPack("token1", token1)})
	s.Push(pool, "getReserves", Response{Data: mustPack("getReserves", reserve0, reserve1, ts)})
}

// Push appends a response to the queue of (to, method).
func (s *Stub) Push(to common.Address, method string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{to: to, method: method}
	s.responses[k] = append(s.responses[k], resp)
}

// Reset drops every scripted response for (to, method).
func (s *Stub) Reset(to common.Address, method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.responses, key{to: to, method: method})
}

// Calls returns how many times (to, method) was called.
func (s *Stub) Calls(to common.Address, method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key{to: to, method: method}]
}

// CallContract implements chain.Caller.
func (s *Stub) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("chaintest: malformed call")
	}
	method, err := stubABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, nil
	}

	resp, ok := s.next(key{to: *msg.To, method: method.Name})
	if !ok {
		return nil, nil
	}
	if resp.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resp.Data, resp.Err
}

func (s *Stub) next(k key) (Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[k]++
	queue := s.responses[k]
	if len(queue) == 0 {
		return Response{}, false
	}
	resp := queue[0]
	if len(queue) > 1 {
		s.responses[k] = queue[1:]
	}
	return resp, true
}

// Word left-pads v into a single 32-byte ABI word.
func Word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

// Bytes32 right-pads s into a bytes32 ABI word.
func Bytes32(s string) []byte {
	return common.RightPadBytes([]byte(s), 32)
}

func mustPack(method string, values ...interface{}) []byte {
	data, err := stubABI.Methods[method].Outputs.Pack(values...)
	if err != nil {
		panic(fmt.Sprintf("chaintest: pack %s: %v", method, err))
	}
	return data
}
