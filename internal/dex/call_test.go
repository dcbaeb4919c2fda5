package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/zero-given/site33/internal/apperrors"
	"github.com/zero-given/site33/internal/chain/chaintest"
	"github.com/zero-given/site33/internal/chain/mock"
)

type revertError struct{}

func (revertError) Error() string  { return "execution reverted" }
func (revertError) ErrorCode() int { return 3 }

func TestContractCallRetriesRemoteFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	caller := mock.NewMockCaller(ctrl)

	pairABI, err := V2PairABI()
	require.NoError(t, err)

	want := chaintest.Word(big.NewInt(1))
	gomock.InOrder(
		caller.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
			Return(nil, errors.New("429 too many requests")),
		caller.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
			DoAndReturn(func(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
				require.Equal(t, pairAddr, *msg.To)
				return want, nil
			}),
	)

	opts := CallOptions{Timeout: time.Second, MaxAttempts: 3, BackoffBase: time.Millisecond}
	resp, err := contractCall(context.Background(), caller, opts, pairAddr, pairABI, "token0", zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, want, resp)
}

func TestContractCallDoesNotRetryReverts(t *testing.T) {
	ctrl := gomock.NewController(t)
	caller := mock.NewMockCaller(ctrl)

	pairABI, err := V2PairABI()
	require.NoError(t, err)

	caller.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, revertError{}).
		Times(1)

	opts := CallOptions{Timeout: time.Second, MaxAttempts: 3, BackoffBase: time.Millisecond}
	_, err = contractCall(context.Background(), caller, opts, pairAddr, pairABI, "getReserves", zap.NewNop())
	require.ErrorIs(t, err, apperrors.ErrContractMismatch)
}

func TestContractCallGivesUpAfterMaxAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	caller := mock.NewMockCaller(ctrl)

	pairABI, err := V2PairABI()
	require.NoError(t, err)

	caller.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("dial tcp: connection refused")).
		Times(2)

	opts := CallOptions{Timeout: time.Second, MaxAttempts: 2, BackoffBase: time.Millisecond}
	_, err = contractCall(context.Background(), caller, opts, pairAddr, pairABI, "token1", zap.NewNop())
	require.ErrorIs(t, err, apperrors.ErrRemoteUnavailable)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		attempts++
		cancel()
		return apperrors.ErrRemoteUnavailable
	})
	require.ErrorIs(t, err, apperrors.ErrRemoteUnavailable)
	require.Equal(t, 1, attempts)
}

func TestCallOptionsBudget(t *testing.T) {
	opts := CallOptions{Timeout: time.Second, MaxAttempts: 3, BackoffBase: 100 * time.Millisecond}
	require.Equal(t, 3*time.Second+300*time.Millisecond, opts.Budget())

	// Sleeps stop doubling at 32x the base.
	capped := CallOptions{Timeout: time.Millisecond, MaxAttempts: 8, BackoffBase: time.Millisecond}
	require.Equal(t, 8*time.Millisecond+95*time.Millisecond, capped.Budget())

	single := CallOptions{Timeout: time.Second, MaxAttempts: 1}
	require.Equal(t, time.Second, single.Budget())
}
