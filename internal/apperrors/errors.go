// Package apperrors defines the error kinds surfaced by price resolution.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidIdentifier is returned for malformed token or pool identifiers.
	// It is always raised before any remote call.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrRemoteUnavailable marks transport or timeout failures. Transient.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrContractMismatch is returned when a contract does not expose the
	// expected read interface or answers with out-of-domain values.
	ErrContractMismatch = errors.New("contract mismatch")

	// ErrEmptyPool is returned when either pool reserve is zero.
	ErrEmptyPool = errors.New("empty pool")

	// ErrDataIntegrity is returned when the same token reports conflicting
	// decimals within one session.
	ErrDataIntegrity = errors.New("data integrity")

	// ErrUnroutable is returned when the target pool cannot be priced through
	// the reference pool with a single intermediate unit.
	ErrUnroutable = errors.New("unroutable")
)

var kinds = []error{
	ErrInvalidIdentifier,
	ErrRemoteUnavailable,
	ErrContractMismatch,
	ErrEmptyPool,
	ErrDataIntegrity,
	ErrUnroutable,
}

// Kind returns the first error kind found in err's chain, or nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// Hop names one stage of a two-hop price derivation.
type Hop string

const (
	HopTarget    Hop = "target"
	HopReference Hop = "reference"
)

// HopError attributes a failure to the hop that produced it.
type HopError struct {
	Hop  Hop
	Pool common.Address
	Err  error
}

func (e *HopError) Error() string {
	return fmt.Sprintf("failed while resolving %s pool %s: %v", e.Hop, e.Pool.Hex(), e.Err)
}

func (e *HopError) Unwrap() error {
	return e.Err
}

// FailedHop extracts the hop a failure is attributed to.
func FailedHop(err error) (Hop, bool) {
	var hopErr *HopError
	if errors.As(err, &hopErr) {
		return hopErr.Hop, true
	}
	return "", false
}
