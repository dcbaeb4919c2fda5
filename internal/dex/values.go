package dex

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zero-given/site33/internal/apperrors"
)

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("%w: unsupported address type %T", apperrors.ErrContractMismatch, value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("%w: unsupported int type %T", apperrors.ErrContractMismatch, value)
	}
}

// asDecimals validates a decoded decimals value against the uint8 domain.
func asDecimals(value interface{}) (uint8, error) {
	v, err := asBigInt(value)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || v.Cmp(big.NewInt(255)) > 0 {
		return 0, fmt.Errorf("%w: decimals %s out of range", apperrors.ErrContractMismatch, v.String())
	}
	return uint8(v.Uint64()), nil
}

func asUint32(value interface{}) uint32 {
	if v, ok := value.(uint32); ok {
		return v
	}
	return 0
}
