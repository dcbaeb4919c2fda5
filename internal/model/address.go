package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zero-given/site33/internal/apperrors"
)

// ParseAddress validates a hex identifier and returns its canonical form.
// All-lower and all-upper inputs are accepted as-is; mixed case must carry a
// valid EIP-55 checksum.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("%w: %q is not a 20-byte hex address", apperrors.ErrInvalidIdentifier, input)
	}

	addr := common.HexToAddress(input)
	digits := input
	if has0xPrefix(digits) {
		digits = digits[2:]
	}
	if isMixedCase(digits) && "0x"+digits != addr.Hex() {
		return common.Address{}, fmt.Errorf("%w: %q has an invalid checksum", apperrors.ErrInvalidIdentifier, input)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", apperrors.ErrInvalidIdentifier)
	}
	return addr, nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
