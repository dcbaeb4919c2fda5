package model

import (
	"errors"
	"testing"

	"github.com/zero-given/site33/internal/apperrors"
)

func TestParseAddressCanonicalizes(t *testing.T) {
	const checksummed = "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"

	inputs := []string{
		checksummed,
		"0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc",
		"0xB4E16D0168E52D35CACD2C6185B44281EC28C9DC",
		"  b4e16d0168e52d35cacd2c6185b44281ec28c9dc ",
	}
	for _, input := range inputs {
		addr, err := ParseAddress(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if addr.Hex() != checksummed {
			t.Fatalf("canonical mismatch for %q: %s", input, addr.Hex())
		}
	}
}

func TestParseAddressRejects(t *testing.T) {
	inputs := []string{
		"",
		"0x123",
		"0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9DcFF",
		"0xzz4e16d0168e52d35cacd2c6185b44281ec28c9d",
		// checksum with two letters flipped
		"0xb4E16d0168e52d35CaCD2c6185b44281Ec28C9Dc",
		"0x0000000000000000000000000000000000000000",
	}
	for _, input := range inputs {
		if _, err := ParseAddress(input); !errors.Is(err, apperrors.ErrInvalidIdentifier) {
			t.Fatalf("expected invalid identifier for %q, got %v", input, err)
		}
	}
}
