package flow

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/chainvalet/chainvalet/internal/ledger"
)

func nonEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must not be empty", what)
		}
		return nil
	}
}

func validSymbol(s string) error {
	s = strings.TrimSpace(s)
	if len(s) < 1 || len(s) > 11 {
		return fmt.Errorf("symbol must be 1-11 characters")
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		default:
			return fmt.Errorf("symbol must be alphanumeric")
		}
	}
	return nil
}

func positiveInteger(s string) error {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || n.Sign() <= 0 {
		return fmt.Errorf("enter a positive whole number")
	}
	return nil
}

func positiveDecimal(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return fmt.Errorf("enter a positive amount")
	}
	return nil
}

func validAddress(s string) error {
	if !ledger.IsHexAddress(strings.TrimSpace(s)) {
		return fmt.Errorf("enter a 0x-prefixed address")
	}
	return nil
}

func validRecipient(s string) error {
	s = strings.TrimSpace(s)
	if ledger.IsHexAddress(s) {
		return nil
	}
	if strings.Contains(s, ".") && len(s) > 3 {
		return nil
	}
	return fmt.Errorf("enter a 0x-prefixed address or an ENS name")
}

func validEnsName(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasSuffix(s, ".eth") || len(s) < 5 {
		return fmt.Errorf("enter a name ending in .eth")
	}
	return nil
}
