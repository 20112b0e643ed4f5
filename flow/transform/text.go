package transform

import (
	"math/big"
	"strings"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Decimal encodes integers as base-10 strings.
func Decimal() core.Mapper[*big.Int, string] {
	return core.Map(func(v *big.Int) (string, error) {
		return v.String(), nil
	})
}

// Lines terminates each string with a newline unless it already has one.
func Lines() core.Mapper[string, string] {
	return core.Map(func(s string) (string, error) {
		if strings.HasSuffix(s, "\n") {
			return s, nil
		}
		return s + "\n", nil
	})
}
