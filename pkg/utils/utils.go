package utils

import (
	"math/big"
	"strconv"
	"strings"
)

const EtherDecimals = 18

func TruncateString(str string, num int) string {
	if len(str) <= num {
		return str
	}
	if num <= 3 {
		return str[:num]
	}
	return str[0:num-3] + "..."
}

// Slice returns at most n leading runes of s.
func Slice(s string, n int) string {
	if n < 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FromWei renders wei as an exact decimal ether amount with trailing zeros
// trimmed, e.g. 1500000000000000000 -> "1.5".
func FromWei(wei *big.Int) string {
	return FromBaseUnits(wei, EtherDecimals)
}

func FromBaseUnits(amount *big.Int, decimals int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}

	sign := ""
	a := new(big.Int).Set(amount)
	if a.Sign() < 0 {
		sign = "-"
		a.Abs(a)
	}

	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart, frac := new(big.Int).QuoRem(a, denom, new(big.Int))

	if frac.Sign() == 0 {
		return sign + intPart.String()
	}

	fracStr := frac.Text(10)
	if len(fracStr) < decimals {
		fracStr = strings.Repeat("0", decimals-len(fracStr)) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	return sign + intPart.String() + "." + fracStr
}

// DisplayToFloat parses a rendered balance for charting; placeholders yield false.
func DisplayToFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
