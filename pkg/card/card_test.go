package card

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBalance(t *testing.T) {
	assert.Equal(t, "0", FormatBalance(nil))
	assert.Equal(t, "0", FormatBalance(big.NewInt(0)))
	assert.Equal(t, "0", FormatBalance(new(big.Int)))

	wei, _ := new(big.Int).SetString("1234567890000000000", 10)
	assert.Equal(t, "1.23456789", FormatBalance(wei))
	assert.Equal(t, "1.23456", DisplayBalance(FormatBalance(wei), 7))

	assert.Equal(t, "0.00000", DisplayBalance(FormatBalance(big.NewInt(1)), 7))
}

func TestDisplayBalance(t *testing.T) {
	assert.Equal(t, Placeholder, DisplayBalance(Placeholder, 7))
	assert.Equal(t, "0", DisplayBalance("0", 7))
	assert.Equal(t, "12.3456", DisplayBalance("12.345678", 0))
	assert.Equal(t, "12", DisplayBalance("12.345678", 2))
}

func TestDisplayAddress(t *testing.T) {
	assert.Equal(t, FetchingAddress, DisplayAddress(""))
	assert.Equal(t, "0xabc", DisplayAddress("0xabc"))
}

func TestState(t *testing.T) {
	s := NewState("0xabc")
	assert.Equal(t, Placeholder, s.PrimaryBalance)
	assert.Equal(t, Placeholder, s.SmartAccountBalance)
	assert.Empty(t, s.SmartAccountAddress)

	s.PrimaryBalance = "1"
	s.SmartAccountBalance = "2"
	s.ResetBalances()
	assert.Equal(t, Placeholder, s.PrimaryBalance)
	assert.Equal(t, Placeholder, s.SmartAccountBalance)
	assert.Equal(t, "0xabc", s.PrimaryAddress)
}

func TestCopy(t *testing.T) {
	var c Copy
	assert.Equal(t, CopyLabel, c.Label())

	assert.False(t, c.Begin(""), "no address, no copy")
	assert.Equal(t, CopyLabel, c.Label())

	assert.True(t, c.Begin("0xabc"))
	assert.Equal(t, CopiedLabel, c.Label())
	assert.True(t, c.CoolingDown())

	assert.False(t, c.Begin("0xabc"), "second click during cool-down is ignored")

	c.Reset()
	assert.Equal(t, CopyLabel, c.Label())
	assert.True(t, c.Begin("0xabc"))
}
