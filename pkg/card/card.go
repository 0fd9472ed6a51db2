// Package card holds the wallet card state and its display rules.
package card

import (
	"math/big"

	"walletcard/pkg/utils"
)

const (
	Placeholder     = "..."
	FetchingAddress = "Fetching address..."
	CopyLabel       = "Copy"
	CopiedLabel     = "Copied!"

	DefaultBalanceChars = 7
)

// State is the data shown by the card.
type State struct {
	PrimaryAddress      string `json:"primary_address"`
	SmartAccountAddress string `json:"smart_account_address"`
	PrimaryBalance      string `json:"primary_balance"`
	SmartAccountBalance string `json:"smart_account_balance"`
}

func NewState(primary string) State {
	return State{
		PrimaryAddress:      primary,
		PrimaryBalance:      Placeholder,
		SmartAccountBalance: Placeholder,
	}
}

func (s *State) ResetBalances() {
	s.PrimaryBalance = Placeholder
	s.SmartAccountBalance = Placeholder
}

// FormatBalance renders wei for display. Zero is always the literal "0".
func FormatBalance(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0"
	}
	return utils.FromWei(wei)
}

func DisplayAddress(addr string) string {
	if addr == "" {
		return FetchingAddress
	}
	return addr
}

// DisplayBalance cuts a rendered balance to at most n characters.
func DisplayBalance(balance string, n int) string {
	if n <= 0 {
		n = DefaultBalanceChars
	}
	return utils.Slice(balance, n)
}

// Copy is the two-valued copy-button label. A copy is only allowed from the
// idle "Copy" state; the label flips back after the cool-down.
type Copy struct {
	label string
}

func (c Copy) Label() string {
	if c.label == "" {
		return CopyLabel
	}
	return c.label
}

func (c Copy) CoolingDown() bool {
	return c.Label() == CopiedLabel
}

// Begin reports whether a copy may proceed and, if so, enters cool-down.
func (c *Copy) Begin(addr string) bool {
	if addr == "" || c.CoolingDown() {
		return false
	}
	c.label = CopiedLabel
	return true
}

func (c *Copy) Reset() {
	c.label = CopyLabel
}
