package tokens_test

import (
	"testing"

	"github.com/Cogwheel-Validator/spectra-sender/sender/tokens"
	"github.com/zeebo/assert"
)

func TestCanonicalSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"USDC", "USDC"},
		{"hUSDC", "USDC"},
		{"WETH", "ETH"},
		{"hETH", "ETH"},
		{"XDAI", "DAI"},
		{"WXDAI", "DAI"},
		{"WMATIC", "MATIC"},
		{"WBTC", "WBTC"},
		{"hWBTC", "WBTC"},
		{"sUSD", "sUSD"},
		{"hsUSD", "sUSD"},
		{"rETH", "rETH"},
		{"HOP", "HOP"},
		{"FOO", "FOO"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tokens.CanonicalSymbol(tt.in), tt.want)
		})
	}
}

func TestIsKnown(t *testing.T) {
	assert.True(t, tokens.IsKnown("hUSDC"))
	assert.True(t, tokens.IsKnown("ETH"))
	assert.False(t, tokens.IsKnown("FOO"))
}
