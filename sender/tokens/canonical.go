package tokens

import "regexp"

// wrapperPrefix matches the hop ("h"), wrapped ("W") and xDai ("X") prefixes in
// front of the assets the bridge carries.
var wrapperPrefix = regexp.MustCompile(`^h?W?X?(ETH|MATIC|USDC|USDT|DAI|WBTC|HOP|SNX|sUSD|rETH)`)

// CanonicalSymbol strips wrapper prefixes, so hUSDC, WXDAI and WETH become
// USDC, DAI and ETH. Unknown symbols are returned unchanged.
func CanonicalSymbol(symbol string) string {
	return wrapperPrefix.ReplaceAllString(symbol, "$1")
}

// IsKnown reports whether symbol canonicalises to one of the bridged assets.
func IsKnown(symbol string) bool {
	return wrapperPrefix.MatchString(symbol)
}
