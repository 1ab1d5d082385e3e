package utils

import (
	"strings"
)

// NSESuffix is the Yahoo-style suffix for the primary Indian exchange.
const NSESuffix = ".NS"

// NormalizeSymbol prepares a user-supplied ticker for the upstream query.
// Surrounding whitespace and a leading "$" are dropped. A bare symbol gets
// the NSE suffix; anything already carrying an exchange suffix (any ".")
// passes through unchanged. Case is preserved.
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimPrefix(strings.TrimSpace(symbol), "$")
	if symbol == "" {
		return ""
	}
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + NSESuffix
}

// BaseSymbol strips the .NS or .BO suffix to get the bare exchange ticker.
func BaseSymbol(symbol string) string {
	symbol = strings.TrimSuffix(symbol, ".NS")
	symbol = strings.TrimSuffix(symbol, ".BO")
	return symbol
}

// Exchange names the exchange a normalized symbol trades on.
func Exchange(symbol string) string {
	switch {
	case strings.HasSuffix(symbol, ".NS"):
		return "NSE"
	case strings.HasSuffix(symbol, ".BO"):
		return "BSE"
	default:
		return ""
	}
}
