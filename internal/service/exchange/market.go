package exchange

import (
	"fmt"
	"strings"
)

// TradingPair 交易对
type TradingPair struct {
	Base  string
	Quote string
}

// 常见 Quote 列表, 按长度优先匹配
var knownQuotes = []string{"FDUSD", "USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

func SplitSymbol(s string) (string, string) {
	s = strings.ToUpper(s)
	for _, q := range knownQuotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	// fallback
	return s, ""
}

// ParseTradingPair accepts BTC/USDT, BTC-USDT and BTCUSDT.
func ParseTradingPair(s string) (TradingPair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, sep := range []string{"/", "-", "_"} {
		if base, quote, ok := strings.Cut(s, sep); ok {
			if base == "" || quote == "" {
				return TradingPair{}, fmt.Errorf("invalid trading pair %q", s)
			}
			return TradingPair{Base: base, Quote: quote}, nil
		}
	}
	base, quote := SplitSymbol(s)
	if quote == "" {
		return TradingPair{}, fmt.Errorf("invalid trading pair %q: unknown quote asset", s)
	}
	return TradingPair{Base: base, Quote: quote}, nil
}

func (s TradingPair) IsZero() bool {
	return s.Base == "" || s.Quote == ""
}

func (s TradingPair) ToString() string {
	return s.Base + s.Quote
}

func (s TradingPair) ToSlashString() string {
	return s.Base + "/" + s.Quote
}
