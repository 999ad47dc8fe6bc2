package contracts

import (
	"regexp"
	"time"
)

// CommonStockPattern is the symbol shape of a plain US common stock
// (no class suffix, warrant, unit or preferred marker)
const CommonStockPattern = `^[A-Z]{1,5}$`

var commonStockRe = regexp.MustCompile(CommonStockPattern)

// IsCommonStockSymbol reports whether symbol matches CommonStockPattern
func IsCommonStockSymbol(symbol string) bool {
	return commonStockRe.MatchString(symbol)
}

// Universe is the set of tradable common stocks produced by the universe refresh
// ⭐ SSOT: S1 → 수집/시그널 대상 종목 전달
type Universe struct {
	Date       time.Time         `json:"date"`
	Symbols    []string          `json:"symbols"`
	Excluded   map[string]string `json:"excluded"` // 제외 종목: 사유
	TotalCount int               `json:"total_count,omitempty"`
}

// Contains checks if a symbol is in the universe
func (u *Universe) Contains(symbol string) bool {
	for _, s := range u.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// IsExcluded checks if a symbol is excluded with reason
func (u *Universe) IsExcluded(symbol string) (bool, string) {
	reason, exists := u.Excluded[symbol]
	return exists, reason
}

// Count returns the number of tradable symbols
func (u *Universe) Count() int {
	return len(u.Symbols)
}
