package utils

import (
	"strings"
	"unicode"
)

// Common KRX name aliases. The directory of all listed names is an external
// collaborator; these cover shorthand users type into the CLI.
var tickerAliases = map[string]string{
	"삼성전자":    "005930",
	"SAMSUNG":  "005930",
	"SK하이닉스":  "000660",
	"HYNIX":    "000660",
	"NAVER":    "035420",
	"네이버":     "035420",
	"카카오":     "035720",
	"KAKAO":    "035720",
	"현대차":     "005380",
	"현대자동차":   "005380",
	"HYUNDAI":  "005380",
	"기아":      "000270",
	"KIA":      "000270",
	"LG화학":    "051910",
	"셀트리온":    "068270",
	"POSCO홀딩스": "005490",
	"KB금융":    "105560",
	"신한지주":    "055550",
}

// NormalizeTicker normalizes a user-input ticker to the canonical 6-digit KRX code.
// It handles aliases, the "A" prefix used by some data vendors, exchange suffixes
// (".KS", ".KQ") and zero padding of short numeric codes.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}

	ticker = strings.TrimSuffix(ticker, ".KS")
	ticker = strings.TrimSuffix(ticker, ".KQ")

	if len(ticker) == 7 && ticker[0] == 'A' && isDigits(ticker[1:]) {
		ticker = ticker[1:]
	}

	if isDigits(ticker) && len(ticker) < 6 {
		ticker = strings.Repeat("0", 6-len(ticker)) + ticker
	}

	return ticker
}

// IsValidTicker reports whether ticker is a 6-character KRX short code.
// Codes are numeric except for a few newer listings that end in a letter.
func IsValidTicker(ticker string) bool {
	if len(ticker) != 6 {
		return false
	}
	if !isDigits(ticker[:5]) {
		return false
	}
	last := rune(ticker[5])
	return unicode.IsDigit(last) || (last >= 'A' && last <= 'Z')
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
