// Package utils provides common utility functions for krxvalue.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// Korean large-number units in KRW.
const (
	Man = 1e4  // 만
	Eok = 1e8  // 억
	Jo  = 1e12 // 조
)

// FormatKRW formats a won amount with thousands separators and a 원 suffix.
// e.g., 71500 → "71,500원"
func FormatKRW(amount float64) string {
	return FormatNumber(amount, 0) + "원"
}

// FormatKRWCompact formats a raw won amount in 조/억 notation.
// e.g., 4.27e14 → "427조", 1.5e12 → "1조 5,000억", 3.2e9 → "32억"
func FormatKRWCompact(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}

	switch {
	case amount >= Jo:
		jo := math.Floor(amount / Jo)
		eok := math.Round((amount - jo*Jo) / Eok)
		if eok == 0 {
			return fmt.Sprintf("%s%s조", sign, FormatNumber(jo, 0))
		}
		return fmt.Sprintf("%s%s조 %s억", sign, FormatNumber(jo, 0), FormatNumber(eok, 0))
	case amount >= Eok:
		return fmt.Sprintf("%s%s억", sign, FormatNumber(math.Round(amount/Eok), 0))
	case amount >= Man:
		return fmt.Sprintf("%s%s만", sign, FormatNumber(math.Round(amount/Man), 0))
	default:
		return fmt.Sprintf("%s%s원", sign, FormatNumber(amount, 0))
	}
}

// ToEok converts a raw won amount to 억원.
func ToEok(amount float64) float64 {
	return amount / Eok
}

// FromEok converts 억원 to a raw won amount.
func FromEok(eok float64) float64 {
	return eok * Eok
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatNumber formats n with comma thousands grouping and the given number of decimals.
// e.g., FormatNumber(1234567.891, 2) → "1,234,567.89"
func FormatNumber(n float64, decimals int) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "-"
	}
	s := fmt.Sprintf("%.*f", decimals, n)

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + fracPart
	if negative && strings.Trim(out, "0.,") != "" {
		return "-" + out
	}
	return out
}
