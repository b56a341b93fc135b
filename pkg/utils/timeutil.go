package utils

import (
	"time"
)

// KST is the Korea Standard Time location (UTC+9).
var KST *time.Location

func init() {
	var err error
	KST, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		KST = time.FixedZone("KST", 9*60*60)
	}
}

// NowKST returns the current time in KST.
func NowKST() time.Time {
	return time.Now().In(KST)
}

// MarketOpenTime returns the KRX regular session opening time (9:00 AM KST) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(KST)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, KST)
}

// MarketCloseTime returns the KRX regular session closing time (3:30 PM KST) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(KST)
	return time.Date(d.Year(), d.Month(), d.Day(), 15, 30, 0, 0, KST)
}

// PreOpenStart returns the pre-market single-price auction start (8:30 AM KST).
func PreOpenStart(date time.Time) time.Time {
	d := date.In(KST)
	return time.Date(d.Year(), d.Month(), d.Day(), 8, 30, 0, 0, KST)
}

// IsMarketOpenAt checks if the KRX regular session would be open at the given time.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(KST)
	if !IsTradingDay(t) {
		return false
	}
	return !t.Before(MarketOpenTime(t)) && !t.After(MarketCloseTime(t))
}

// IsTradingDay checks if the given date is a trading day (not weekend, not holiday).
func IsTradingDay(t time.Time) bool {
	t = t.In(KST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// PrevTradingDay returns the previous trading day from the given date.
// Quotes fetched outside the session refer to this day's close.
func PrevTradingDay(from time.Time) time.Time {
	prev := from.In(KST).AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// IsTradingHoliday checks if the given date is a KRX market holiday.
// This list should be updated annually.
func IsTradingHoliday(t time.Time) bool {
	_, isHoliday := krxHolidays2026[t.In(KST).Format("2006-01-02")]
	return isHoliday
}

// KRX market holidays for 2026 (update annually).
var krxHolidays2026 = map[string]string{
	"2026-01-01": "신정",
	"2026-02-16": "설날 연휴",
	"2026-02-17": "설날",
	"2026-02-18": "설날 연휴",
	"2026-03-02": "삼일절 대체공휴일",
	"2026-05-01": "근로자의 날",
	"2026-05-05": "어린이날",
	"2026-05-25": "부처님오신날 대체공휴일",
	"2026-06-03": "전국동시지방선거",
	"2026-08-17": "광복절 대체공휴일",
	"2026-09-24": "추석 연휴",
	"2026-09-25": "추석",
	"2026-10-05": "개천절 대체공휴일",
	"2026-10-09": "한글날",
	"2026-12-25": "성탄절",
	"2026-12-31": "연말 휴장일",
}

// FormatDateKST formats a time.Time to "2006-01-02" in KST.
func FormatDateKST(t time.Time) string {
	return t.In(KST).Format("2006-01-02")
}

// FormatDateTimeKST formats a time.Time to "2006-01-02 15:04:05 KST".
func FormatDateTimeKST(t time.Time) string {
	return t.In(KST).Format("2006-01-02 15:04:05 KST")
}

// MarketStatus returns the current market status string.
func MarketStatus() string {
	return MarketStatusAt(NowKST())
}

// MarketStatusAt returns the market status string at the given time.
func MarketStatusAt(now time.Time) string {
	now = now.In(KST)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}

	if IsTradingHoliday(now) {
		return "CLOSED (" + krxHolidays2026[now.Format("2006-01-02")] + ")"
	}

	switch {
	case now.Before(PreOpenStart(now)):
		return "PRE-MARKET"
	case now.Before(MarketOpenTime(now)):
		return "PRE-OPEN AUCTION"
	case !now.After(MarketCloseTime(now)):
		return "OPEN"
	default:
		return "CLOSED"
	}
}
