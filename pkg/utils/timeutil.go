package utils

import (
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// NSE cash-session window in minutes since midnight IST, both ends inclusive.
const (
	MarketOpenMinute   = 9*60 + 15  // 09:15
	MarketCloseMinute  = 15*60 + 30 // 15:30
	PreOpenStartMinute = 9 * 60     // 09:00
)

// NowIST returns the current time in IST.
func NowIST() time.Time {
	return time.Now().In(IST)
}

// minuteOfDay returns minutes since midnight of t in IST.
func minuteOfDay(t time.Time) int {
	t = t.In(IST)
	return t.Hour()*60 + t.Minute()
}

func isWeekend(t time.Time) bool {
	wd := t.In(IST).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsMarketOpen checks if the NSE market is currently open.
func IsMarketOpen() bool {
	return IsMarketOpenAt(time.Now())
}

// IsMarketOpenAt reports whether the NSE cash market is open at t:
// Monday to Friday, 09:15 to 15:30 IST inclusive. Exchange holidays are
// not considered.
func IsMarketOpenAt(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	m := minuteOfDay(t)
	return m >= MarketOpenMinute && m <= MarketCloseMinute
}

// PollInterval picks the refresh delay for t: open while the market
// trades, closed otherwise.
func PollInterval(t time.Time, open, closed time.Duration) time.Duration {
	if IsMarketOpenAt(t) {
		return open
	}
	return closed
}

// MarketStatusAt returns a display label for the market state at t.
func MarketStatusAt(t time.Time) string {
	if isWeekend(t) {
		return "CLOSED (Weekend)"
	}
	m := minuteOfDay(t)
	switch {
	case m < PreOpenStartMinute:
		return "PRE-MARKET"
	case m < MarketOpenMinute:
		return "PRE-OPEN SESSION"
	case m <= MarketCloseMinute:
		return "OPEN"
	default:
		return "CLOSED"
	}
}

// MarketStatus returns the current market status string.
func MarketStatus() string {
	return MarketStatusAt(time.Now())
}

// FormatDateTimeIST formats a time.Time to "2006-01-02 15:04:05 IST".
func FormatDateTimeIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02 15:04:05 IST")
}
