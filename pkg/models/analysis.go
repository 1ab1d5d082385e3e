// Package models defines the data types shared across TickerLens:
// analysis results, search history and live price readings.
package models

import (
	"strings"
	"time"
	"unicode"
)

// Recommendation is the single call the model is forced to make.
type Recommendation string

const (
	RecommendationBuy   Recommendation = "BUY"
	RecommendationHold  Recommendation = "HOLD"
	RecommendationSell  Recommendation = "SELL"
	RecommendationAvoid Recommendation = "AVOID"
)

// Recommendations lists every valid recommendation, in prompt order.
var Recommendations = []Recommendation{
	RecommendationBuy,
	RecommendationHold,
	RecommendationSell,
	RecommendationAvoid,
}

// recommendationAliases maps the wordings models use in place of the four
// categories. Keys are upper case with separators collapsed to one space.
var recommendationAliases = map[string]Recommendation{
	"BUY":          RecommendationBuy,
	"STRONG BUY":   RecommendationBuy,
	"ACCUMULATE":   RecommendationBuy,
	"ADD":          RecommendationBuy,
	"OUTPERFORM":   RecommendationBuy,
	"OVERWEIGHT":   RecommendationBuy,
	"HOLD":         RecommendationHold,
	"NEUTRAL":      RecommendationHold,
	"SELL":         RecommendationSell,
	"STRONG SELL":  RecommendationSell,
	"REDUCE":       RecommendationSell,
	"EXIT":         RecommendationSell,
	"UNDERPERFORM": RecommendationSell,
	"UNDERWEIGHT":  RecommendationSell,
	"AVOID":        RecommendationAvoid,
	"STAY AWAY":    RecommendationAvoid,
}

// ParseRecommendation maps free text to a Recommendation. Common variants
// are accepted ("Strong Sell", "STRONG_BUY", "Accumulate"); for compound
// answers such as "Sell/Avoid" the first recognised word wins.
// The second return is false when nothing matched; the result is then HOLD.
func ParseRecommendation(s string) (Recommendation, bool) {
	norm := normalizeWords(s)
	if r, ok := recommendationAliases[norm]; ok {
		return r, true
	}
	negated := false
	for _, word := range strings.Fields(norm) {
		switch word {
		case "NOT", "DONT", "NEVER":
			negated = true
			continue
		}
		r, ok := recommendationAliases[word]
		if !ok {
			continue
		}
		if negated && r == RecommendationBuy {
			return RecommendationAvoid, true
		}
		return r, true
	}
	return RecommendationHold, false
}

// normalizeWords upper-cases s, drops apostrophes and turns every other
// non-alphanumeric run into a single space.
func normalizeWords(s string) string {
	s = strings.ReplaceAll(strings.ToUpper(s), "'", "")
	s = strings.ReplaceAll(s, "’", "")
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

// RiskLevel is the model's three-valued risk grade.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ParseRiskLevel maps free text to a RiskLevel, defaulting to MEDIUM.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return RiskLow, true
	case "MEDIUM", "MODERATE":
		return RiskMedium, true
	case "HIGH":
		return RiskHigh, true
	}
	return RiskMedium, false
}

// Fundamentals holds the fixed set of valuation ratios the model reports.
// Nil fields were absent or unparseable in the upstream payload.
type Fundamentals struct {
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	PBRatio       *float64 `json:"pb_ratio,omitempty"`
	ROE           *float64 `json:"roe,omitempty"`
	DebtToEquity  *float64 `json:"debt_to_equity,omitempty"`
	MarketCap     string   `json:"market_cap,omitempty"` // e.g. "₹19,27,345 Cr"
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	EPS           *float64 `json:"eps,omitempty"`
}

// Technicals holds the price levels and indicators the model reports.
type Technicals struct {
	Support    *float64 `json:"support,omitempty"`
	Resistance *float64 `json:"resistance,omitempty"`
	RSI        *float64 `json:"rsi,omitempty"`
	SMA50      *float64 `json:"sma_50,omitempty"`
	SMA200     *float64 `json:"sma_200,omitempty"`
	Trend      string   `json:"trend,omitempty"` // "BULLISH", "BEARISH", "SIDEWAYS"
}

// Source is a grounding citation: a web page the model used.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// AnalysisResult is one complete answer for one ticker. It is immutable
// once produced, except Price which live polling overwrites.
type AnalysisResult struct {
	Symbol           string         `json:"symbol"`
	Name             string         `json:"name"`
	Price            float64        `json:"price"`
	Currency         string         `json:"currency"`
	Recommendation   Recommendation `json:"recommendation"`
	RiskLevel        RiskLevel      `json:"risk_level"`
	Confidence       float64        `json:"confidence"` // 0–100
	Summary          string         `json:"summary"`
	ShortTermOutlook string         `json:"short_term_outlook"`
	LongTermOutlook  string         `json:"long_term_outlook"`
	Fundamentals     Fundamentals   `json:"fundamentals"`
	Technicals       Technicals     `json:"technicals"`
	Pros             []string       `json:"pros"`
	Cons             []string       `json:"cons"`
	Sources          []Source       `json:"sources"`
	AnalyzedAt       time.Time      `json:"analyzed_at"`
}

// HistoryEntry returns the history record for this result.
func (a *AnalysisResult) HistoryEntry(symbol string, at time.Time) HistoryEntry {
	return HistoryEntry{
		Symbol:         symbol,
		Name:           a.Name,
		Timestamp:      at,
		Recommendation: a.Recommendation,
	}
}
