package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/tickerlens/pkg/models"
)

// payload is the loose shape of an analysis response. Keys are looked up
// in snake_case first, then camelCase.
type payload map[string]any

func (p payload) get(keys ...string) any {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (p payload) str(keys ...string) string {
	switch v := p.get(keys...).(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p payload) sub(keys ...string) payload {
	if m, ok := p.get(keys...).(map[string]any); ok {
		return payload(m)
	}
	return payload{}
}

func (p payload) list(keys ...string) []string {
	out := []string{}
	switch v := p.get(keys...).(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p payload) sources() []models.Source {
	out := []models.Source{}
	items, _ := p.get("sources", "citations").([]any)
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			src := payload(v)
			u := src.str("url", "uri", "link")
			if u == "" {
				continue
			}
			out = append(out, models.Source{Title: src.str("title", "name"), URL: u})
		case string:
			if s := strings.TrimSpace(v); strings.HasPrefix(s, "http") {
				out = append(out, models.Source{Title: s, URL: s})
			}
		}
	}
	return out
}

// DecodeAnalysis extracts an analysis from model text and maps it onto
// models.AnalysisResult. Unknown or missing fields take documented
// defaults: HOLD, MEDIUM risk, INR, the symbol as name, and empty lists.
func DecodeAnalysis(text, symbol string, now time.Time) (*models.AnalysisResult, error) {
	var p payload
	if err := JSON(text, &p); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: null object", ErrUnparseablePayload)
	}

	rec, _ := models.ParseRecommendation(p.str("recommendation", "verdict", "action"))
	risk, _ := models.ParseRiskLevel(p.str("risk_level", "riskLevel", "risk"))

	result := &models.AnalysisResult{
		Symbol:           symbol,
		Name:             p.str("name", "company_name", "companyName"),
		Price:            Number(p.get("price", "current_price", "currentPrice")),
		Currency:         strings.ToUpper(p.str("currency")),
		Recommendation:   rec,
		RiskLevel:        risk,
		Confidence:       clamp(Number(p.get("confidence", "confidence_score", "confidenceScore")), 0, 100),
		Summary:          p.str("summary"),
		ShortTermOutlook: p.str("short_term_outlook", "shortTermOutlook"),
		LongTermOutlook:  p.str("long_term_outlook", "longTermOutlook"),
		Fundamentals:     decodeFundamentals(p.sub("fundamentals")),
		Technicals:       decodeTechnicals(p.sub("technicals", "technical_indicators", "technicalIndicators")),
		Pros:             p.list("pros", "strengths"),
		Cons:             p.list("cons", "risks", "weaknesses"),
		Sources:          p.sources(),
		AnalyzedAt:       now,
	}
	if result.Name == "" {
		result.Name = symbol
	}
	if result.Currency == "" {
		result.Currency = "INR"
	}
	return result, nil
}

func decodeFundamentals(p payload) models.Fundamentals {
	return models.Fundamentals{
		PERatio:       OptionalNumber(p.get("pe_ratio", "peRatio", "pe")),
		PBRatio:       OptionalNumber(p.get("pb_ratio", "pbRatio", "pb")),
		ROE:           OptionalNumber(p.get("roe")),
		DebtToEquity:  OptionalNumber(p.get("debt_to_equity", "debtToEquity")),
		MarketCap:     p.str("market_cap", "marketCap"),
		DividendYield: OptionalNumber(p.get("dividend_yield", "dividendYield")),
		EPS:           OptionalNumber(p.get("eps")),
	}
}

func decodeTechnicals(p payload) models.Technicals {
	return models.Technicals{
		Support:    OptionalNumber(p.get("support")),
		Resistance: OptionalNumber(p.get("resistance")),
		RSI:        OptionalNumber(p.get("rsi")),
		SMA50:      OptionalNumber(p.get("sma_50", "sma50", "fifty_day_ma", "fiftyDayMA")),
		SMA200:     OptionalNumber(p.get("sma_200", "sma200", "two_hundred_day_ma", "twoHundredDayMA")),
		Trend:      strings.ToUpper(p.str("trend")),
	}
}

// Quote is the price-only poll payload.
type Quote struct {
	Price  float64
	Change float64
}

// DecodeQuote extracts {"price": .., "change": ..} from model text.
func DecodeQuote(text string) (Quote, error) {
	var p payload
	if err := JSON(text, &p); err != nil {
		return Quote{}, err
	}
	return Quote{
		Price:  Number(p.get("price", "current_price", "currentPrice")),
		Change: signedNumber(p.get("change", "change_percent", "changePercent")),
	}, nil
}

// signedNumber is Number that keeps a leading minus sign, for percent change.
func signedNumber(v any) float64 {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "−") {
			return -Number(s)
		}
	}
	return Number(v)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
