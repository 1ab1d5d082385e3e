package analyst

import (
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/tickerlens/pkg/utils"
)

// SystemPrompt frames every analysis request.
const SystemPrompt = `You are a senior equity research analyst covering Indian listed companies on NSE and BSE.
You use Google Search to look up the latest price, results, filings and news before answering.
You never invent numbers: if a figure cannot be found, leave it null.
You reply with a single JSON object and nothing else.`

// PriceSystemPrompt frames the price-only poll.
const PriceSystemPrompt = `You are a market data assistant. Look up the latest traded price with Google Search.
Reply with a single JSON object and nothing else.`

// analysisSchema is the JSON shape the model must return.
const analysisSchema = `{
  "name": "full company name",
  "price": 0.0,
  "currency": "INR",
  "recommendation": "BUY | HOLD | SELL | AVOID",
  "risk_level": "LOW | MEDIUM | HIGH",
  "confidence": 0,
  "summary": "2-3 sentence verdict",
  "short_term_outlook": "next 1-3 months",
  "long_term_outlook": "next 1-3 years",
  "fundamentals": {
    "pe_ratio": null, "pb_ratio": null, "roe": null, "debt_to_equity": null,
    "market_cap": "e.g. ₹14,20,000 Cr", "dividend_yield": null, "eps": null
  },
  "technicals": {
    "support": null, "resistance": null, "rsi": null,
    "trend": "BULLISH | BEARISH | SIDEWAYS", "sma_50": null, "sma_200": null
  },
  "pros": ["..."],
  "cons": ["..."],
  "sources": [{"title": "...", "url": "https://..."}]
}`

// AnalysisPrompt builds the decision-forcing request for one ticker.
// headlines may be empty.
func AnalysisPrompt(symbol string, now time.Time, headlines string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the Indian stock %s (%s) as of %s.\n\n",
		symbol, exchangeName(symbol), utils.FormatDateTimeIST(now))

	b.WriteString(`## Decision rules
- Choose exactly ONE recommendation: BUY, HOLD, SELL or AVOID.
- HOLD is only for a genuinely balanced case. When the evidence is mixed or weak, prefer SELL or AVOID over HOLD.
- BUY needs a clear margin of safety on valuation AND a supportive trend.
- AVOID means the business or governance carries risk you would not take at any price.
- confidence is an integer from 0 to 100 reflecting how strongly the evidence supports your call.

## Data rules
- price is the latest traded price in the listing currency, as a plain number without symbols or commas.
- Ratios are plain numbers (roe and dividend_yield in percent). Use null for anything you could not verify.
- List at least two pros and two cons.

`)
	if headlines != "" {
		b.WriteString("## Context\n")
		b.WriteString(headlines)
		b.WriteString("\n")
	}
	b.WriteString("## Output\nReturn ONLY this JSON object, no markdown, no commentary:\n")
	b.WriteString(analysisSchema)
	return b.String()
}

// PricePrompt builds the narrow price-only request.
func PricePrompt(symbol string, now time.Time) string {
	return fmt.Sprintf(`What is the latest traded price of %s (%s) as of %s, and its percent change from the previous close?

Return ONLY this JSON object:
{"price": 0.0, "change": 0.0}

price is a plain number in the listing currency. change is a signed percent, e.g. -1.25.`,
		symbol, exchangeName(symbol), utils.FormatDateTimeIST(now))
}

func exchangeName(symbol string) string {
	switch utils.Exchange(symbol) {
	case "NSE":
		return "National Stock Exchange of India"
	case "BSE":
		return "Bombay Stock Exchange"
	default:
		return "listed security"
	}
}
