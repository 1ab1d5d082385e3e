package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/seenimoa/tickerlens/pkg/models"
	"github.com/seenimoa/tickerlens/pkg/utils"
)

var recommendationIcon = map[models.Recommendation]string{
	models.RecommendationBuy:   "🟢",
	models.RecommendationHold:  "🟡",
	models.RecommendationSell:  "🔴",
	models.RecommendationAvoid: "⛔",
}

// printReport renders an analysis for the terminal.
func printReport(w io.Writer, r *models.AnalysisResult) {
	rule := strings.Repeat("═", 55)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s (%s)\n", r.Name, r.Symbol)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Price:          %s\n", utils.FormatPrice(r.Price, r.Currency))
	fmt.Fprintf(w, "  Recommendation: %s %s\n", recommendationIcon[r.Recommendation], r.Recommendation)
	fmt.Fprintf(w, "  Risk:           %s\n", r.RiskLevel)
	fmt.Fprintf(w, "  Confidence:     %.0f%%\n", r.Confidence)
	fmt.Fprintf(w, "  Analyzed:       %s\n", utils.FormatDateTimeIST(r.AnalyzedAt))

	if r.Summary != "" {
		fmt.Fprintf(w, "\n  %s\n", r.Summary)
	}
	if r.ShortTermOutlook != "" {
		fmt.Fprintf(w, "\n  Short term: %s\n", r.ShortTermOutlook)
	}
	if r.LongTermOutlook != "" {
		fmt.Fprintf(w, "  Long term:  %s\n", r.LongTermOutlook)
	}

	f := r.Fundamentals
	fmt.Fprintln(w, "\n  Fundamentals:")
	fmt.Fprintf(w, "    P/E %s   P/B %s   ROE %s   D/E %s\n",
		utils.FormatOptional(f.PERatio), utils.FormatOptional(f.PBRatio),
		utils.FormatOptional(f.ROE), utils.FormatOptional(f.DebtToEquity))
	fmt.Fprintf(w, "    EPS %s   Div Yield %s   Market Cap %s\n",
		utils.FormatOptional(f.EPS), utils.FormatOptional(f.DividendYield), orNA(f.MarketCap))

	t := r.Technicals
	fmt.Fprintln(w, "  Technicals:")
	fmt.Fprintf(w, "    Support %s   Resistance %s   RSI %s\n",
		utils.FormatOptional(t.Support), utils.FormatOptional(t.Resistance), utils.FormatOptional(t.RSI))
	fmt.Fprintf(w, "    SMA50 %s   SMA200 %s   Trend %s\n",
		utils.FormatOptional(t.SMA50), utils.FormatOptional(t.SMA200), orNA(t.Trend))

	printList(w, "Pros", "+", r.Pros)
	printList(w, "Cons", "-", r.Cons)

	if len(r.Sources) > 0 {
		fmt.Fprintln(w, "\n  Sources:")
		for i, s := range r.Sources {
			title := s.Title
			if title == "" {
				title = s.URL
			}
			fmt.Fprintf(w, "    [%d] %s\n        %s\n", i+1, title, s.URL)
		}
	}
	fmt.Fprintln(w, rule)
}

func printList(w io.Writer, heading, bullet string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n  %s:\n", heading)
	for _, item := range items {
		fmt.Fprintf(w, "    %s %s\n", bullet, item)
	}
}

// printHistory renders recent searches, most recent first.
func printHistory(w io.Writer, h models.History) {
	if len(h) == 0 {
		fmt.Fprintln(w, "No recent searches.")
		return
	}
	for i, e := range h {
		fmt.Fprintf(w, "%2d. %-14s %-6s %s  %s\n",
			i+1, e.Symbol, e.Recommendation, utils.FormatDateTimeIST(e.Timestamp), e.Name)
	}
}

// formatLivePrice renders one price reading.
func formatLivePrice(symbol string, p models.LivePrice) string {
	return fmt.Sprintf("%s  %s  (%s)", symbol, utils.FormatPrice(p.Price, "INR"), utils.FormatPct(p.Change))
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
