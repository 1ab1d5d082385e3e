package models

import "time"

// MaxHistoryEntries bounds the recent-search list.
const MaxHistoryEntries = 10

// HistoryEntry records one successful search.
type HistoryEntry struct {
	Symbol         string         `json:"symbol"`
	Name           string         `json:"name"`
	Timestamp      time.Time      `json:"timestamp"`
	Recommendation Recommendation `json:"recommendation"`
}

// History is the recent-search list, most recent first. It never holds
// more than MaxHistoryEntries entries or two entries with the same symbol.
type History []HistoryEntry

// Add returns a new list with e at the front. Any earlier entry with the
// same symbol (case-sensitive) is dropped and the result is truncated.
func (h History) Add(e HistoryEntry) History {
	out := make(History, 0, MaxHistoryEntries)
	out = append(out, e)
	for _, old := range h {
		if len(out) == MaxHistoryEntries {
			break
		}
		if old.Symbol == e.Symbol {
			continue
		}
		out = append(out, old)
	}
	return out
}

// Normalize enforces the list invariants on data read back from storage.
func (h History) Normalize() History {
	out := make(History, 0, MaxHistoryEntries)
	seen := make(map[string]bool, len(h))
	for _, e := range h {
		if len(out) == MaxHistoryEntries {
			break
		}
		if seen[e.Symbol] {
			continue
		}
		seen[e.Symbol] = true
		out = append(out, e)
	}
	return out
}

// Symbols returns the symbols in list order.
func (h History) Symbols() []string {
	s := make([]string, len(h))
	for i, e := range h {
		s[i] = e.Symbol
	}
	return s
}
