package model

import "sort"

// RecordResult is the outcome of one record in a batch stage. A non-empty
// Reason marks the record as skipped.
type RecordResult struct {
	Index  int
	Reason string
}

// Skip builds a skipped result for the record at index.
func Skip(index int, reason string) RecordResult {
	return RecordResult{Index: index, Reason: reason}
}

// ReasonCount is one aggregated skip reason.
type ReasonCount struct {
	Reason string
	Count  int
}

// SummarizeSkips aggregates skipped results by reason, most frequent first.
func SummarizeSkips(results []RecordResult) []ReasonCount {
	counts := make(map[string]int)
	for _, r := range results {
		if r.Reason != "" {
			counts[r.Reason]++
		}
	}
	out := make([]ReasonCount, 0, len(counts))
	for reason, n := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
