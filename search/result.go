package search

import (
	gojson "github.com/goccy/go-json"
)

// Hit is a single matching row.
type Hit struct {
	// Key is the row key.
	Key string
	// Field is the searched column.
	Field string
	// Index is the character offset of the first match.
	Index int
	// Value is the searched column's stored value.
	Value any
	// Count is the number of case-sensitive occurrences in the full text.
	Count int
	// Context is the snippet around the first match.
	Context string
}

// MarshalJSON renders the hit as {<field>: value, "kwCount": n, "context": snippet}.
func (h Hit) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(map[string]any{
		h.Field:   h.Value,
		"kwCount": h.Count,
		"context": h.Context,
	})
}

// Result is the outcome of a search.
type Result struct {
	// Message is MessageOK or an inline error.
	Message string
	// Total is the number of rows in the source.
	Total int
	// ResultRows is the number of hits returned.
	ResultRows int
	// Hits are in iteration order.
	Hits []Hit
	// KeepIndex selects the JSON shape of the results.
	KeepIndex bool
}

// OK reports whether the search ran.
func (r Result) OK() bool { return r.Message == MessageOK }

// ByKey returns the hits keyed by row key.
func (r Result) ByKey() map[string]Hit {
	m := make(map[string]Hit, len(r.Hits))
	for _, h := range r.Hits {
		m[h.Key] = h
	}
	return m
}

// MarshalJSON renders {"message", "total", "resultRows", "results"}. Results
// is an object keyed by row key when KeepIndex is set, otherwise an array.
// Failed searches render only the message.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK() {
		return gojson.Marshal(map[string]any{"message": r.Message})
	}

	var results any
	if r.KeepIndex {
		results = r.ByKey()
	} else {
		hits := r.Hits
		if hits == nil {
			hits = []Hit{}
		}
		results = hits
	}

	return gojson.Marshal(map[string]any{
		"message":    r.Message,
		"total":      r.Total,
		"resultRows": r.ResultRows,
		"results":    results,
	})
}
