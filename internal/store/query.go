package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ApplyQuery evaluates a Query over raw documents: filter, order, limit.
// Both backends share this so query semantics cannot drift between them.
// Ordering is stable; documents missing the order field sort first ascending.
func ApplyQuery(docs []Document, q Query) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if MatchFilters(d.Data, q.Filters) {
			out = append(out, d)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			less := lessByField(out[i].Data, out[j].Data, q.OrderBy)
			if q.Desc {
				return lessByField(out[j].Data, out[i].Data, q.OrderBy)
			}
			return less
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// MatchFilters reports whether the JSON document satisfies every filter.
func MatchFilters(data []byte, filters []Filter) bool {
	if len(filters) == 0 {
		return true
	}
	fields := topLevelFields(data)
	for _, f := range filters {
		got, ok := fields[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case "in":
			values, ok := f.Value.([]any)
			if !ok {
				return false
			}
			matched := false
			for _, v := range values {
				if jsonEqual(got, v) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default: // "=="
			if !jsonEqual(got, f.Value) {
				return false
			}
		}
	}
	return true
}

func topLevelFields(data []byte) map[string]any {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}

// jsonEqual compares a decoded JSON value with a caller-supplied filter
// value. Numbers decode as float64, so numeric filter values are normalized
// before comparing; everything else falls back to string formatting, which
// also gives RFC 3339 timestamps a usable ordering.
func jsonEqual(got, want any) bool {
	if gf, ok := asFloat(got); ok {
		if wf, ok := asFloat(want); ok {
			return gf == wf
		}
		return false
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func lessByField(a, b []byte, field string) bool {
	av, aok := topLevelFields(a)[field]
	bv, bok := topLevelFields(b)[field]
	if !aok || !bok {
		return !aok && bok
	}
	if af, ok := asFloat(av); ok {
		if bf, ok := asFloat(bv); ok {
			return af < bf
		}
	}
	return fmt.Sprint(av) < fmt.Sprint(bv)
}
