package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// facetCounts is an ordered facet value -> count mapping, as decoded from
// the flat [value, count, value, count, ...] lists Solr returns.
type facetCounts struct {
	keys   []string
	counts map[string]int
}

func newFacetCounts() *facetCounts {
	return &facetCounts{counts: make(map[string]int)}
}

func (f *facetCounts) set(key string, count int) {
	if _, ok := f.counts[key]; ok == false {
		f.keys = append(f.keys, key)
	}

	f.counts[key] = count
}

// Keys returns facet values in iteration order.
func (f *facetCounts) Keys() []string {
	return f.keys
}

// Count returns the count for a facet value, or zero if absent.
func (f *facetCounts) Count(key string) int {
	return f.counts[key]
}

// Len is the number of distinct facet values.
func (f *facetCounts) Len() int {
	return len(f.keys)
}

func facetKeyString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func facetCountInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		n, err := val.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(val)
		return n, err == nil
	}

	return 0, false
}

// decodeFacetList converts a flat alternating key/count list into an ordered
// mapping.  a trailing key without a count is dropped.  when reverse is set,
// keys are ordered by descending lexical value instead of input order.
func decodeFacetList(list []interface{}, reverse bool) *facetCounts {
	f := newFacetCounts()

	for i := 0; i+1 < len(list); i += 2 {
		count, ok := facetCountInt(list[i+1])
		if ok == false {
			continue
		}

		f.set(facetKeyString(list[i]), count)
	}

	if reverse == true {
		sort.Sort(sort.Reverse(sort.StringSlice(f.keys)))
	}

	return f
}

// encodeFacetList is the inverse of decodeFacetList.
func encodeFacetList(f *facetCounts) []interface{} {
	list := make([]interface{}, 0, 2*f.Len())

	for _, key := range f.keys {
		list = append(list, key, f.counts[key])
	}

	return list
}
