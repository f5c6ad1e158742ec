package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitWithQuotes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"water quality", []string{"water", "quality"}},
		{`"open data" canada`, []string{`"open data"`, "canada"}},
		{`fish "salmon run"   "atlantic`, []string{"fish", `"salmon run"`, "atlantic"}},
		{`a"b c`, []string{`a"b`, "c"}},
	}

	for _, tt := range tests {
		if got := splitWithQuotes(tt.in); reflect.DeepEqual(got, tt.want) == false {
			t.Errorf("splitWithQuotes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchTerms(t *testing.T) {
	if got := searchTerms("  "); got != matchAllQuery {
		t.Errorf("empty search should match everything, got %q", got)
	}

	if got := searchTerms(" water\t  quality "); got != "water quality" {
		t.Errorf("unexpected terms %q", got)
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		raw  string
		max  int
		want int
	}{
		{"", 100, 1},
		{"abc", 100, 1},
		{"-4", 100, 1},
		{"0", 100, 1},
		{"7", 100, 7},
		{"500", 100, 100},
		{"20000", 0, defaultMaxPage},
	}

	for _, tt := range tests {
		if got := parsePage(tt.raw, tt.max); got != tt.want {
			t.Errorf("parsePage(%q, %d) = %d, want %d", tt.raw, tt.max, got, tt.want)
		}
	}
}

func TestStartRow(t *testing.T) {
	if got := startRow(3, 10); got != 20 {
		t.Errorf("startRow(3, 10) = %d", got)
	}

	if got := startRow(0, 10); got != 0 {
		t.Errorf("startRow(0, 10) = %d", got)
	}
}

func TestValidSort(t *testing.T) {
	allowed := []string{"score desc", "title_en_s asc"}

	if got := validSort("title_en_s asc", allowed, "score desc"); got != "title_en_s asc" {
		t.Errorf("allowed sort rejected: %q", got)
	}

	for _, raw := range []string{"", "title_en_s desc", "score desc; drop"} {
		if got := validSort(raw, allowed, "score desc"); got != "score desc" {
			t.Errorf("validSort(%q) = %q, want fallback", raw, got)
		}
	}
}

func TestIDListQuery(t *testing.T) {
	v4 := "0007a010-556d-4f83-bb8a-2b9c3a1f3ff4"
	v1 := "c232ab00-9414-11ec-b3c8-9f6bdeced846"

	q, ids := idListQuery("id_s", " "+v4+", nope,"+v1+","+v4)

	if len(ids) != 2 {
		t.Fatalf("expected 2 unique valid ids, got %v", ids)
	}

	want := `id_s:"` + v4 + `" OR id_s:"` + v1 + `"`
	if q != want {
		t.Errorf("got %q, want %q", q, want)
	}

	// nil uuid and garbage yield a query matching nothing
	q, ids = idListQuery("id_s", "00000000-0000-0000-0000-000000000000,xyz")
	if q != matchNoneQuery || ids != nil {
		t.Errorf("expected match-none query, got %q %v", q, ids)
	}

	if strings.Contains(q, "xyz") {
		t.Errorf("invalid ids must not reach the query")
	}
}
