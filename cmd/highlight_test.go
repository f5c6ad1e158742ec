package main

import (
	"testing"
)

var testMarkup = highlightMarkup{pre: "<mark>", post: "</mark>", preserveMulti: true}

func TestHighlightRender(t *testing.T) {
	got := testMarkup.render(`<script>x</script> <mark>water</mark> & "fish"`)
	want := `&lt;script&gt;x&lt;/script&gt; <mark>water</mark> &amp; &#34;fish&#34;`

	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSpliceHighlights(t *testing.T) {
	docs := []solrDocument{
		{
			"id":       "r1",
			"title":    "Clean water act",
			"keywords": []interface{}{"lakes", "water", "rivers"},
		},
		{
			"id":    "r2",
			"title": "Untouched",
		},
	}

	hl := solrResponseHighlighting{
		"r1": {
			"title":    {"Clean <mark>water</mark> act"},
			"keywords": {"<mark>water</mark>"},
			"absent":   {"<mark>x</mark>"},
		},
	}

	markup := testMarkup
	markup.preserveMulti = false

	n := spliceHighlights(docs, hl, "id", markup)

	if n != 2 {
		t.Errorf("expected 2 replacements, got %d", n)
	}

	if docs[0]["title"] != "Clean <mark>water</mark> act" {
		t.Errorf("scalar not replaced: %v", docs[0]["title"])
	}

	kw := docs[0]["keywords"].([]interface{})
	if kw[0] != "lakes" || kw[1] != "<mark>water</mark>" || kw[2] != "rivers" {
		t.Errorf("list value not matched by content: %v", kw)
	}

	if _, ok := docs[0]["absent"]; ok == true {
		t.Errorf("fields missing from the document must not be added")
	}

	if docs[1]["title"] != "Untouched" {
		t.Errorf("documents without highlights must not change")
	}
}

func TestSpliceHighlightsPreserveMulti(t *testing.T) {
	docs := []solrDocument{
		{"id": "r1", "keywords": []interface{}{"lakes", "water"}},
	}

	hl := solrResponseHighlighting{
		"r1": {"keywords": {"lakes", "<mark>water</mark>"}},
	}

	if n := spliceHighlights(docs, hl, "id", testMarkup); n != 2 {
		t.Errorf("expected positional replacement of both values, got %d", n)
	}

	if kw := docs[0]["keywords"].([]interface{}); kw[1] != "<mark>water</mark>" {
		t.Errorf("unexpected keywords %v", kw)
	}
}
