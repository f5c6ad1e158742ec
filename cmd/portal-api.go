package main

import (
	"fmt"
	"html/template"
	"strings"
)

// schemas

// DatasetIdentity holds localized information about a dataset.
type DatasetIdentity struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	ExportURL   string `json:"export_url,omitempty"`
}

// SortOption is a selectable sort order for a dataset.
type SortOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// FacetBucket contains the fields for an individual bucket for a facet.
type FacetBucket struct {
	Value     string `json:"value"`
	Count     int    `json:"count"`
	Selected  bool   `json:"selected,omitempty"`
	ToggleURL string `json:"toggle_url"`
}

// Facet contains the fields for a single facet.
type Facet struct {
	Param    string        `json:"param"`
	Field    string        `json:"field"`
	Label    string        `json:"label"`
	Buckets  []FacetBucket `json:"buckets"`
	Selected []string      `json:"selected,omitempty"`
}

// RecordField is a labelled, display-ready document value.
type RecordField struct {
	Label  string          `json:"label"`
	Values []template.HTML `json:"values"`
}

// Record is a single search result.
type Record struct {
	ID        string        `json:"id"`
	Title     template.HTML `json:"title"`
	URL       string        `json:"url,omitempty"`
	DetailURL string        `json:"detail_url,omitempty"`
	Fields    []RecordField `json:"fields"`
	doc       solrDocument
}

// Raw returns an unformatted document value, e.g. for templates that need
// a field not listed for display.
func (r Record) Raw(field string) string {
	return strings.Join(documentStrings(r.doc, field), ", ")
}

// SearchPage is the model behind the search page, and the JSON api response.
type SearchPage struct {
	Language         string          `json:"language"`
	Dataset          DatasetIdentity `json:"dataset"`
	SearchText       string          `json:"search_text"`
	IDs              []string        `json:"ids,omitempty"`
	Sort             string          `json:"sort"`
	SortOptions      []SortOption    `json:"sort_options"`
	Total            int             `json:"total"`
	Pagination       pageNavigation  `json:"pagination"`
	PageURLs         map[int]string  `json:"-"`
	FacetDelimiter   string          `json:"-"`
	Records          []Record        `json:"records"`
	Facets           []Facet         `json:"facets"`
	ClearURL         string          `json:"clear_url"`
	OtherLanguageURL string          `json:"other_language_url"`
	ElapsedMS        int64           `json:"elapsed_ms"`
}

// RecordPage is the model behind a record detail page.
type RecordPage struct {
	Language         string          `json:"language"`
	Dataset          DatasetIdentity `json:"dataset"`
	Record           Record          `json:"record"`
	OtherLanguageURL string          `json:"other_language_url"`
}

// ErrorPage is the model behind not-found and failure pages.
type ErrorPage struct {
	Language         string `json:"language"`
	Status           int    `json:"status"`
	Title            string `json:"title"`
	Message          string `json:"message,omitempty"`
	OtherLanguageURL string `json:"other_language_url,omitempty"`
}

// documentStrings renders a document value (scalar or multi-valued) as strings
func documentStrings(doc solrDocument, field string) []string {
	val, ok := doc[field]
	if ok == false || val == nil {
		return nil
	}

	switch v := val.(type) {
	case []interface{}:
		var res []string
		for _, item := range v {
			res = append(res, fmt.Sprintf("%v", item))
		}
		return res

	case string:
		return []string{v}

	case float64:
		return []string{facetKeyString(v)}

	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

func documentString(doc solrDocument, field string) string {
	return firstElementOf(documentStrings(doc, field))
}
