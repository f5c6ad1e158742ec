package main

import (
	"fmt"
	"strings"
)

const defaultFacetDelimiter = "|"

// facetSelection is the raw value a user supplied for one facet
type facetSelection struct {
	field string
	raw   string
}

var filterValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func facetTag(field string) string {
	return "tag_" + field
}

// facetFieldParam requests a facet while ignoring its own filter, so
// selecting one value does not hide the alternatives.
func facetFieldParam(field string) string {
	return fmt.Sprintf("{!ex=%s}%s", facetTag(field), field)
}

func splitFacetValues(raw, delimiter string) []string {
	if delimiter == "" {
		delimiter = defaultFacetDelimiter
	}

	var values []string

	for _, v := range strings.Split(raw, delimiter) {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}

	return values
}

func filterQuery(field string, values []string) string {
	var quoted []string

	for _, v := range values {
		quoted = append(quoted, `"`+filterValueEscaper.Replace(v)+`"`)
	}

	return fmt.Sprintf("{!tag=%s}%s:(%s)", facetTag(field), field, strings.Join(quoted, " OR "))
}

// buildFilterQueries emits one tagged fq clause per facet with a nonempty
// selection.  values within a facet are OR'ed; facets are AND'ed by Solr.
func buildFilterQueries(selections []facetSelection, delimiter string) []string {
	var fqs []string

	for _, sel := range selections {
		values := splitFacetValues(sel.raw, delimiter)

		if len(values) == 0 {
			continue
		}

		fqs = append(fqs, filterQuery(sel.field, values))
	}

	return fqs
}
