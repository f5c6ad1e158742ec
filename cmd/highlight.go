package main

import (
	"html"
	"html/template"
	"strings"
)

type highlightMarkup struct {
	pre           string
	post          string
	preserveMulti bool
}

func (h highlightMarkup) strip(s string) string {
	if h.pre != "" {
		s = strings.ReplaceAll(s, h.pre, "")
	}

	if h.post != "" {
		s = strings.ReplaceAll(s, h.post, "")
	}

	return s
}

// render escapes a (possibly highlighted) value for html output, keeping
// only the highlight markup itself intact
func (h highlightMarkup) render(s string) template.HTML {
	escaped := html.EscapeString(s)

	if h.pre != "" {
		escaped = strings.ReplaceAll(escaped, html.EscapeString(h.pre), h.pre)
	}

	if h.post != "" {
		escaped = strings.ReplaceAll(escaped, html.EscapeString(h.post), h.post)
	}

	return template.HTML(escaped)
}

// spliceHighlights replaces document field values with their highlighted
// fragments.  scalar fields take the first fragment.  list fields are paired
// by position when Solr preserved all values in order, otherwise by matching
// the de-highlighted fragment against each value.
func spliceHighlights(docs []solrDocument, hl solrResponseHighlighting, idField string, markup highlightMarkup) int {
	replaced := 0

	for _, doc := range docs {
		id, ok := doc[idField].(string)
		if ok == false {
			continue
		}

		fields, ok := hl[id]
		if ok == false {
			continue
		}

		for field, fragments := range fields {
			if len(fragments) == 0 {
				continue
			}

			val, ok := doc[field]
			if ok == false {
				continue
			}

			switch v := val.(type) {
			case []interface{}:
				replaced += spliceList(v, fragments, markup)

			default:
				doc[field] = fragments[0]
				replaced++
			}
		}
	}

	return replaced
}

func spliceList(values []interface{}, fragments []string, markup highlightMarkup) int {
	replaced := 0

	if markup.preserveMulti == true && len(values) == len(fragments) {
		for i := range values {
			if _, ok := values[i].(string); ok == true {
				values[i] = fragments[i]
				replaced++
			}
		}

		return replaced
	}

	for _, fragment := range fragments {
		plain := markup.strip(fragment)

		for i := range values {
			if s, ok := values[i].(string); ok == true && s == plain {
				values[i] = fragment
				replaced++
				break
			}
		}
	}

	return replaced
}
