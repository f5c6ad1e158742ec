package main

import (
	"net/url"
	"strconv"
	"strings"
)

const langPattern = "{lang}"

type urlTemplate struct {
	Template string `yaml:"template" json:"template,omitempty"`
	Pattern  string `yaml:"pattern" json:"pattern,omitempty"`
}

func getGenericURL(t urlTemplate, id string) string {
	if t.Template == "" || t.Pattern == "" {
		return ""
	}

	if strings.Contains(t.Template, t.Pattern) == false {
		return ""
	}

	return strings.Replace(t.Template, t.Pattern, url.PathEscape(id), -1)
}

func getLocalizedURL(t urlTemplate, lang, id string) string {
	localized := urlTemplate{
		Template: strings.Replace(t.Template, langPattern, lang, -1),
		Pattern:  t.Pattern,
	}

	return getGenericURL(localized, id)
}

func datasetPath(lang, slug string) string {
	return "/" + lang + "/" + slug + "/"
}

func exportPath(lang, slug string) string {
	return datasetPath(lang, slug) + "export/"
}

func recordPath(lang, slug, id string) string {
	return datasetPath(lang, slug) + "record/" + url.PathEscape(id)
}

// pageURL rewrites the page parameter of the current query string
func pageURL(base string, query url.Values, page int) string {
	q := url.Values{}

	for k, v := range query {
		if k != "page" {
			q[k] = v
		}
	}

	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}

	if enc := q.Encode(); enc != "" {
		return base + "?" + enc
	}

	return base
}
