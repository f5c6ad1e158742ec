package main

import (
	"context"
	"errors"
	"html"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type searchParams struct {
	text       string
	terms      string
	page       int
	sort       string
	ids        []string
	idMode     bool
	selections []facetSelection
	selected   map[string][]string // facet param -> selected values
}

type searchContext struct {
	portal  *portalContext
	client  *clientContext
	dataset *datasetView
	core    *solrCore
	query   url.Values
	params  searchParams
	solrReq *solrRequest
	solrRes *solrResponse
}

type searchResponse struct {
	status int         // http status code
	data   interface{} // data to return as JSON or render
	err    error       // error, if any
}

var errRecordNotFound = errors.New("record not found")

func (s *searchContext) init(p *portalContext, c *clientContext, slug string) {
	s.portal = p
	s.client = c
	s.dataset = p.datasets.view(slug, c.lang)
	s.core = p.cores[slug]

	if c.ginCtx != nil {
		s.query = c.ginCtx.Request.URL.Query()
	} else {
		s.query = url.Values{}
	}
}

func (s *searchContext) log(format string, args ...interface{}) {
	s.client.log(format, args...)
}

func (s *searchContext) err(format string, args ...interface{}) {
	s.client.err(format, args...)
}

// parseParams collects search text, paging, sort, id list and facet
// selections from the query string.  invalid values fall back quietly.
func (s *searchContext) parseParams() {
	d := s.dataset

	s.params = searchParams{
		text:     strings.TrimSpace(s.query.Get("search_text")),
		page:     parsePage(s.query.Get("page"), d.def.MaxPage),
		sort:     validSort(s.query.Get("sort"), d.sortValues, d.defaultSort),
		selected: make(map[string][]string),
	}

	s.params.terms = searchTerms(s.params.text)

	if raw := s.query.Get("ids"); raw != "" && d.def.IDsField != "" {
		s.params.idMode = true
		s.params.terms, s.params.ids = idListQuery(d.def.IDsField, raw)
		s.log("id list mode: %d valid id(s)", len(s.params.ids))
		return
	}

	for _, f := range d.facets {
		raw := s.query.Get(f.Param)
		if raw == "" {
			continue
		}

		values := splitFacetValues(raw, d.def.FacetDelimiter)
		if len(values) == 0 {
			continue
		}

		s.params.selections = append(s.params.selections, facetSelection{field: f.Field, raw: raw})
		s.params.selected[f.Param] = values
	}
}

func (s *searchContext) performQuery(ctx context.Context, req *solrRequest) searchResponse {
	s.log("**********  START SOLR QUERY  **********")

	s.solrReq = req

	res, err := s.core.query(ctx, s.client.logger, req)

	s.log("**********   END SOLR QUERY   **********")

	if err != nil {
		s.err("query execution error: %s", err.Error())
		return searchResponse{status: solrErrorStatus(err), err: err}
	}

	s.solrRes = res

	return searchResponse{status: http.StatusOK}
}

func (s *searchContext) handleSearchRequest() searchResponse {
	s.parseParams()

	if resp := s.performQuery(s.client.ginCtxContext(), s.solrSearchRequest()); resp.err != nil {
		return resp
	}

	n := spliceHighlights(s.solrRes.Response.Docs, s.solrRes.Highlighting, s.dataset.def.IDField, s.dataset.markup)
	s.client.debug("spliced %d highlight fragment(s)", n)

	return searchResponse{status: http.StatusOK, data: s.buildSearchPage()}
}

func (s *searchContext) handleRecordRequest(id string) searchResponse {
	if s.dataset.def.RecordView == false {
		return searchResponse{status: http.StatusNotFound, err: errRecordNotFound}
	}

	if resp := s.performQuery(s.client.ginCtxContext(), s.solrRecordRequest(id)); resp.err != nil {
		return resp
	}

	if len(s.solrRes.Response.Docs) == 0 {
		return searchResponse{status: http.StatusNotFound, err: errRecordNotFound}
	}

	page := RecordPage{
		Language:         s.client.lang,
		Dataset:          s.identity(),
		Record:           s.buildRecord(s.solrRes.Response.Docs[0]),
		OtherLanguageURL: recordPath(s.client.otherLanguage(), s.dataset.def.Slug, id),
	}

	return searchResponse{status: http.StatusOK, data: page}
}

func (s *searchContext) identity() DatasetIdentity {
	d := s.dataset.def

	id := DatasetIdentity{
		Slug:        d.Slug,
		Title:       s.client.localize(d.TitleXID),
		Description: s.client.localize(d.DescriptionXID),
		URL:         datasetPath(s.client.lang, d.Slug),
	}

	if d.exportEnabled() == true {
		id.ExportURL = exportPath(s.client.lang, d.Slug)
	}

	return id
}

func (s *searchContext) buildSearchPage() SearchPage {
	d := s.dataset
	base := datasetPath(s.client.lang, d.def.Slug)
	total := s.solrRes.Response.NumFound

	page := SearchPage{
		Language:         s.client.lang,
		Dataset:          s.identity(),
		SearchText:       s.params.text,
		IDs:              s.params.ids,
		Sort:             s.params.sort,
		Total:            total,
		Pagination:       newPageNavigation(total, d.def.PageSize, s.params.page),
		PageURLs:         make(map[int]string),
		FacetDelimiter:   d.def.FacetDelimiter,
		ClearURL:         base,
		OtherLanguageURL: pageURL(datasetPath(s.client.otherLanguage(), d.def.Slug), s.query, s.params.page),
		ElapsedMS:        int64(time.Since(s.client.start) / time.Millisecond),
	}

	if page.Dataset.ExportURL != "" && len(s.query) > 0 {
		page.Dataset.ExportURL += "?" + s.query.Encode()
	}

	for _, p := range page.Pagination.Pages {
		if p > 0 {
			page.PageURLs[p] = pageURL(base, s.query, p)
		}
	}

	for _, opt := range d.sortOptions {
		page.SortOptions = append(page.SortOptions, SortOption{
			Value:    opt.Value,
			Label:    s.client.localize(opt.XID),
			Selected: opt.Value == s.params.sort,
		})
	}

	for _, doc := range s.solrRes.Response.Docs {
		page.Records = append(page.Records, s.buildRecord(doc))
	}

	page.Facets = s.buildFacetList(base)

	return page
}

func (s *searchContext) buildFacetList(base string) []Facet {
	var facets []Facet

	for _, f := range s.dataset.facets {
		raw, ok := s.solrRes.Facets.FacetFields[f.Field]
		if ok == false {
			continue
		}

		counts := decodeFacetList(raw, f.Reverse)
		selected := s.params.selected[f.Param]

		facet := Facet{
			Param:    f.Param,
			Field:    f.Field,
			Label:    s.client.localize(f.XID),
			Selected: selected,
		}

		for _, key := range counts.Keys() {
			facet.Buckets = append(facet.Buckets, FacetBucket{
				Value:     key,
				Count:     counts.Count(key),
				Selected:  sliceContainsString(selected, key, false),
				ToggleURL: s.toggleURL(base, f.Param, key),
			})
		}

		facets = append(facets, facet)
	}

	return facets
}

// toggleURL adds or removes one facet value from the current selection,
// returning to the first page
func (s *searchContext) toggleURL(base, param, value string) string {
	q := url.Values{}
	for k, v := range s.query {
		if k != "page" && k != param {
			q[k] = v
		}
	}

	var values []string
	found := false

	for _, v := range s.params.selected[param] {
		if v == value {
			found = true
			continue
		}
		values = append(values, v)
	}

	if found == false {
		values = append(values, value)
	}

	if len(values) > 0 {
		q.Set(param, strings.Join(values, s.dataset.def.FacetDelimiter))
	}

	if enc := q.Encode(); enc != "" {
		return base + "?" + enc
	}

	return base
}

func (s *searchContext) buildRecord(doc solrDocument) Record {
	d := s.dataset
	lang := s.client.lang

	id := documentString(doc, d.def.IDField)

	r := Record{
		ID:    id,
		Title: d.markup.render(documentString(doc, d.displayTitle)),
		URL:   getLocalizedURL(d.def.RecordURL, lang, id),
		doc:   doc,
	}

	if d.def.RecordView == true {
		r.DetailURL = recordPath(lang, d.def.Slug, id)
	}

	for _, f := range d.displayFields {
		var values []template.HTML

		switch f.Format {
		case "money":
			if val, ok := doc[f.Field]; ok == true {
				values = append(values, template.HTML(html.EscapeString(formatMoney(val, lang))))
			}

		case "date":
			for _, v := range documentStrings(doc, f.Field) {
				values = append(values, template.HTML(html.EscapeString(formatDate(v))))
			}

		case "bilingual":
			for _, v := range documentStrings(doc, f.Field) {
				values = append(values, d.markup.render(bilingualValue(v, lang)))
			}

		default:
			for _, v := range documentStrings(doc, f.Field) {
				values = append(values, d.markup.render(v))
			}
		}

		if len(values) == 0 {
			continue
		}

		r.Fields = append(r.Fields, RecordField{Label: s.client.localize(f.XID), Values: values})
	}

	return r
}
