package main

import (
	"fmt"
	"strconv"
	"strings"
)

// functions that map portal requests into solr requests

func (s *searchContext) baseSolrRequest(handler string) *solrRequest {
	req := solrRequest{handler: handler}

	req.json.Params.DefType = "edismax"
	req.json.Params.Wt = "json"
	req.json.Params.Q = s.params.terms
	req.json.Params.Qf = s.dataset.queryFields

	return &req
}

func (s *searchContext) buildFacets(req *solrRequest) {
	if len(s.dataset.facets) == 0 {
		return
	}

	req.json.Params.Facet = "on"
	req.json.Params.FacetSort = "index"

	for _, f := range s.dataset.facets {
		req.json.Params.FacetField = append(req.json.Params.FacetField, facetFieldParam(f.Field))

		if f.Limit != 0 {
			s.setPerField(req, f.Field, "facet.limit", strconv.Itoa(f.Limit))
		}

		if f.Sort != "" {
			s.setPerField(req, f.Field, "facet.sort", f.Sort)
		}
	}
}

func (s *searchContext) setPerField(req *solrRequest, field, param, value string) {
	if req.json.Params.PerField == nil {
		req.json.Params.PerField = make(map[string]string)
	}

	req.json.Params.PerField[fmt.Sprintf("f.%s.%s", field, param)] = value
}

func (s *searchContext) buildFilters(req *solrRequest) {
	if s.params.idMode == true {
		return
	}

	req.json.Params.Fq = buildFilterQueries(s.params.selections, s.dataset.def.FacetDelimiter)

	for _, fq := range req.json.Params.Fq {
		s.client.debug("filter: [%s]", fq)
	}
}

// search-term extras only make sense when there is something to match
func (s *searchContext) buildRelevancy(req *solrRequest) {
	if s.params.terms == matchAllQuery || s.params.idMode == true {
		return
	}

	d := s.dataset
	p := &req.json.Params

	if len(d.highlight) > 0 {
		p.Hl = "on"
		p.HlMethod = d.def.Highlight.Method
		p.HlSimplePre = d.def.Highlight.Pre
		p.HlSimplePost = d.def.Highlight.Post
		p.HlTagPre = d.def.Highlight.Pre
		p.HlTagPost = d.def.Highlight.Post
		p.HlSnippets = strconv.Itoa(d.def.Highlight.Snippets)
		p.HlFl = strings.Join(d.highlight, ",")
		p.HlPreserveMulti = strconv.FormatBool(d.markup.preserveMulti)
	}

	p.Pf = d.pf
	p.Pf2 = d.pf2
	p.Pf3 = d.pf3
	p.Mm = d.def.Phrase.MM
	p.Bq = d.bq

	if d.def.Phrase.PS > 0 {
		p.Ps = strconv.Itoa(d.def.Phrase.PS)
	}
}

func (s *searchContext) solrSearchRequest() *solrRequest {
	req := s.baseSolrRequest(s.dataset.def.Solr.Handler)

	p := &req.json.Params

	p.Start = startRow(s.params.page, s.dataset.def.PageSize)
	p.Rows = s.dataset.def.PageSize
	p.Fl = s.dataset.fields
	p.Sort = s.params.sort

	s.buildFacets(req)
	s.buildFilters(req)
	s.buildRelevancy(req)

	return req
}

// export requests are not paginated and use a deterministic sort
func (s *searchContext) solrExportRequest() *solrRequest {
	req := s.baseSolrRequest(s.dataset.def.Solr.ExportHandler)

	p := &req.json.Params

	p.Fl = s.dataset.exportFields
	p.Sort = s.dataset.exportSort

	s.buildFilters(req)

	if s.params.terms != matchAllQuery && s.params.idMode == false {
		p.Mm = s.dataset.def.Phrase.MM
	}

	return req
}

func (s *searchContext) solrRecordRequest(id string) *solrRequest {
	req := solrRequest{handler: s.dataset.def.Solr.Handler}

	p := &req.json.Params

	p.Wt = "json"
	p.Q = fmt.Sprintf(`%s:"%s"`, s.dataset.def.IDField, filterValueEscaper.Replace(id))
	p.Rows = 1
	p.Fl = s.dataset.fields

	return &req
}
