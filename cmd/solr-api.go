package main

import "encoding/json"

type solrRequestParams struct {
	DefType string   `json:"defType,omitempty"`
	Wt      string   `json:"wt,omitempty"`
	Sort    string   `json:"sort,omitempty"`
	Start   int      `json:"start"`
	Rows    int      `json:"rows"`
	Fl      []string `json:"fl,omitempty"`
	Fq      []string `json:"fq,omitempty"`
	Q       string   `json:"q,omitempty"`
	Qf      string   `json:"qf,omitempty"`

	// facet options
	Facet         string   `json:"facet,omitempty"`
	FacetSort     string   `json:"facet.sort,omitempty"`
	FacetField    []string `json:"facet.field,omitempty"`
	FacetMinCount string   `json:"facet.mincount,omitempty"`

	// phrase/boost options
	Pf  string `json:"pf,omitempty"`
	Pf2 string `json:"pf2,omitempty"`
	Pf3 string `json:"pf3,omitempty"`
	Ps  string `json:"ps,omitempty"`
	Mm  string `json:"mm,omitempty"`
	Bq  string `json:"bq,omitempty"`

	// highlighter options
	Hl              string `json:"hl,omitempty"`
	HlMethod        string `json:"hl.method,omitempty"`
	HlFl            string `json:"hl.fl,omitempty"`
	HlSnippets      string `json:"hl.snippets,omitempty"`
	HlSimplePre     string `json:"hl.simple.pre,omitempty"`
	HlSimplePost    string `json:"hl.simple.post,omitempty"`
	HlTagPre        string `json:"hl.tag.pre,omitempty"`
	HlTagPost       string `json:"hl.tag.post,omitempty"`
	HlPreserveMulti string `json:"hl.preserveMulti,omitempty"`

	// per-field overrides, e.g. "f.keywords_en_s.facet.limit"
	PerField map[string]string `json:"-"`
}

// MarshalJSON flattens per-field overrides in alongside the fixed parameters
func (p solrRequestParams) MarshalJSON() ([]byte, error) {
	type plain solrRequestParams

	base, err := json.Marshal(plain(p))
	if err != nil || len(p.PerField) == 0 {
		return base, err
	}

	merged := make(map[string]interface{})
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}

	for k, v := range p.PerField {
		merged[k] = v
	}

	return json.Marshal(merged)
}

type solrRequestJSON struct {
	Params solrRequestParams `json:"params"`
}

type solrRequest struct {
	json    solrRequestJSON
	handler string
}

type solrResponseHeader struct {
	Status int `json:"status,omitempty"`
	QTime  int `json:"QTime,omitempty"`
}

type solrDocument map[string]interface{}

type solrResponseDocuments struct {
	NumFound int            `json:"numFound,omitempty"`
	Start    int            `json:"start,omitempty"`
	MaxScore float32        `json:"maxScore,omitempty"`
	Docs     []solrDocument `json:"docs,omitempty"`
}

type solrResponseHighlighting map[string]map[string][]string

// decoded from the raw "facet_counts" block
type solrFacetCounts struct {
	FacetFields map[string][]interface{} `json:"facet_fields"`
}

type solrError struct {
	Metadata []string `json:"metadata,omitempty"`
	Msg      string   `json:"msg,omitempty"`
	Code     int      `json:"code,omitempty"`
}

// a catch-all for search, export and ping responses
type solrResponse struct {
	ResponseHeader solrResponseHeader       `json:"responseHeader,omitempty"`
	Response       solrResponseDocuments    `json:"response,omitempty"`
	Highlighting   solrResponseHighlighting `json:"highlighting,omitempty"`
	FacetsRaw      map[string]interface{}   `json:"facet_counts,omitempty"`
	Facets         solrFacetCounts          `json:"-"` // will be parsed from FacetsRaw
	Error          solrError                `json:"error,omitempty"`
	Status         string                   `json:"status,omitempty"`
}

// schema api responses
type solrSchemaField struct {
	Name string `json:"name"`
}

type solrSchemaFields struct {
	ResponseHeader solrResponseHeader `json:"responseHeader,omitempty"`
	Fields         []solrSchemaField  `json:"fields,omitempty"`
	DynamicFields  []solrSchemaField  `json:"dynamicFields,omitempty"`
}
