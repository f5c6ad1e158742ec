package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// dataset definitions describe everything that differs between searchable
// datasets.  field names may carry a {lang} placeholder that is resolved
// per request language.

var solrFieldSpecPattern = regexp.MustCompile(`^([A-Za-z0-9_{}]+)(?:~([0-9]+))?(?:\^([0-9]*\.?[0-9]+))?$`)

// datasetField is a Solr field reference with optional phrase slop and boost,
// written in YAML as Solr does: "title_txt_{lang}~3^10"
type datasetField struct {
	Name  string
	Slop  int
	Boost float64
}

func parseDatasetField(spec string) (datasetField, error) {
	m := solrFieldSpecPattern.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return datasetField{}, fmt.Errorf("invalid field specification: [%s]", spec)
	}

	f := datasetField{Name: m[1]}

	if m[2] != "" {
		f.Slop, _ = strconv.Atoi(m[2])
	}

	if m[3] != "" {
		f.Boost, _ = strconv.ParseFloat(m[3], 64)
	}

	return f, nil
}

func (f *datasetField) UnmarshalYAML(value *yaml.Node) error {
	var spec string
	if err := value.Decode(&spec); err != nil {
		return err
	}

	parsed, err := parseDatasetField(spec)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*f = parsed

	return nil
}

func (f datasetField) resolve(lang string) string {
	return localizeFieldName(f.Name, lang)
}

func (f datasetField) param(lang string) string {
	s := f.resolve(lang)

	if f.Slop > 0 {
		s += "~" + strconv.Itoa(f.Slop)
	}

	if f.Boost > 0 {
		s += "^" + strconv.FormatFloat(f.Boost, 'f', -1, 64)
	}

	return s
}

func localizeFieldName(name, lang string) string {
	return strings.Replace(name, langPattern, lang, -1)
}

func localizeFieldNames(names []string, lang string) []string {
	var res []string

	for _, name := range names {
		res = append(res, localizeFieldName(name, lang))
	}

	return res
}

func fieldParams(fields []datasetField, lang string) string {
	var params []string

	for _, f := range fields {
		params = append(params, f.param(lang))
	}

	return strings.Join(params, " ")
}

type datasetSolr struct {
	Core          string `yaml:"core"`
	Handler       string `yaml:"handler"`
	ExportHandler string `yaml:"export_handler"`
}

type datasetHighlight struct {
	Fields        []string `yaml:"fields"`
	Pre           string   `yaml:"pre"`
	Post          string   `yaml:"post"`
	Method        string   `yaml:"method"`
	Snippets      int      `yaml:"snippets"`
	PreserveMulti *bool    `yaml:"preserve_multi"`
}

type datasetPhrase struct {
	PS  int            `yaml:"ps"`
	MM  string         `yaml:"mm"`
	BQ  string         `yaml:"bq"`
	PF  []datasetField `yaml:"pf"`
	PF2 []datasetField `yaml:"pf2"`
	PF3 []datasetField `yaml:"pf3"`
}

type datasetSortOption struct {
	Value string `yaml:"value"`
	XID   string `yaml:"xid"`
}

type datasetSort struct {
	Default string              `yaml:"default"`
	Options []datasetSortOption `yaml:"options"`
}

type datasetFacet struct {
	Param   string `yaml:"param"`
	XID     string `yaml:"xid"`
	Field   string `yaml:"field"`
	Reverse bool   `yaml:"reverse"`
	Limit   int    `yaml:"limit"`
	Sort    string `yaml:"sort"`
}

type datasetExport struct {
	Enabled *bool    `yaml:"enabled"`
	Fields  []string `yaml:"fields"`
	Sort    string   `yaml:"sort"`
}

type datasetDisplayField struct {
	Field  string `yaml:"field"`
	XID    string `yaml:"xid"`
	Format string `yaml:"format"` // "", "list", "bilingual", "money", "date"
}

type datasetDisplay struct {
	Title  string                `yaml:"title"`
	Fields []datasetDisplayField `yaml:"fields"`
}

type datasetDefinition struct {
	Slug           string           `yaml:"slug"`
	Enabled        *bool            `yaml:"enabled"`
	TitleXID       string           `yaml:"title_xid"`
	DescriptionXID string           `yaml:"description_xid"`
	Solr           datasetSolr      `yaml:"solr"`
	IDField        string           `yaml:"id_field"`
	IDsField       string           `yaml:"ids_field"`
	PageSize       int              `yaml:"page_size"`
	MaxPage        int              `yaml:"max_page"`
	FacetDelimiter string           `yaml:"facet_delimiter"`
	RecordView     bool             `yaml:"record_view"`
	RecordURL      urlTemplate      `yaml:"record_url"`
	PageCache      int              `yaml:"page_cache"`
	LogQueries     bool             `yaml:"log_queries"`
	Fields         []string         `yaml:"fields"`
	QueryFields    []datasetField   `yaml:"query_fields"`
	Highlight      datasetHighlight `yaml:"highlight"`
	Phrase         datasetPhrase    `yaml:"phrase"`
	Sort           datasetSort      `yaml:"sort"`
	Facets         []datasetFacet   `yaml:"facets"`
	Export         datasetExport    `yaml:"export"`
	Display        datasetDisplay   `yaml:"display"`
}

func (d *datasetDefinition) isEnabled() bool {
	return d.Enabled == nil || *d.Enabled == true
}

func (d *datasetDefinition) exportEnabled() bool {
	return d.Export.Enabled == nil || *d.Export.Enabled == true
}

func (d *datasetDefinition) applyDefaults() {
	if d.Solr.Handler == "" {
		d.Solr.Handler = "select"
	}

	if d.Solr.ExportHandler == "" {
		d.Solr.ExportHandler = "export"
	}

	if d.IDField == "" {
		d.IDField = "id"
	}

	if d.PageSize <= 0 {
		d.PageSize = defaultPageSize
	}

	if d.MaxPage <= 0 {
		d.MaxPage = defaultMaxPage
	}

	if d.FacetDelimiter == "" {
		d.FacetDelimiter = defaultFacetDelimiter
	}

	if d.Highlight.Pre == "" {
		d.Highlight.Pre = "<mark>"
	}

	if d.Highlight.Post == "" {
		d.Highlight.Post = "</mark>"
	}

	if d.Highlight.Method == "" {
		d.Highlight.Method = "unified"
	}

	if d.Highlight.Snippets <= 0 {
		d.Highlight.Snippets = 10
	}

	if d.Highlight.PreserveMulti == nil {
		preserve := true
		d.Highlight.PreserveMulti = &preserve
	}

	if d.Export.Sort == "" {
		d.Export.Sort = d.IDField + " asc"
	}

	if d.RecordURL.Template != "" && d.RecordURL.Pattern == "" {
		d.RecordURL.Pattern = "{id}"
	}
}

// resolvedFacet is a facet definition for one language
type resolvedFacet struct {
	Param   string
	XID     string
	Field   string
	Reverse bool
	Limit   int
	Sort    string
}

// datasetView is a dataset definition resolved for one language
type datasetView struct {
	def            *datasetDefinition
	lang           string
	fields         []string
	queryFields    string
	highlight      []string
	markup         highlightMarkup
	pf             string
	pf2            string
	pf3            string
	bq             string
	sortOptions    []datasetSortOption
	sortValues     []string
	defaultSort    string
	facets         []resolvedFacet
	exportFields   []string
	exportSort     string
	facetsByParams map[string]resolvedFacet
	displayTitle   string
	displayFields  []datasetDisplayField
}

func (d *datasetDefinition) view(lang string) *datasetView {
	v := datasetView{
		def:            d,
		lang:           lang,
		fields:         uniqueStrings(localizeFieldNames(d.Fields, lang)),
		queryFields:    fieldParams(d.QueryFields, lang),
		highlight:      localizeFieldNames(d.Highlight.Fields, lang),
		pf:             fieldParams(d.Phrase.PF, lang),
		pf2:            fieldParams(d.Phrase.PF2, lang),
		pf3:            fieldParams(d.Phrase.PF3, lang),
		bq:             localizeFieldName(d.Phrase.BQ, lang),
		defaultSort:    localizeFieldName(d.Sort.Default, lang),
		exportFields:   localizeFieldNames(d.Export.Fields, lang),
		exportSort:     localizeFieldName(d.Export.Sort, lang),
		facetsByParams: make(map[string]resolvedFacet),
		markup: highlightMarkup{
			pre:           d.Highlight.Pre,
			post:          d.Highlight.Post,
			preserveMulti: *d.Highlight.PreserveMulti,
		},
	}

	v.displayTitle = localizeFieldName(d.Display.Title, lang)
	for _, f := range d.Display.Fields {
		v.displayFields = append(v.displayFields, datasetDisplayField{Field: localizeFieldName(f.Field, lang), XID: f.XID, Format: f.Format})
	}

	// always return what the templates display
	returned := append([]string{d.IDField}, v.fields...)
	returned = append(returned, v.displayTitle)
	for _, f := range v.displayFields {
		returned = append(returned, f.Field)
	}
	v.fields = uniqueStrings(nonemptyValues(returned))

	for _, opt := range d.Sort.Options {
		o := datasetSortOption{Value: localizeFieldName(opt.Value, lang), XID: opt.XID}
		v.sortOptions = append(v.sortOptions, o)
		v.sortValues = append(v.sortValues, o.Value)
	}

	for _, f := range d.Facets {
		rf := resolvedFacet{
			Param:   f.Param,
			XID:     f.XID,
			Field:   localizeFieldName(f.Field, lang),
			Reverse: f.Reverse,
			Limit:   f.Limit,
			Sort:    f.Sort,
		}

		v.facets = append(v.facets, rf)
		v.facetsByParams[rf.Param] = rf
	}

	return &v
}

// allFields lists every Solr field the view references
func (v *datasetView) allFields() []string {
	var fields []string

	fields = append(fields, v.def.IDField)
	fields = append(fields, v.fields...)
	fields = append(fields, v.highlight...)
	fields = append(fields, v.exportFields...)

	if v.def.IDsField != "" {
		fields = append(fields, v.def.IDsField)
	}

	for _, group := range [][]datasetField{v.def.QueryFields, v.def.Phrase.PF, v.def.Phrase.PF2, v.def.Phrase.PF3} {
		for _, f := range group {
			fields = append(fields, f.resolve(v.lang))
		}
	}

	for _, f := range v.facets {
		fields = append(fields, f.Field)
	}

	if v.displayTitle != "" {
		fields = append(fields, v.displayTitle)
	}

	for _, f := range v.displayFields {
		fields = append(fields, f.Field)
	}

	for _, s := range append([]string{v.exportSort}, v.sortValues...) {
		if name := strings.Fields(s); len(name) > 0 && name[0] != "score" {
			fields = append(fields, name[0])
		}
	}

	return uniqueStrings(fields)
}

// datasetRegistry holds enabled datasets and their per-language views
type datasetRegistry struct {
	order []string
	defs  map[string]*datasetDefinition
	views map[string]map[string]*datasetView
}

func newDatasetRegistry(defs []*datasetDefinition, languages []string) *datasetRegistry {
	r := datasetRegistry{
		defs:  make(map[string]*datasetDefinition),
		views: make(map[string]map[string]*datasetView),
	}

	for _, d := range defs {
		r.order = append(r.order, d.Slug)
		r.defs[d.Slug] = d
		r.views[d.Slug] = make(map[string]*datasetView)

		for _, lang := range languages {
			r.views[d.Slug][lang] = d.view(lang)
		}
	}

	return &r
}

func (r *datasetRegistry) get(slug string) *datasetDefinition {
	return r.defs[slug]
}

func (r *datasetRegistry) view(slug, lang string) *datasetView {
	if views, ok := r.views[slug]; ok == true {
		return views[lang]
	}

	return nil
}

func (r *datasetRegistry) slugs() []string {
	return r.order
}

func parseDatasetDefinition(data []byte) (*datasetDefinition, error) {
	var d datasetDefinition

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)

	if err := dec.Decode(&d); err != nil {
		return nil, err
	}

	d.applyDefaults()

	return &d, nil
}

// loadDatasetDefinitions reads every *.yaml file in dir, keeping enabled
// datasets (optionally restricted to the given slugs) in slug order
func loadDatasetDefinitions(dir string, only []string) ([]*datasetDefinition, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	var defs []*datasetDefinition

	seen := make(map[string]string)

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset %s: %w", file, err)
		}

		d, err := parseDatasetDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dataset %s: %w", file, err)
		}

		if d.Slug == "" {
			return nil, fmt.Errorf("dataset %s: missing slug", file)
		}

		if prev, ok := seen[d.Slug]; ok == true {
			return nil, fmt.Errorf("dataset %s: slug [%s] already defined in %s", file, d.Slug, prev)
		}

		seen[d.Slug] = file

		if d.isEnabled() == false {
			continue
		}

		if len(only) > 0 && sliceContainsString(only, d.Slug, false) == false {
			continue
		}

		defs = append(defs, d)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Slug < defs[j].Slug })

	return defs, nil
}

func validSortSpec(s string) bool {
	pieces := strings.Fields(s)
	return len(pieces) == 2 && isValidSortOrder(pieces[1])
}

// validate checks a dataset definition, collecting message ids for later
// translation checks
func (d *datasetDefinition) validate(messageIDs *stringValidator, misc *stringValidator) {
	misc.setPrefix(fmt.Sprintf("dataset [%s]: ", d.Slug))
	messageIDs.setPrefix(fmt.Sprintf("dataset [%s]: ", d.Slug))

	misc.requireValue(d.Solr.Core, "solr core")
	misc.requireValue(d.Sort.Default, "default sort")
	messageIDs.requireValue(d.TitleXID, "title xid")
	messageIDs.addValue(d.DescriptionXID)

	misc.requireCondition(len(d.Fields) > 0, "no returned fields")
	misc.requireCondition(len(d.QueryFields) > 0, "no query fields")
	misc.requireCondition(validSortSpec(d.Sort.Default), fmt.Sprintf("invalid default sort [%s]", d.Sort.Default))

	var sortValues []string
	for i, opt := range d.Sort.Options {
		misc.requireCondition(validSortSpec(opt.Value), fmt.Sprintf("invalid sort option %d [%s]", i, opt.Value))
		messageIDs.requireValue(opt.XID, fmt.Sprintf("sort option %d xid", i))
		sortValues = append(sortValues, opt.Value)
	}

	misc.requireCondition(sliceContainsString(sortValues, d.Sort.Default, false), "default sort not found in sort options")

	params := make(map[string]bool)
	for i, f := range d.Facets {
		misc.requireValue(f.Param, fmt.Sprintf("facet %d param", i))
		misc.requireValue(f.Field, fmt.Sprintf("facet %d field", i))
		messageIDs.requireValue(f.XID, fmt.Sprintf("facet %d xid", i))

		misc.requireCondition(params[f.Param] == false, fmt.Sprintf("duplicate facet param [%s]", f.Param))
		params[f.Param] = true

		if f.Sort != "" {
			misc.requireCondition(f.Sort == "count" || f.Sort == "index", fmt.Sprintf("facet %d: invalid sort [%s]", i, f.Sort))
		}
	}

	if d.exportEnabled() == true {
		misc.requireCondition(len(d.Export.Fields) > 0, "export enabled without export fields")
		misc.requireCondition(validSortSpec(d.Export.Sort), fmt.Sprintf("invalid export sort [%s]", d.Export.Sort))
	}

	misc.requireValue(d.Display.Title, "display title field")
	for i, f := range d.Display.Fields {
		misc.requireValue(f.Field, fmt.Sprintf("display field %d field", i))
		messageIDs.requireValue(f.XID, fmt.Sprintf("display field %d xid", i))

		switch f.Format {
		case "", "list", "bilingual", "money", "date":
		default:
			misc.fail("dataset [%s]: display field %d: unhandled format: [%s]", d.Slug, i, f.Format)
		}
	}

	if d.RecordURL.Template != "" {
		misc.requireCondition(strings.Contains(d.RecordURL.Template, d.RecordURL.Pattern), "record url template lacks its pattern")
	}

	misc.setPrefix("")
	messageIDs.setPrefix("")
}
