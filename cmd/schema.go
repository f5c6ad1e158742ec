package main

import (
	"context"
	"fmt"
	"strings"
)

// solrSchema is the set of static and dynamic field names known to a core
type solrSchema struct {
	fields   map[string]bool
	prefixes []string // from dynamic fields like "attr_*"
	suffixes []string // from dynamic fields like "*_s"
}

func newSolrSchema(fields, dynamicFields []string) *solrSchema {
	s := solrSchema{fields: make(map[string]bool)}

	for _, f := range fields {
		s.fields[f] = true
	}

	for _, d := range dynamicFields {
		switch {
		case strings.HasPrefix(d, "*"):
			s.suffixes = append(s.suffixes, strings.TrimPrefix(d, "*"))
		case strings.HasSuffix(d, "*"):
			s.prefixes = append(s.prefixes, strings.TrimSuffix(d, "*"))
		default:
			s.fields[d] = true
		}
	}

	return &s
}

func (s *solrSchema) has(field string) bool {
	if s.fields[field] == true {
		return true
	}

	return hasAnySuffix(field, s.suffixes) || hasAnyPrefix(field, s.prefixes)
}

// missing returns the fields not covered by the schema
func (s *solrSchema) missing(fields []string) []string {
	var res []string

	for _, f := range fields {
		if s.has(f) == false {
			res = append(res, f)
		}
	}

	return res
}

func (c *solrCore) fetchSchema(ctx context.Context) (*solrSchema, error) {
	var static, dynamic solrSchemaFields

	if err := c.getJSON(ctx, "schema/fields?wt=json", &static); err != nil {
		return nil, fmt.Errorf("failed to read schema fields for core %s: %w", c.name, err)
	}

	if err := c.getJSON(ctx, "schema/dynamicfields?wt=json", &dynamic); err != nil {
		return nil, fmt.Errorf("failed to read schema dynamic fields for core %s: %w", c.name, err)
	}

	var names, dynamicNames []string

	for _, f := range static.Fields {
		names = append(names, f.Name)
	}

	for _, f := range dynamic.DynamicFields {
		dynamicNames = append(dynamicNames, f.Name)
	}

	return newSolrSchema(names, dynamicNames), nil
}
