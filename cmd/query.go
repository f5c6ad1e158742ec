package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultMaxPage = 10000
	matchAllQuery  = "*"
	matchNoneQuery = "-*:*"
)

// a token is either a run of non-space characters not starting with a quote,
// or a double-quoted phrase
var quotedTermPattern = regexp.MustCompile(`[^"\s]\S*|".+?"`)

func splitWithQuotes(s string) []string {
	return quotedTermPattern.FindAllString(s, -1)
}

func searchTerms(text string) string {
	terms := splitWithQuotes(text)

	if len(terms) == 0 {
		return matchAllQuery
	}

	return strings.Join(terms, " ")
}

func parsePage(raw string, maxPage int) int {
	if maxPage < 1 {
		maxPage = defaultMaxPage
	}

	return integerWithinRange(raw, 1, maxPage)
}

func startRow(page, rows int) int {
	if page < 1 {
		page = 1
	}

	return rows * (page - 1)
}

func validSort(raw string, allowed []string, fallback string) string {
	if raw != "" && sliceContainsString(allowed, raw, false) == true {
		return raw
	}

	return fallback
}

// idListQuery builds an OR query over the valid record ids in a comma
// separated list.  only version 1-5 UUIDs are accepted.
func idListQuery(field, raw string) (string, []string) {
	var ids []string

	for _, piece := range strings.Split(raw, ",") {
		id := strings.TrimSpace(piece)

		u, err := uuid.Parse(id)
		if err != nil {
			continue
		}

		if v := u.Version(); v < 1 || v > 5 {
			continue
		}

		ids = append(ids, id)
	}

	ids = uniqueStrings(ids)

	if len(ids) == 0 {
		return matchNoneQuery, nil
	}

	var clauses []string
	for _, id := range ids {
		clauses = append(clauses, fmt.Sprintf(`%s:"%s"`, field, id))
	}

	return strings.Join(clauses, " OR "), ids
}
