package main

const (
	defaultPageSize  = 10
	paginationDelta  = 2
	paginationGapNil = 0 // sentinel rendered as an ellipsis
)

type pageNavigation struct {
	Pages    []int `json:"pages"`
	Current  int   `json:"current"`
	LastPage int   `json:"last_page"`
	PrevPage int   `json:"prev_page,omitempty"`
	NextPage int   `json:"next_page,omitempty"`
}

func totalPages(hits, pageSize int) int {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	pages := hits / pageSize
	if hits%pageSize != 0 {
		pages++
	}

	if pages < 1 {
		pages = 1
	}

	return pages
}

// paginationWindow returns the page numbers to display for a result set:
// the first and last pages, and pages within two of the current one.
// a gap of a single page is filled in; larger gaps become a 0 sentinel.
func paginationWindow(hits, pageSize, currentPage int) []int {
	pages := totalPages(hits, pageSize)

	if currentPage > pages {
		currentPage = pages
	}

	if currentPage < 1 {
		currentPage = 1
	}

	left := currentPage - paginationDelta
	right := currentPage + paginationDelta + 1

	var kept []int

	for p := 1; p <= pages; p++ {
		if p == 1 || p == pages || (p >= left && p < right) {
			kept = append(kept, p)
		}
	}

	var window []int

	last := 0

	for _, p := range kept {
		if last > 0 {
			switch gap := p - last; {
			case gap == 2:
				window = append(window, last+1)
			case gap > 2:
				window = append(window, paginationGapNil)
			}
		}

		window = append(window, p)
		last = p
	}

	return window
}

func newPageNavigation(hits, pageSize, currentPage int) pageNavigation {
	nav := pageNavigation{
		Pages:    paginationWindow(hits, pageSize, currentPage),
		LastPage: totalPages(hits, pageSize),
	}

	nav.Current = currentPage
	if nav.Current > nav.LastPage {
		nav.Current = nav.LastPage
	}

	if nav.Current < 1 {
		nav.Current = 1
	}

	if nav.Current > 1 {
		nav.PrevPage = nav.Current - 1
	}

	if nav.Current < nav.LastPage {
		nav.NextPage = nav.Current + 1
	}

	return nav
}
