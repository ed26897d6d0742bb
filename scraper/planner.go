package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultResultsPerPage = 50

	descriptionSelector = `meta[name="description"]`
)

var countRegex = regexp.MustCompile(`\d+`)

// Planner works out how many result pages a search has from its first page.
type Planner struct {
	resultsPerPage int
}

// NewPlanner falls back to DefaultResultsPerPage when resultsPerPage < 1.
func NewPlanner(resultsPerPage int) *Planner {
	if resultsPerPage < 1 {
		resultsPerPage = DefaultResultsPerPage
	}
	return &Planner{resultsPerPage: resultsPerPage}
}

// Plan reads the total listing count from the page's meta description and
// returns ceil(total / resultsPerPage). A total of zero plans zero pages.
func (p *Planner) Plan(firstPageMarkup string) (int, error) {
	total, err := TotalListings(firstPageMarkup)
	if err != nil {
		return 0, err
	}
	return p.Pages(total), nil
}

func (p *Planner) Pages(total int) int {
	if total <= 0 {
		return 0
	}
	pages := total / p.resultsPerPage
	if total%p.resultsPerPage != 0 {
		pages++
	}
	return pages
}

// TotalListings returns the first integer in the page's meta description.
func TotalListings(markup string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return 0, &PageCountUnavailableError{Reason: "parse html: " + err.Error()}
	}

	meta := doc.Find(descriptionSelector).First()
	desc, exists := meta.Attr("content")
	if !exists {
		return 0, &PageCountUnavailableError{Reason: "meta description not found"}
	}

	match := countRegex.FindString(desc)
	if match == "" {
		return 0, &PageCountUnavailableError{Description: desc, Reason: "no number in description"}
	}

	total, err := strconv.Atoi(match)
	if err != nil {
		return 0, &PageCountUnavailableError{Description: desc, Reason: err.Error()}
	}
	return total, nil
}
