package scraper

import (
	"fmt"
	"strings"

	"finn_scrooper/models"
	"github.com/PuerkitoBio/goquery"
)

const (
	// nextDataSelector matches the Next.js payload script on search pages.
	nextDataSelector = `script#__NEXT_DATA__[type="application/json"]`
)

// docsPath leads from the payload root to the listing array.
var docsPath = []string{"props", "pageProps", "search", "docs"}

// Extractor pulls the raw listing documents out of one search page.
// The payload location lives here and nowhere else.
type Extractor struct {
	selector string
	path     []string
}

func NewExtractor() *Extractor {
	return &Extractor{
		selector: nextDataSelector,
		path:     docsPath,
	}
}

// Extract returns the page's listing documents in page order. A page with
// no payload, an unparsable payload or a moved docs array is a
// FormatMismatchError; an empty docs array is not.
func (e *Extractor) Extract(markup string) ([]models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, formatMismatch("parse html", err)
	}

	script := doc.Find(e.selector)
	if script.Length() == 0 {
		return nil, formatMismatch("embedded payload script not found", nil)
	}
	if script.Length() > 1 {
		return nil, formatMismatch(fmt.Sprintf("found %d payload scripts, expected one", script.Length()), nil)
	}

	payload := strings.TrimSpace(script.Text())
	tree, err := models.ParseJSON([]byte(payload))
	if err != nil {
		return nil, formatMismatch("parse embedded payload", err)
	}

	root, ok := tree.(*models.Object)
	if !ok {
		return nil, formatMismatch(fmt.Sprintf("payload root is %T, not an object", tree), nil)
	}

	node, ok := root.Lookup(e.path...)
	if !ok {
		return nil, formatMismatch("missing key path "+strings.Join(e.path, "."), nil)
	}

	items, ok := node.([]any)
	if !ok {
		return nil, formatMismatch(fmt.Sprintf("%s is %T, not an array", strings.Join(e.path, "."), node), nil)
	}

	listings := make([]models.RawListing, 0, len(items))
	for i, item := range items {
		obj, ok := item.(*models.Object)
		if !ok {
			return nil, formatMismatch(fmt.Sprintf("docs[%d] is %T, not an object", i, item), nil)
		}
		listings = append(listings, obj)
	}

	return listings, nil
}
