package models

import "strconv"

// Unavailable is how a missing or malformed field is rendered.
const Unavailable = "N/A"

// NormalizedListing is the fixed-schema row produced for every listing.
// A nil field means the source did not supply a usable value.
type NormalizedListing struct {
	ID                      *string  `json:"id"`
	Road                    *string  `json:"road"`
	City                    *string  `json:"city"`
	Day                     *int     `json:"day"`
	Month                   *string  `json:"month"`
	Year                    *int     `json:"year"`
	PriceSuggestion         *float64 `json:"price_suggestion"`
	PriceTotal              *float64 `json:"price_total"`
	HouseSizeSqMeters       *float64 `json:"house_size_sq_meters"`
	PlotSizeSqMeters        *float64 `json:"plot_size_sq_meters"`
	OrganizationName        *string  `json:"organization_name"`
	LocalAreaName           *string  `json:"local_area_name"`
	NumberOfBedrooms        *int     `json:"number_of_bedrooms"`
	OwnerTypeDescription    *string  `json:"owner_type_description"`
	PropertyTypeDescription *string  `json:"property_type_description"`
	Latitude                *float64 `json:"latitude"`
	Longitude               *float64 `json:"longitude"`
}

var columns = []string{
	"id",
	"road",
	"city",
	"day",
	"month",
	"year",
	"price_suggestion",
	"price_total",
	"house_size_sq_meters",
	"plot_size_sq_meters",
	"organization_name",
	"local_area_name",
	"number_of_bedrooms",
	"owner_type_description",
	"property_type_description",
	"latitude",
	"longitude",
}

// Columns returns the dataset column order. It never depends on which
// fields a page happened to supply.
func Columns() []string {
	return append([]string(nil), columns...)
}

// Record renders the listing in column order, substituting Unavailable.
func (l *NormalizedListing) Record() []string {
	return []string{
		textOrNA(l.ID),
		textOrNA(l.Road),
		textOrNA(l.City),
		intOrNA(l.Day),
		textOrNA(l.Month),
		intOrNA(l.Year),
		floatOrNA(l.PriceSuggestion),
		floatOrNA(l.PriceTotal),
		floatOrNA(l.HouseSizeSqMeters),
		floatOrNA(l.PlotSizeSqMeters),
		textOrNA(l.OrganizationName),
		textOrNA(l.LocalAreaName),
		intOrNA(l.NumberOfBedrooms),
		textOrNA(l.OwnerTypeDescription),
		textOrNA(l.PropertyTypeDescription),
		floatOrNA(l.Latitude),
		floatOrNA(l.Longitude),
	}
}

// Values is Record with nil in place of Unavailable, for SQL parameters.
func (l *NormalizedListing) Values() []any {
	return []any{
		l.ID, l.Road, l.City, l.Day, l.Month, l.Year,
		l.PriceSuggestion, l.PriceTotal, l.HouseSizeSqMeters, l.PlotSizeSqMeters,
		l.OrganizationName, l.LocalAreaName, l.NumberOfBedrooms,
		l.OwnerTypeDescription, l.PropertyTypeDescription,
		l.Latitude, l.Longitude,
	}
}

// Dataset is an append-only, ordered collection of listings. Rows keep
// page order, then within-page order. Duplicates are kept.
type Dataset struct {
	rows []NormalizedListing
}

func NewDataset() *Dataset {
	return &Dataset{}
}

func (d *Dataset) Append(rows ...NormalizedListing) {
	d.rows = append(d.rows, rows...)
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Rows returns a copy of the rows.
func (d *Dataset) Rows() []NormalizedListing {
	if d == nil {
		return nil
	}
	return append([]NormalizedListing(nil), d.rows...)
}

func (d *Dataset) Header() []string {
	return Columns()
}

func (d *Dataset) Records() [][]string {
	if d == nil {
		return nil
	}
	out := make([][]string, 0, len(d.rows))
	for i := range d.rows {
		out = append(out, d.rows[i].Record())
	}
	return out
}

func textOrNA(s *string) string {
	if s == nil {
		return Unavailable
	}
	return *s
}

func intOrNA(n *int) string {
	if n == nil {
		return Unavailable
	}
	return strconv.Itoa(*n)
}

func floatOrNA(f *float64) string {
	if f == nil {
		return Unavailable
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
