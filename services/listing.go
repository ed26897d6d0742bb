package services

import (
	"time"

	"finn_scrooper/models"
	"finn_scrooper/normalize"
)

// ListingService maps raw search documents into the fixed listing schema.
type ListingService struct {
	loc *time.Location
}

// NewListingService creates a ListingService that reads timestamps in loc.
func NewListingService(loc *time.Location) *ListingService {
	return &ListingService{loc: loc}
}

// Map never fails. Every lookup is optional and a missing or malformed
// value leaves the field nil.
func (s *ListingService) Map(raw models.RawListing) models.NormalizedListing {
	var l models.NormalizedListing

	l.ID = normalize.Token(get(raw, "id"))

	if full, ok := get(raw, "location").(string); ok {
		l.Road, l.City = normalize.SplitLocation(full)
	}

	if ms, ok := normalize.Int(get(raw, "timestamp")); ok {
		d := normalize.DecomposeTimestamp(ms, s.loc)
		l.Day = &d.Day
		l.Month = &d.Month
		l.Year = &d.Year
	}

	l.PriceSuggestion = price(raw, "price_suggestion", "price_range_suggestion")
	l.PriceTotal = price(raw, "price_total", "price_range_total")

	l.HouseSizeSqMeters = normalize.FloatPtr(get(raw, "area_range", "size_from"))
	l.PlotSizeSqMeters = normalize.FloatPtr(get(raw, "area_plot", "size"))

	l.OrganizationName = normalize.Text(get(raw, "organisation_name"))
	l.LocalAreaName = normalize.Text(get(raw, "local_area_name"))
	l.NumberOfBedrooms = normalize.IntPtr(get(raw, "number_of_bedrooms"))
	l.OwnerTypeDescription = normalize.Text(get(raw, "owner_type_description"))
	l.PropertyTypeDescription = normalize.Text(get(raw, "property_type_description"))

	l.Latitude = normalize.FloatPtr(get(raw, "coordinates", "lat"))
	l.Longitude = normalize.FloatPtr(get(raw, "coordinates", "lon"))

	return l
}

// MapAll maps a page's documents in order.
func (s *ListingService) MapAll(raws []models.RawListing) []models.NormalizedListing {
	out := make([]models.NormalizedListing, 0, len(raws))
	for _, raw := range raws {
		out = append(out, s.Map(raw))
	}
	return out
}

// price prefers <field>.amount and falls back to the mean of the range
// object when the amount is absent or not a number.
func price(raw models.RawListing, field, rangeField string) *float64 {
	if amount := normalize.FloatPtr(get(raw, field, "amount")); amount != nil {
		return amount
	}
	return normalize.AverageRange(get(raw, rangeField))
}

func get(raw models.RawListing, path ...string) any {
	v, _ := raw.Lookup(path...)
	return v
}
