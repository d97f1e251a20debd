package market

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// =============================================================================
// COMP TYPES
// =============================================================================

// CompListing is a single rental comparable pulled from a listings page.
type CompListing struct {
	Address     string  `json:"address"`
	MonthlyRent float64 `json:"monthly_rent"`
	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   float64 `json:"bathrooms,omitempty"`
	SquareFeet  int     `json:"square_feet,omitempty"`
}

// Rent position of the subject deal relative to the comp median.
const (
	RentPositionAbove   = "above market"
	RentPositionBelow   = "below market"
	RentPositionAt      = "at market"
	RentPositionUnknown = "unknown"

	// Within ±5% of the median counts as at-market.
	atMarketBand = 0.05
)

// CompsReport summarizes the parsed comparables relative to the subject
// deal's asking rent.
type CompsReport struct {
	Location        string        `json:"location"`
	SampleSize      int           `json:"sample_size"`
	AverageRent     float64       `json:"average_rent"`
	MedianRent      float64       `json:"median_rent"`
	MinRent         float64       `json:"min_rent"`
	MaxRent         float64       `json:"max_rent"`
	AvgRentPerSqFt  float64       `json:"avg_rent_per_sqft,omitempty"`
	DealMonthlyRent float64       `json:"deal_monthly_rent"`
	SpreadVsMedian  float64       `json:"spread_vs_median"`
	RentPosition    string        `json:"rent_position"`
	Comps           []CompListing `json:"comps"`
}

// =============================================================================
// LISTING PARSER
// =============================================================================

// columnMap holds the column index for each listing attribute, -1 if the
// header row does not expose it.
type columnMap struct {
	address int
	rent    int
	beds    int
	baths   int
	sqft    int
}

// ParseListings extracts rental comparables from a listings page. It first
// scans HTML tables with a recognizable header row, then falls back to
// listing-card markup. Rows without a parseable rent are skipped.
func ParseListings(html string) ([]CompListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var listings []CompListing
	tablesScanned := 0

	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		tablesScanned++
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return // Need at least header + 1 data row
		}

		cols := mapColumns(rows.First().Find("td, th"))
		if cols.rent < 0 || cols.address < 0 {
			return // Not a listings table (nav, footer, ...)
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() == 0 {
				return
			}
			if listing, ok := parseListingRow(cells, cols); ok {
				listings = append(listings, listing)
			}
		})
	})

	// Card-based markup fallback for pages without tables.
	if len(listings) == 0 {
		doc.Find("[class*='listing-card'], article.listing, li.listing").Each(func(_ int, card *goquery.Selection) {
			if listing, ok := parseListingCard(card); ok {
				listings = append(listings, listing)
			}
		})
	}

	log.Printf("[Comps] parsed %d listings (tables scanned: %d)", len(listings), tablesScanned)
	return listings, nil
}

// mapColumns classifies header cells by keyword.
func mapColumns(header *goquery.Selection) columnMap {
	cols := columnMap{address: -1, rent: -1, beds: -1, baths: -1, sqft: -1}

	header.Each(func(i int, cell *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(cell.Text()))
		switch {
		case strings.Contains(text, "address") || strings.Contains(text, "property"):
			cols.address = i
		case strings.Contains(text, "rent") || strings.Contains(text, "price"):
			cols.rent = i
		case strings.Contains(text, "bath"):
			cols.baths = i
		case strings.Contains(text, "bed"):
			cols.beds = i
		case strings.Contains(text, "sq") || strings.Contains(text, "area"):
			cols.sqft = i
		}
	})

	return cols
}

// parseListingRow builds a CompListing from a table row. Returns false when
// the row has no address or no parseable rent.
func parseListingRow(cells *goquery.Selection, cols columnMap) (CompListing, bool) {
	cellText := func(idx int) string {
		if idx < 0 || idx >= cells.Length() {
			return ""
		}
		return strings.TrimSpace(cells.Eq(idx).Text())
	}

	listing := CompListing{Address: cellText(cols.address)}
	if listing.Address == "" {
		return CompListing{}, false
	}

	rent, ok := parseMoney(cellText(cols.rent))
	if !ok {
		return CompListing{}, false
	}
	listing.MonthlyRent = rent

	if beds, ok := parseBedrooms(cellText(cols.beds)); ok {
		listing.Bedrooms = beds
	}
	if baths, ok := leadingNumber(cellText(cols.baths)); ok {
		listing.Bathrooms = baths
	}
	if sqft, ok := leadingNumber(strings.ReplaceAll(cellText(cols.sqft), ",", "")); ok {
		listing.SquareFeet = int(sqft)
	}

	return listing, true
}

// parseListingCard extracts a comp from card-style markup.
func parseListingCard(card *goquery.Selection) (CompListing, bool) {
	address := strings.TrimSpace(card.Find("[class*='address'], address").First().Text())
	if address == "" {
		return CompListing{}, false
	}

	rentText := strings.TrimSpace(card.Find("[class*='rent'], [class*='price']").First().Text())
	rent, ok := parseMoney(rentText)
	if !ok {
		return CompListing{}, false
	}

	listing := CompListing{Address: address, MonthlyRent: rent}
	if beds, ok := parseBedrooms(strings.TrimSpace(card.Find("[class*='bed']").First().Text())); ok {
		listing.Bedrooms = beds
	}
	return listing, true
}

// parseMoney parses rent strings like "$3,200/mo" or "2950 per month".
// Returns false for non-numeric text ("Contact for price").
func parseMoney(s string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", "/mo", "", "/month", "", "per month", "").Replace(strings.ToLower(s))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseBedrooms handles "3", "3 bd", and "Studio" (0 bedrooms).
func parseBedrooms(s string) (int, bool) {
	if strings.Contains(strings.ToLower(s), "studio") {
		return 0, true
	}
	v, ok := leadingNumber(s)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// leadingNumber parses the numeric prefix of strings like "1.5 ba" or
// "1250 sqft".
func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// =============================================================================
// SUMMARY STATISTICS
// =============================================================================

// BuildReport reduces parsed listings to summary statistics and positions the
// subject deal's asking rent against the comp median.
func BuildReport(location string, listings []CompListing, dealMonthlyRent float64) CompsReport {
	report := CompsReport{
		Location:        location,
		SampleSize:      len(listings),
		DealMonthlyRent: dealMonthlyRent,
		RentPosition:    RentPositionUnknown,
		Comps:           listings,
	}

	if len(listings) == 0 {
		return report
	}

	rents := make([]float64, 0, len(listings))
	sum := 0.0
	sqftSum, sqftRentSum := 0.0, 0.0
	for _, l := range listings {
		rents = append(rents, l.MonthlyRent)
		sum += l.MonthlyRent
		if l.SquareFeet > 0 {
			sqftSum += float64(l.SquareFeet)
			sqftRentSum += l.MonthlyRent
		}
	}
	sort.Float64s(rents)

	report.AverageRent = sum / float64(len(rents))
	report.MedianRent = median(rents)
	report.MinRent = rents[0]
	report.MaxRent = rents[len(rents)-1]
	if sqftSum > 0 {
		report.AvgRentPerSqFt = sqftRentSum / sqftSum
	}

	if report.MedianRent > 0 && dealMonthlyRent > 0 {
		report.SpreadVsMedian = (dealMonthlyRent - report.MedianRent) / report.MedianRent
		switch {
		case report.SpreadVsMedian > atMarketBand:
			report.RentPosition = RentPositionAbove
		case report.SpreadVsMedian < -atMarketBand:
			report.RentPosition = RentPositionBelow
		default:
			report.RentPosition = RentPositionAt
		}
	}

	return report
}

// median assumes rents is sorted.
func median(rents []float64) float64 {
	n := len(rents)
	if n%2 == 1 {
		return rents[n/2]
	}
	return (rents[n/2-1] + rents[n/2]) / 2
}

// Summary renders the report as compact text for injection into agent
// prompts.
func (r CompsReport) Summary() string {
	if r.SampleSize == 0 {
		return fmt.Sprintf("No rental comps could be parsed for %s; market rent position unknown.", r.Location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Rental comps for %s: %d listings sampled.\n", r.Location, r.SampleSize)
	fmt.Fprintf(&b, "Median rent $%.0f/mo, average $%.0f/mo (range $%.0f-$%.0f).\n",
		r.MedianRent, r.AverageRent, r.MinRent, r.MaxRent)
	if r.AvgRentPerSqFt > 0 {
		fmt.Fprintf(&b, "Average rent per square foot: $%.2f.\n", r.AvgRentPerSqFt)
	}
	if r.DealMonthlyRent > 0 && r.RentPosition != RentPositionUnknown {
		fmt.Fprintf(&b, "Subject asking rent $%.0f/mo is %+.1f%% vs the comp median (%s).",
			r.DealMonthlyRent, r.SpreadVsMedian*100, r.RentPosition)
	}
	return strings.TrimRight(b.String(), "\n")
}
