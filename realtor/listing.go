package realtor

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vantera/extract"
	"vantera/identity"
	"vantera/models"
)

var errNoIdentity = errors.New("item has neither id, url nor address")

// Listing is one normalized dataset item
type Listing struct {
	ExternalID   string
	URL          string
	Address1     string
	Address2     string
	PropertyType string
	Description  string
	Price        *int64
	Bedrooms     *int
	Bathrooms    *float64
	LivingArea   *float64
	LotArea      *float64
	Lat          *float64
	Lng          *float64
	Photos       []models.Photo
}

func (l Listing) Address() string {
	return identity.CombineAddress(l.Address1, l.Address2)
}

var (
	idChain = []extract.Extractor[string]{
		extract.String("property_id"),
		extract.String("id"),
		extract.String("listing_id"),
		extract.String("mls_id"),
	}
	urlChain = []extract.Extractor[string]{
		extract.String("url"),
		extract.String("permalink"),
		extract.String("href"),
	}
	address1Chain = []extract.Extractor[string]{
		extract.String("address", "line"),
		extract.String("address", "street"),
		extract.String("location", "address", "line"),
		addressStringPart(0),
	}
	address2Chain = []extract.Extractor[string]{
		locality("address"),
		locality("location", "address"),
		addressStringPart(1),
	}
	priceChain = []extract.Extractor[int64]{
		extract.Int64("list_price"),
		extract.Int64("price"),
		extract.Int64("listPrice"),
	}
	bedsChain = []extract.Extractor[int]{
		extract.Int("beds"),
		extract.Int("description", "beds"),
		extract.Int("bedrooms"),
	}
	bathsChain = []extract.Extractor[float64]{
		extract.PositiveFloat("baths"),
		extract.PositiveFloat("description", "baths"),
		extract.PositiveFloat("bathrooms"),
	}
	sqftChain = []extract.Extractor[float64]{
		extract.PositiveFloat("sqft"),
		extract.PositiveFloat("description", "sqft"),
		extract.PositiveFloat("living_area"),
	}
	lotChain = []extract.Extractor[float64]{
		extract.PositiveFloat("lot_sqft"),
		extract.PositiveFloat("description", "lot_sqft"),
		extract.PositiveFloat("lotSize"),
	}
	typeChain = []extract.Extractor[string]{
		extract.String("type"),
		extract.String("description", "type"),
		extract.String("property_type"),
	}
	descriptionChain = []extract.Extractor[string]{
		extract.String("description", "text"),
		extract.String("description"),
		extract.String("remarks"),
	}
	latChain = []extract.Extractor[float64]{
		extract.Float("coordinate", "lat"),
		extract.Float("location", "address", "coordinate", "lat"),
		extract.Float("latitude"),
	}
	lngChain = []extract.Extractor[float64]{
		extract.Float("coordinate", "lon"),
		extract.Float("coordinate", "lng"),
		extract.Float("location", "address", "coordinate", "lon"),
		extract.Float("longitude"),
	}
)

// ParseItem normalizes one dataset item. Missing fields stay empty; only an
// item without any identity is rejected.
func ParseItem(raw json.RawMessage) (Listing, error) {
	r, err := extract.Decode(raw)
	if err != nil {
		return Listing{}, err
	}

	var l Listing
	l.ExternalID, _ = extract.First(r, idChain...)
	l.URL, _ = extract.First(r, urlChain...)
	l.Address1, _ = extract.First(r, address1Chain...)
	l.Address2, _ = extract.First(r, address2Chain...)
	l.PropertyType, _ = extract.First(r, typeChain...)
	if desc, ok := extract.First(r, descriptionChain...); ok {
		l.Description = HTMLToText(desc)
	}

	l.Price = extract.Ptr(r, priceChain...)
	l.Bedrooms = extract.Ptr(r, bedsChain...)
	l.Bathrooms = extract.Ptr(r, bathsChain...)
	l.LivingArea = extract.Ptr(r, sqftChain...)
	l.LotArea = extract.Ptr(r, lotChain...)
	l.Lat = extract.Ptr(r, latChain...)
	l.Lng = extract.Ptr(r, lngChain...)
	l.Photos = parsePhotos(r)

	if l.ExternalID == "" && l.URL == "" && l.Address1 == "" {
		return Listing{}, errNoIdentity
	}
	return l, nil
}

// addressStringPart handles items whose address is a single "street, city, ST zip" string.
func addressStringPart(i int) extract.Extractor[string] {
	return func(r extract.Record) (string, bool) {
		v, ok := extract.Lookup(r, "address")
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		if !ok {
			return "", false
		}
		line1, line2, _ := strings.Cut(s, ",")
		part := strings.TrimSpace([]string{line1, line2}[i])
		return part, part != ""
	}
}

func locality(path ...string) extract.Extractor[string] {
	return func(r extract.Record) (string, bool) {
		addr, ok := extract.Object(r, path...)
		if !ok {
			return "", false
		}
		city, ok := extract.First(addr, extract.String("city"), extract.String("locality"))
		if !ok {
			return "", false
		}
		line := city
		if state, ok := extract.First(addr, extract.String("state_code"), extract.String("state")); ok {
			line += ", " + state
		}
		if zip, ok := extract.First(addr, extract.String("postal_code"), extract.String("zip")); ok {
			line += " " + zip
		}
		return line, true
	}
}

// parsePhotos accepts plain URL strings or objects with href/url.
func parsePhotos(r extract.Record) []models.Photo {
	var photos []models.Photo
	for _, path := range [][]string{{"photos"}, {"images"}} {
		v, ok := extract.Lookup(r, path...)
		if !ok {
			continue
		}
		items, ok := v.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			switch p := item.(type) {
			case string:
				photos = append(photos, models.Photo{URL: strings.TrimSpace(p)})
			case map[string]any:
				rec := extract.Record(p)
				u, ok := extract.First(rec, extract.String("href"), extract.String("url"))
				if !ok {
					continue
				}
				alt, _ := extract.First(rec, extract.String("alt"), extract.String("title"))
				photos = append(photos, models.Photo{URL: u, Alt: alt})
			}
		}
		if len(photos) > 0 {
			return photos
		}
	}

	if u, ok := extract.String("primary_photo", "href")(r); ok {
		photos = append(photos, models.Photo{URL: u})
	}
	return photos
}

var (
	spaceRegex    = regexp.MustCompile(`[ \t\r\f\v\x{00A0}]+`)
	newlinesRegex = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText flattens listing remarks to plain text, keeping paragraph breaks.
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, h1, h2, h3, h4").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRegex.ReplaceAllString(line, " "))
	}
	text := newlinesRegex.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}
