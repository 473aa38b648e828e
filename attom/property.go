package attom

import (
	"strings"

	"vantera/extract"
	"vantera/models"
)

const sqFtPerAcre = 43560

// Candidate is one stub from the address search.
type Candidate struct {
	Address1 string
	Address2 string
	Lat      *float64
	Lng      *float64
}

// Complete reports whether both address lines are present.
func (c Candidate) Complete() bool {
	return c.Address1 != "" && c.Address2 != ""
}

type Detail struct {
	ExternalID   string
	PropertyType string
	Bedrooms     *int
	Bathrooms    *float64
	LivingArea   *float64
	LotArea      *float64
	Valuation    *int64
	Lat          *float64
	Lng          *float64
	Photos       []models.Photo
}

var (
	address1Chain = []extract.Extractor[string]{
		extract.String("address", "line1"),
		extract.String("address", "address1"),
		extract.String("address1"),
		oneLinePart(0),
	}
	address2Chain = []extract.Extractor[string]{
		extract.String("address", "line2"),
		extract.String("address", "address2"),
		extract.String("address2"),
		localityLine,
		oneLinePart(1),
	}
	latChain = []extract.Extractor[float64]{
		extract.Float("location", "latitude"),
		extract.Float("address", "latitude"),
		extract.Float("latitude"),
		extract.Float("lat"),
	}
	lngChain = []extract.Extractor[float64]{
		extract.Float("location", "longitude"),
		extract.Float("address", "longitude"),
		extract.Float("longitude"),
		extract.Float("lng"),
	}

	externalIDChain = []extract.Extractor[string]{
		extract.String("identifier", "attomId"),
		extract.String("identifier", "Id"),
		extract.String("identifier", "obPropId"),
		extract.String("attomId"),
	}
	bedsChain = []extract.Extractor[int]{
		extract.Int("building", "rooms", "beds"),
		extract.Int("building", "rooms", "bedrooms"),
		extract.Int("beds"),
	}
	bathsChain = []extract.Extractor[float64]{
		extract.PositiveFloat("building", "rooms", "bathstotal"),
		extract.PositiveFloat("building", "rooms", "bathsfull"),
		extract.PositiveFloat("baths"),
	}
	livingAreaChain = []extract.Extractor[float64]{
		extract.PositiveFloat("building", "size", "livingsize"),
		extract.PositiveFloat("building", "size", "universalsize"),
		extract.PositiveFloat("building", "size", "bldgsize"),
	}
	lotAreaChain = []extract.Extractor[float64]{
		extract.PositiveFloat("lot", "lotsize2"),
		extract.PositiveFloat("lot", "lotSize2"),
		extract.Map(extract.PositiveFloat("lot", "lotsize1"), acresToSqFt),
	}
	propertyTypeChain = []extract.Extractor[string]{
		extract.String("summary", "propertyType"),
		extract.String("summary", "proptype"),
		extract.String("summary", "propclass"),
		extract.String("propertyType"),
	}
	valuationChain = []extract.Extractor[int64]{
		extract.Int64("avm", "amount", "value"),
		extract.Int64("assessment", "market", "mktttlvalue"),
		extract.Int64("sale", "amount", "saleamt"),
	}
	photosChain = []extract.Extractor[[]models.Photo]{
		photoList("photos"),
		photoList("media", "photos"),
		photoList("images"),
	}
	photoURLChain = []extract.Extractor[string]{
		extract.String("url"),
		extract.String("href"),
		extract.String("mediaUrl"),
	}
)

func ParseCandidate(r extract.Record) Candidate {
	a1, _ := extract.First(r, address1Chain...)
	a2, _ := extract.First(r, address2Chain...)
	return Candidate{
		Address1: a1,
		Address2: a2,
		Lat:      extract.Ptr(r, latChain...),
		Lng:      extract.Ptr(r, lngChain...),
	}
}

func ParseDetail(r extract.Record) Detail {
	id, _ := extract.First(r, externalIDChain...)
	pt, _ := extract.First(r, propertyTypeChain...)
	photos, _ := extract.First(r, photosChain...)
	return Detail{
		ExternalID:   id,
		PropertyType: pt,
		Bedrooms:     extract.Ptr(r, bedsChain...),
		Bathrooms:    extract.Ptr(r, bathsChain...),
		LivingArea:   extract.Ptr(r, livingAreaChain...),
		LotArea:      extract.Ptr(r, lotAreaChain...),
		Valuation:    extract.Ptr(r, valuationChain...),
		Lat:          extract.Ptr(r, latChain...),
		Lng:          extract.Ptr(r, lngChain...),
		Photos:       photos,
	}
}

// oneLinePart splits "1 MAIN ST, MIAMI, FL 33131" at the first comma.
func oneLinePart(i int) extract.Extractor[string] {
	return func(r extract.Record) (string, bool) {
		s, ok := extract.String("address", "oneLine")(r)
		if !ok {
			return "", false
		}
		line1, line2, found := strings.Cut(s, ",")
		if !found {
			return "", false
		}
		part := strings.TrimSpace([]string{line1, line2}[i])
		return part, part != ""
	}
}

// localityLine rebuilds "MIAMI, FL 33131" from its parts.
func localityLine(r extract.Record) (string, bool) {
	city, ok := extract.String("address", "locality")(r)
	if !ok {
		return "", false
	}
	line := city
	if state, ok := extract.String("address", "countrySubd")(r); ok {
		line += ", " + state
	}
	if zip, ok := extract.String("address", "postal1")(r); ok {
		line += " " + zip
	}
	return line, true
}

func photoList(path ...string) extract.Extractor[[]models.Photo] {
	return func(r extract.Record) ([]models.Photo, bool) {
		items := extract.Objects(r, path...)
		var photos []models.Photo
		for _, item := range items {
			u, ok := extract.First(item, photoURLChain...)
			if !ok {
				continue
			}
			alt, _ := extract.First(item, extract.String("alt"), extract.String("caption"))
			photos = append(photos, models.Photo{
				URL:    u,
				Alt:    alt,
				Width:  extract.Ptr(item, extract.Int("width")),
				Height: extract.Ptr(item, extract.Int("height")),
			})
		}
		return photos, len(photos) > 0
	}
}

func acresToSqFt(acres float64) (float64, bool) {
	return acres * sqFtPerAcre, true
}
