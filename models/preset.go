package models

// CityPreset is a hardcoded city definition used to seed ingestion
type CityPreset struct {
	Key      string  `yaml:"key" json:"key"`
	Name     string  `yaml:"name" json:"name"`
	Slug     string  `yaml:"slug" json:"slug"`
	Country  string  `yaml:"country" json:"country"`
	Region   string  `yaml:"region" json:"region"`
	Timezone string  `yaml:"timezone" json:"timezone"`
	Lat      float64 `yaml:"lat" json:"lat"`
	Lng      float64 `yaml:"lng" json:"lng"`
	// Search is the free-text location handed to the Realtor actor, e.g. "Miami, FL"
	Search string `yaml:"search" json:"search"`
}

// City builds the City row this preset upserts.
func (p CityPreset) City() *City {
	return &City{
		Name:     p.Name,
		Slug:     p.Slug,
		Country:  p.Country,
		Region:   p.Region,
		Timezone: p.Timezone,
		Lat:      p.Lat,
		Lng:      p.Lng,
	}
}
