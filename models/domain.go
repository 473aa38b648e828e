package models

import (
	"time"

	"github.com/google/uuid"
)

// City is a geographic market that owns listings
type City struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Country   string    `json:"country" db:"country"`
	Region    string    `json:"region" db:"region"`
	Timezone  string    `json:"timezone" db:"timezone"`
	Lat       float64   `json:"lat" db:"lat"`
	Lng       float64   `json:"lng" db:"lng"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Listing is a property record owned by exactly one City
type Listing struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Slug          string     `json:"slug" db:"slug"`
	CityID        uuid.UUID  `json:"city_id" db:"city_id"`
	Status        string     `json:"status" db:"status"`
	Visibility    string     `json:"visibility" db:"visibility"`
	Verification  string     `json:"verification" db:"verification"`
	Title         string     `json:"title" db:"title"`
	Headline      string     `json:"headline" db:"headline"`
	Description   string     `json:"description" db:"description"`
	Address       string     `json:"address" db:"address"`
	AddressHidden bool       `json:"address_hidden" db:"address_hidden"`
	Lat           *float64   `json:"lat" db:"lat"`
	Lng           *float64   `json:"lng" db:"lng"`
	PropertyType  string     `json:"property_type" db:"property_type"`
	Bedrooms      *int       `json:"bedrooms" db:"bedrooms"`
	Bathrooms     *float64   `json:"bathrooms" db:"bathrooms"`
	BuiltArea     *float64   `json:"built_area" db:"built_area"`
	PlotArea      *float64   `json:"plot_area" db:"plot_area"`
	Price         *int64     `json:"price" db:"price"`
	Currency      string     `json:"currency" db:"currency"`
	Source        string     `json:"source" db:"source"`         // ATTOM, REALTOR
	ExternalID    string     `json:"external_id" db:"external_id"` // provider identifier, may be empty
	CoverMediaID  *uuid.UUID `json:"cover_media_id" db:"cover_media_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// ListingMedia is a photo or video attached to a listing
type ListingMedia struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ListingID uuid.UUID `json:"listing_id" db:"listing_id"`
	URL       string    `json:"url" db:"url"`
	Alt       string    `json:"alt" db:"alt"`
	Width     *int      `json:"width" db:"width"`
	Height    *int      `json:"height" db:"height"`
	Source    string    `json:"source" db:"source"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Photo is a provider-neutral photo reference handed to media ingestion
type Photo struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

// Listing status
const (
	ListingStatusDraft     = "DRAFT"
	ListingStatusPublished = "PUBLISHED"
	ListingStatusArchived  = "ARCHIVED"
)

// Listing visibility
const (
	VisibilityPrivate = "PRIVATE"
	VisibilityPublic  = "PUBLIC"
)

// Listing verification
const (
	VerificationUnverified = "UNVERIFIED"
	VerificationVerified   = "VERIFIED"
)

// Provenance tags for listings and media
const (
	SourceATTOM   = "ATTOM"
	SourceRealtor = "REALTOR"
	SourceUpload  = "UPLOAD"
	SourcePresets = "PRESETS"
)
