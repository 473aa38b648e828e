package identity

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	streetReplacements = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"drive":     "dr",
		"road":      "rd",
		"boulevard": "blvd",
		"lane":      "ln",
		"court":     "ct",
		"place":     "pl",
		"circle":    "cir",
		"terrace":   "ter",
		"highway":   "hwy",
		"parkway":   "pkwy",
		"square":    "sq",
		"north":     "n",
		"south":     "s",
		"east":      "e",
		"west":      "w",
		"northeast": "ne",
		"northwest": "nw",
		"southeast": "se",
		"southwest": "sw",
		"apartment": "apt",
		"suite":     "ste",
		"floor":     "fl",
		"building":  "bldg",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
	slugRegex       = regexp.MustCompile(`[^a-z0-9]+`)
)

const maxSlugLen = 96

// NormalizeAddress lower-cases, strips punctuation and abbreviates street words.
// Replacement is per word so "westwood" stays intact.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")

	words := strings.Fields(addr)
	for i, w := range words {
		if abbrev, ok := streetReplacements[w]; ok {
			words[i] = abbrev
		}
	}
	return multiSpaceRegex.ReplaceAllString(strings.Join(words, " "), " ")
}

// CombineAddress joins the street and locality lines the way listings store them.
func CombineAddress(address1, address2 string) string {
	a1 := strings.TrimSpace(address1)
	a2 := strings.TrimSpace(address2)
	switch {
	case a1 == "":
		return a2
	case a2 == "":
		return a1
	}
	return a1 + ", " + a2
}

// Slugify turns free text into a lower-case, dash separated token.
func Slugify(s string) string {
	s = slugRegex.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// ListingSlug builds "{city}-{address}-{externalID}". Without an external id the
// current unix millis stand in to keep the slug practically unique.
func ListingSlug(citySlug, address, externalID string, now time.Time) string {
	suffix := Slugify(externalID)
	if suffix == "" {
		suffix = strconv.FormatInt(now.UnixMilli(), 10)
	}

	addr := Slugify(NormalizeAddress(address))
	budget := maxSlugLen - len(citySlug) - len(suffix) - 2
	if budget < 0 {
		budget = 0
	}
	if len(addr) > budget {
		addr = strings.Trim(addr[:budget], "-")
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{Slugify(citySlug), addr, suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}
