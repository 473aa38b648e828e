package realtor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return data
}

func loadItems(t *testing.T) []json.RawMessage {
	t.Helper()
	var items []json.RawMessage
	if err := json.Unmarshal(loadFixture(t, "dataset.json"), &items); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return items
}

func TestParseItem_NestedShape(t *testing.T) {
	l, err := ParseItem(loadItems(t)[0])
	if err != nil {
		t.Fatalf("ParseItem failed: %v", err)
	}

	if l.ExternalID != "1234567890" {
		t.Errorf("unexpected id %q", l.ExternalID)
	}
	if l.Address() != "1000 Brickell Ave Apt 3905, Miami, FL 33131" {
		t.Errorf("unexpected address %q", l.Address())
	}
	if l.Price == nil || *l.Price != 1250000 {
		t.Errorf("unexpected price %v", l.Price)
	}
	if l.Bedrooms == nil || *l.Bedrooms != 2 || l.Bathrooms == nil || *l.Bathrooms != 2.5 {
		t.Errorf("unexpected rooms %v %v", l.Bedrooms, l.Bathrooms)
	}
	if l.LivingArea == nil || *l.LivingArea != 1410 {
		t.Errorf("unexpected sqft %v", l.LivingArea)
	}
	if l.LotArea != nil {
		t.Errorf("null lot must stay nil, got %v", *l.LotArea)
	}
	if l.PropertyType != "condos" {
		t.Errorf("unexpected type %q", l.PropertyType)
	}
	if l.Lat == nil || *l.Lat != 25.7646 || l.Lng == nil || *l.Lng != -80.1924 {
		t.Errorf("unexpected coordinates %v %v", l.Lat, l.Lng)
	}

	want := "Stunning bay views from the 39th floor.\n\nWalk to Brickell City Centre.\nResort-style pool."
	if l.Description != want {
		t.Errorf("unexpected description:\n%q\nwant\n%q", l.Description, want)
	}

	if len(l.Photos) != 2 {
		t.Fatalf("expected 2 photos with the blank href dropped, got %d", len(l.Photos))
	}
	if l.Photos[0].Alt != "Living room" {
		t.Errorf("unexpected alt %q", l.Photos[0].Alt)
	}
}

func TestParseItem_FlatShape(t *testing.T) {
	l, err := ParseItem(loadItems(t)[1])
	if err != nil {
		t.Fatalf("ParseItem failed: %v", err)
	}

	if l.ExternalID != "M99887766" || l.URL == "" {
		t.Errorf("unexpected identity %q %q", l.ExternalID, l.URL)
	}
	if l.Address1 != "250 SE 1st St" || l.Address2 != "Miami, FL 33131" {
		t.Errorf("unexpected address %q / %q", l.Address1, l.Address2)
	}
	if l.Price == nil || *l.Price != 689000 {
		t.Errorf("expected formatted price to parse, got %v", l.Price)
	}
	if l.LivingArea == nil || *l.LivingArea != 1820 || l.LotArea == nil || *l.LotArea != 5000 {
		t.Errorf("unexpected areas %v %v", l.LivingArea, l.LotArea)
	}
	if l.Description != "Renovated home close to downtown." {
		t.Errorf("unexpected description %q", l.Description)
	}
	if len(l.Photos) != 2 || l.Photos[1].URL != "https://ap.rdcpix.com/b2.jpg" {
		t.Errorf("unexpected photos %+v", l.Photos)
	}
}

func TestParseItem_NoIdentity(t *testing.T) {
	if _, err := ParseItem(loadItems(t)[2]); err == nil {
		t.Fatal("expected an item without id, url or address to be rejected")
	}
	if _, err := ParseItem(json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain   text ", "plain text"},
		{"<div>One</div><div>Two</div>", "One\n\nTwo"},
		{"Line<br/>break &amp; more", "Line\nbreak & more"},
		{"<ul><li>Pool</li><li>Gym</li></ul><script>x()</script>", "Pool\n\nGym"},
	}
	for _, tt := range tests {
		if got := HTMLToText(tt.in); got != tt.want {
			t.Errorf("HTMLToText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
