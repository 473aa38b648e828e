package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type fakeObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeObjects) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = b
	f.types[key] = contentType
	return nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUpload(t *testing.T) {
	store := newMemStore()
	listing := seedListing(t, store)
	objects := newFakeObjects()
	svc := NewUploadService(objects, NewMediaService(store), store)

	data := testPNG(t, 4, 3)
	res, err := svc.Upload(context.Background(), listing.ID, "front.PNG", "Front elevation", data)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if !strings.HasPrefix(res.Key, "media/") || !strings.HasSuffix(res.Key, ".png") {
		t.Errorf("unexpected key %q", res.Key)
	}
	if res.URL != "https://cdn.example.com/"+res.Key {
		t.Errorf("unexpected url %q", res.URL)
	}
	if res.Inserted != 1 {
		t.Errorf("expected 1 insert, got %d", res.Inserted)
	}
	if res.Width == nil || *res.Width != 4 || res.Height == nil || *res.Height != 3 {
		t.Errorf("unexpected dimensions %v x %v", res.Width, res.Height)
	}
	if objects.types[res.Key] != "image/png" {
		t.Errorf("unexpected content type %q", objects.types[res.Key])
	}

	rows := store.mediaFor(listing.ID)
	if len(rows) != 1 || rows[0].Alt != "Front elevation" || rows[0].URL != res.URL {
		t.Fatalf("unexpected media rows %+v", rows)
	}

	again, err := svc.Upload(context.Background(), listing.ID, "copy.png", "", data)
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}
	if again.Key != res.Key || again.Inserted != 0 {
		t.Errorf("same bytes should map to the same key without a new row, got %+v", again)
	}
}

func TestUpload_Rejects(t *testing.T) {
	store := newMemStore()
	listing := seedListing(t, store)
	objects := newFakeObjects()
	svc := NewUploadService(objects, NewMediaService(store), store)

	_, err := svc.Upload(context.Background(), listing.ID, "notes.txt", "", []byte("just some text"))
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}

	_, err = svc.Upload(context.Background(), uuid.New(), "a.png", "", testPNG(t, 1, 1))
	if !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}

	if len(objects.objects) != 0 {
		t.Errorf("rejected uploads must not reach storage, got %d objects", len(objects.objects))
	}
}

func TestGuessExtension(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        string
	}{
		{"photo.JPEG", "image/jpeg", ".jpeg"},
		{"photo", "image/png", ".png"},
		{"photo.exe", "image/gif", ".gif"},
		{"", "image/webp", ".webp"},
		{"", "image/bmp", ".jpg"},
	}
	for _, tt := range tests {
		if got := guessExtension(tt.filename, tt.contentType); got != tt.want {
			t.Errorf("guessExtension(%q, %q) = %q, want %q", tt.filename, tt.contentType, got, tt.want)
		}
	}
}
