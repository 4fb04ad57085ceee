package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestIsNearWhiteBoundaries(t *testing.T) {
	cases := []struct {
		c    color.NRGBA
		want bool
	}{
		{color.NRGBA{235, 235, 235, 255}, false},
		{color.NRGBA{236, 211, 211, 255}, true},
		{color.NRGBA{236, 210, 250, 255}, false},
		{color.NRGBA{255, 255, 255, 255}, true},
		{color.NRGBA{211, 236, 220, 255}, true},
		{color.NRGBA{0, 0, 0, 255}, false},
	}
	for _, tc := range cases {
		if got := IsNearWhite(tc.c); got != tc.want {
			t.Fatalf("IsNearWhite(%v) = %v want %v", tc.c, got, tc.want)
		}
	}
}

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	img.SetNRGBA(1, 0, color.NRGBA{235, 235, 235, 255})
	img.SetNRGBA(2, 0, color.NRGBA{236, 211, 211, 200})
	img.SetNRGBA(0, 1, color.NRGBA{200, 30, 40, 255})
	img.SetNRGBA(1, 1, color.NRGBA{10, 120, 10, 128})
	img.SetNRGBA(2, 1, color.NRGBA{240, 240, 240, 255})
	return img
}

func TestRemoveWhiteBackground(t *testing.T) {
	src := testImage()
	before := append([]byte(nil), src.Pix...)

	out, err := RemoveWhiteBackground(src)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if out.Bounds().Dx() != 3 || out.Bounds().Dy() != 2 {
		t.Fatalf("dimensions changed: %v", out.Bounds())
	}
	if !bytes.Equal(before, src.Pix) {
		t.Fatalf("source image mutated")
	}

	cleared := map[image.Point]bool{{0, 0}: true, {2, 0}: true, {2, 1}: true}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			got := out.NRGBAAt(x, y)
			want := src.NRGBAAt(x, y)
			if cleared[image.Pt(x, y)] {
				want.A = 0
			}
			if got != want {
				t.Fatalf("pixel (%d,%d): got %v want %v", x, y, got, want)
			}
		}
	}
}

func TestRemoveWhiteBackgroundIdempotent(t *testing.T) {
	once, _ := RemoveWhiteBackground(testImage())
	twice, _ := RemoveWhiteBackground(testImage())
	if !bytes.Equal(once.Pix, twice.Pix) {
		t.Fatalf("same input must give same output")
	}
}

func TestRemoveWhiteBackgroundOffsetBounds(t *testing.T) {
	src := testImage().SubImage(image.Rect(1, 1, 3, 2))
	out, err := RemoveWhiteBackground(src)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if out.NRGBAAt(1, 0).A != 0 || out.NRGBAAt(0, 0).A != 128 {
		t.Fatalf("sub-image pixels not mapped correctly: %v %v", out.NRGBAAt(0, 0), out.NRGBAAt(1, 0))
	}
}

func TestRemoveWhiteBackgroundEmpty(t *testing.T) {
	if _, err := RemoveWhiteBackground(image.NewNRGBA(image.Rect(0, 0, 0, 0))); err != ErrEmptyImage {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, testImage()); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestPreprocessorFromDisk(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "rose.png"))

	p := NewPreprocessor(NewLoader("", dir))
	img, err := p.Process(context.Background(), "/rose.png")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if img.Bounds().Dx() != 3 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if _, err := p.Process(context.Background(), "/missing.png"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLocalLoaderStaysInRoot(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "rose.png"))
	outside := t.TempDir()
	writePNG(t, filepath.Join(outside, "secret.png"))

	l := NewLocalLoader(root)
	if _, err := l.Load(context.Background(), "/rose.png"); err != nil {
		t.Fatalf("local load: %v", err)
	}
	rel, _ := filepath.Rel(root, filepath.Join(outside, "secret.png"))
	if _, err := l.Load(context.Background(), filepath.ToSlash(rel)); err == nil {
		t.Fatalf("path outside root must be rejected")
	}
	if _, err := l.Load(context.Background(), "http://example.com/rose.png"); err == nil {
		t.Fatalf("remote url must be rejected")
	}
}

func TestLoaderHTTP(t *testing.T) {
	var buf bytes.Buffer
	_ = png.Encode(&buf, testImage())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plants/tulip.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	l := NewLoader(srv.URL, "")
	if _, err := l.Load(context.Background(), "/plants/tulip.png"); err != nil {
		t.Fatalf("relative load: %v", err)
	}
	if _, err := l.Load(context.Background(), srv.URL+"/plants/tulip.png"); err != nil {
		t.Fatalf("absolute load: %v", err)
	}
	if _, err := l.Load(context.Background(), srv.URL+"/nope.png"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder(10)
	if img.NRGBAAt(5, 5).A != 255 || img.NRGBAAt(0, 0).A != 0 {
		t.Fatalf("unexpected placeholder pixels")
	}
}
