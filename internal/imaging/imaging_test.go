package imaging

import (
	"image"
	"image/color"
	"testing"
)

func testFrame(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	url, err := EncodeDataURL(img, 90)
	if err != nil {
		t.Fatalf("EncodeDataURL: %v", err)
	}
	return url
}

func TestResizeScalesToWidth(t *testing.T) {
	src := testFrame(t, 1200, 1600)

	out := Resize(src, AnalysisWidth)
	img, err := DecodeDataURL(out)
	if err != nil {
		t.Fatalf("resized output does not decode: %v", err)
	}
	if got := img.Bounds().Dx(); got != AnalysisWidth {
		t.Fatalf("expected width %d, got %d", AnalysisWidth, got)
	}
	if got := img.Bounds().Dy(); got != 1067 {
		t.Fatalf("expected height 1067, got %d", got)
	}
}

func TestResizeIsStableUnderRepeat(t *testing.T) {
	src := testFrame(t, 640, 480)

	once := Resize(src, StorageWidth)
	twice := Resize(once, StorageWidth)
	if got := Width(twice); got != StorageWidth {
		t.Fatalf("expected width %d after second resize, got %d", StorageWidth, got)
	}
}

func TestResizeFailsOpen(t *testing.T) {
	inputs := []string{
		"",
		"not a data url",
		"data:image/jpeg;base64,!!!!",
		"data:image/jpeg;base64,aGVsbG8=",
	}
	for _, in := range inputs {
		if got := Resize(in, StorageWidth); got != in {
			t.Fatalf("expected %q returned unchanged, got %q", in, got)
		}
	}
}

func TestResizeIgnoresNonPositiveWidth(t *testing.T) {
	src := testFrame(t, 10, 10)
	if got := Resize(src, 0); got != src {
		t.Fatal("expected unchanged payload for zero width")
	}
}

func TestWidthOfGarbage(t *testing.T) {
	if got := Width("data:image/png;base64,AAAA"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
