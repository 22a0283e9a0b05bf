package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"

	"github.com/kozaktomas/face-graph/internal/apperror"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestFit(t *testing.T) {
	tests := []struct {
		name          string
		w, h, maxSize int
		wantW, wantH  int
	}{
		{"landscape", 200, 100, 50, 50, 25},
		{"portrait", 100, 200, 50, 25, 50},
		{"already small", 40, 30, 50, 40, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Fit(testJPEG(t, tt.w, tt.h), tt.maxSize)
			if err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			w, h := decodeSize(t, out)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestFit_InvalidData(t *testing.T) {
	if _, err := Fit([]byte("not an image"), 10); err == nil {
		t.Error("expected decode error")
	}
}

func TestCropStore_Load(t *testing.T) {
	store := NewCropStore(t.TempDir())
	original := testJPEG(t, 120, 80)
	if err := os.WriteFile(store.Path(7), original, 0o600); err != nil {
		t.Fatal(err)
	}

	raw, err := store.Load(7, 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(raw, original) {
		t.Error("size 0 should return the stored file")
	}

	small, err := store.Load(7, 60)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if w, h := decodeSize(t, small); w != 60 || h != 40 {
		t.Errorf("expected 60x40, got %dx%d", w, h)
	}

	if _, err := store.Load(8, 0); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := store.Load(7, -1); !errors.Is(err, apperror.ErrBadInput) {
		t.Errorf("expected bad input, got %v", err)
	}
}
