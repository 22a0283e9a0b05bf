// Package imaging serves extracted face crops.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/face-graph/internal/apperror"
)

const jpegQuality = 85

// CropStore reads face crops named face_<id>.jpg from a directory.
type CropStore struct {
	dir string
}

// NewCropStore returns a store rooted at dir.
func NewCropStore(dir string) *CropStore {
	return &CropStore{dir: dir}
}

// Path returns the crop file of a face.
func (s *CropStore) Path(faceID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("face_%d.jpg", faceID))
}

// Load returns the crop of a face as JPEG. A positive size scales the crop
// down to fit a size x size box; zero returns the stored file.
func (s *CropStore) Load(faceID int64, size int) ([]byte, error) {
	if size < 0 {
		return nil, apperror.BadInput("size must not be negative")
	}
	data, err := os.ReadFile(s.Path(faceID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperror.NotFound("no crop for face %d", faceID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading crop of face %d: %w", faceID, err)
	}
	if size == 0 {
		return data, nil
	}
	return Fit(data, size)
}

// Fit resizes an image to fit within maxSize (width or height) keeping the
// aspect ratio and encodes it as JPEG. Smaller images are only re-encoded.
func Fit(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var out image.Image = img
	if width > maxSize || height > maxSize {
		newWidth, newHeight := maxSize, maxSize
		if width > height {
			newHeight = max(1, height*maxSize/width)
		} else {
			newWidth = max(1, width*maxSize/height)
		}
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
