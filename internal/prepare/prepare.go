// ABOUTME: Image preparation: turns a discovered file into a request payload
// ABOUTME: Validates, base64-encodes, and assigns the stable request id
package prepare

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Decoders registered for validation of the common formats.
	_ "image/jpeg"
	_ "image/png"

	"github.com/harper/photo-critic/internal/discovery"
	"github.com/harper/photo-critic/internal/models"
)

// ErrCorruptInput marks files that cannot be read or decoded. Callers record
// these as error results and continue; no batch entry is created for them.
var ErrCorruptInput = errors.New("corrupt input")

// mediaTypes maps file extensions to MIME types. Unknown extensions fall
// back to JPEG, matching what the supported-extension filter lets through.
var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
}

// Prepare reads and encodes one image into a RequestItem. index is the
// position in discovery order; the id it produces is stable across runs for
// the same file at the same position.
func Prepare(img discovery.Image, index int) (models.RequestItem, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return models.RequestItem{}, fmt.Errorf("%w: reading %s: %v", ErrCorruptInput, img.Path, err)
	}
	if len(data) == 0 {
		return models.RequestItem{}, fmt.Errorf("%w: empty file %s", ErrCorruptInput, img.Path)
	}

	ext := strings.ToLower(filepath.Ext(img.Path))
	mediaType, ok := mediaTypes[ext]
	if !ok {
		mediaType = "image/jpeg"
	}

	// stdlib decoders cover jpeg and png; other formats pass through
	// unvalidated and are left to the provider to reject.
	if mediaType == "image/jpeg" || mediaType == "image/png" {
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return models.RequestItem{}, fmt.Errorf("%w: decoding %s: %v", ErrCorruptInput, img.Path, err)
		}
	}

	encoded := base64.StdEncoding.EncodeToString(data)

	return models.RequestItem{
		ID:       RequestID(index, img.Path),
		Path:     img.Path,
		Filename: img.Name,
		Index:    index,
		Payload: models.Payload{
			Data:      encoded,
			MediaType: mediaType,
			Size:      int64(len(encoded)),
		},
		Status: models.StatusPending,
	}, nil
}

// RequestID derives the stable custom id for an image, e.g. img_0003_sunset.
func RequestID(index int, path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return fmt.Sprintf("img_%04d_%s", index, stem)
}

// DataURL renders the payload as a data URL for the vision request body.
func DataURL(p models.Payload) string {
	return fmt.Sprintf("data:%s;base64,%s", p.MediaType, p.Data)
}
