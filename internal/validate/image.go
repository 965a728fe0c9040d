package validate

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest image accepted for upload.
const MaxImageSize = 5 << 20

// ImageTypes are the accepted image MIME types.
var ImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// Image checks an image for upload and returns its sniffed MIME type.
// An empty image is rejected; callers skip Image for optional uploads.
func Image(data []byte) (string, error) {
	if len(data) == 0 {
		return "", &Error{Field: "image", Message: "Please upload an image."}
	}
	if len(data) > MaxImageSize {
		return "", &Error{
			Field:   "image",
			Message: fmt.Sprintf("Image size should not exceed %s (got %s).", humanize.IBytes(MaxImageSize), humanize.IBytes(uint64(len(data)))),
		}
	}
	mt := mimetype.Detect(data)
	for _, allowed := range ImageTypes {
		if mt.Is(allowed) {
			return allowed, nil
		}
	}
	return "", &Error{
		Field:   "image",
		Message: fmt.Sprintf("Invalid image type. Allowed types are: %s.", strings.Join(ImageTypes, ", ")),
	}
}
