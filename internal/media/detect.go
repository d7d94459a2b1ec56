package media

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ReadImage loads an image for upload and sniffs its content type. Anything
// that is not an image is rejected before it reaches the API.
func ReadImage(path string) ([]byte, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	mime := mimetype.Detect(b)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, "", fmt.Errorf("%s is %s, not an image", path, mime.String())
	}
	return b, mime.String(), nil
}
