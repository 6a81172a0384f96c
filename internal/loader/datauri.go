package loader

import (
	"fmt"
	"image"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

const (
	dataScheme   = "data:"
	base64Marker = ";base64,"
)

// IsDataURI reports whether s is an embedded data URI.
func IsDataURI(s string) bool {
	return len(s) >= len(dataScheme) && strings.EqualFold(s[:len(dataScheme)], dataScheme)
}

// DataURI embeds raw image bytes into a base64 data URI.
func DataURI(mime string, data []byte) string {
	return dataurl.New(data, mime).String()
}

// decodeDataURI decodes the payload of a data URI into an image. Both base64
// and percent-encoded payloads are accepted.
func decodeDataURI(s string, maxPixels int) (image.Image, error) {
	// Browsers accept any scheme case and line-wrapped base64.
	s = dataScheme + s[len(dataScheme):]
	if i := strings.Index(strings.ToLower(s), base64Marker); i >= 0 {
		head := i + len(base64Marker)
		s = s[:head] + strings.Join(strings.Fields(s[head:]), "")
	}

	du, err := dataurl.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed data uri: %w", err)
	}

	return decodeImage(du.Data, maxPixels)
}
