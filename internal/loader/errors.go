package loader

import "fmt"

// ImageLoadError is returned when an image could not be produced by any
// delivery strategy, or when an embedded image could not be decoded.
type ImageLoadError struct {
	URL    string
	Reason string
	Err    error // last underlying error, if any
}

func (e *ImageLoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load image %q: %s", shorten(e.URL), e.Reason)
	}

	return fmt.Sprintf("load image %q: %s: %v", shorten(e.URL), e.Reason, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// shorten keeps data URIs out of logs and error strings.
func shorten(s string) string {
	const maxLen = 64
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen] + "..."
}
