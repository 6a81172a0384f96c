package processor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

var errTainted = errors.New("surface holds a cross-origin image without read permission")

// ExportError is returned when a surface cannot be serialized.
type ExportError struct {
	Tainted bool
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export canvas: %v", e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// export flattens the surface into PNG bytes.
func export(s *surface) ([]byte, error) {
	if s.tainted {
		return nil, &ExportError{Tainted: true, Err: errTainted}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, s.dc.Image(), imaging.PNG); err != nil {
		return nil, &ExportError{Err: err}
	}

	return buf.Bytes(), nil
}
