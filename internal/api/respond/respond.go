package respond

import (
	"io"
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

const pngContentType = "image/png"

// Success represents a standard structure for successful responses.
type Success struct {
	Result interface{} `json:"result"`
}

// Error represents a standard structure for error responses.
type Error struct {
	Message string `json:"message"`
}

// PNG writes an encoded PNG held in memory.
func PNG(c *ginext.Context, status int, data []byte) {
	c.Data(status, pngContentType, data)
}

// PNGStream streams a PNG image directly from an io.Reader as the HTTP response.
func PNGStream(c *ginext.Context, status int, reader io.Reader) {
	c.DataFromReader(status, -1, pngContentType, reader, nil)
}

// JSON sends a JSON response with the specified HTTP status code and data.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK JSON response, wrapping the given result in a Success struct.
func OK(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusOK, Success{Result: result})
}

// Accepted sends a 202 Accepted JSON response for work handed to the queue.
func Accepted(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusAccepted, Success{Result: result})
}

// Fail sends an error JSON response with the specified HTTP status code.
// The error message is wrapped in an Error struct.
func Fail(c *ginext.Context, status int, err error) {
	JSON(c, status, Error{Message: err.Error()})
}
