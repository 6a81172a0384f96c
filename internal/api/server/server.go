package server

import (
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
)

// New returns an HTTP server for the API. WriteTimeout leaves room for a
// synchronous render walking every delivery tier twice.
func New(addr string, router *ginext.Engine) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
