// Package site serves the embedded logbook front-end.
package site

import (
	"context"
	"net/http"
)

// Register serves the front-end at / and its assets from the embedded FS.
// Paths with no matching file return 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", http.FileServer(FS()))
}
