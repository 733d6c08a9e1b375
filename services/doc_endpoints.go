//go:build docs
// +build docs

// This serves the stage tracker's generated API documentation bundle (see
// the go:generate directives in main.go) under the /docs prefix.

package services

import (
	"embed"
	"net/http"

	"github.com/gorilla/mux"
)

var HaveDocEndpoints bool = true

//go:embed docs
var docs embed.FS

// AddDocEndpoints registers the embedded documentation bundle on the
// tracking service's router.
func AddDocEndpoints(r *mux.Router) {
	docServer := http.FileServer(http.FS(docs))
	r.PathPrefix("/docs").Handler(docServer).Methods("GET")
}
