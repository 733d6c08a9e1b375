//go:build !docs
// +build !docs

// Without the docs build tag the tracking service carries no embedded
// documentation bundle and /docs is not routed.

package services

import (
	"github.com/gorilla/mux"
)

var HaveDocEndpoints bool = false

// AddDocEndpoints is a no-op in builds without the docs bundle.
func AddDocEndpoints(r *mux.Router) {
}
