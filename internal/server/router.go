package server

import (
	"net/http"

	"github.com/go-pkgz/routegroup"
)

// BasicRouter is a [Router] backed by a routegroup bundle.
type BasicRouter struct {
	bundle *routegroup.Bundle
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{bundle: routegroup.New(http.NewServeMux())}
}

// Use adds [Middleware] to the router's middleware stack, applied in the order it's added.
//
// Middleware must be added before routes are registered.
func (r *BasicRouter) Use(middleware ...Middleware) {
	for _, m := range middleware {
		r.bundle.Use(m)
	}
}

// Handle registers a handler for the specified HTTP method and path.
//
// An empty method matches every method.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.bundle.Handle(pattern(method, path), handler)
}

// HandleFunc registers a handler function for the specified HTTP method and path.
func (r *BasicRouter) HandleFunc(method, path string, fn http.HandlerFunc) {
	r.bundle.HandleFunc(pattern(method, path), fn)
}

// Handler registers a custom Handler implementation.
//
// All routes returned by [Handler.Routes] are registered with this handler.
func (r *BasicRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.bundle.Handle(route, handler)
	}
}

// With returns a router sharing the same routes whose handlers are additionally wrapped by middleware.
func (r *BasicRouter) With(middleware ...Middleware) *BasicRouter {
	group := r.bundle.Group()
	for _, m := range middleware {
		group.Use(m)
	}
	return &BasicRouter{bundle: group}
}

// Mount returns a router whose routes are registered under prefix.
func (r *BasicRouter) Mount(prefix string) *BasicRouter {
	return &BasicRouter{bundle: r.bundle.Mount(prefix)}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.bundle.ServeHTTP(w, req)
}

func pattern(method, path string) string {
	if method == "" {
		return path
	}
	return method + " " + path
}
