package server

import (
	"net/http"
	"strings"
)

// BasicRouter implements [Router] on [http.ServeMux] method patterns, so a known path hit with the
// wrong method gets a 405. Requests matching no route go to the fallback set with [BasicRouter.NotFound].
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	fallback    bool
}

func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first one added runs outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(strings.ToUpper(method)+" "+path, r.Apply(handler))
}

// Handler mounts every pattern listed by [Handler.Routes].
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// NotFound sets the handler for unmatched requests. It can be set once and must not collide with a "/" route.
func (r *BasicRouter) NotFound(handler http.Handler) {
	if r.fallback {
		return
	}
	r.fallback = true
	r.mux.Handle("/", r.Apply(handler))
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler in the registered middleware.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	return handler
}
