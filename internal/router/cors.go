package router

import "net/http"

// corsAllower decides, from a configured allow-list, whether an
// Origin may receive Access-Control-Allow-Origin. An empty list
// allows nothing: no CORS headers are emitted and cross-origin
// browser clients are blocked by their own user agent.
type corsAllower struct {
	origins map[string]bool
	allowAll bool
}

func newCORSAllower(origins []string) *corsAllower {
	c := &corsAllower{origins: make(map[string]bool, len(origins))}
	for _, o := range origins {
		if o == "*" {
			c.allowAll = true
		}
		c.origins[o] = true
	}
	return c
}

func (c *corsAllower) allowed(origin string) bool {
	if origin == "" {
		return false
	}
	return c.allowAll || c.origins[origin]
}

// apply writes CORS headers for r onto w, if r's Origin is allowed.
// It reports whether the headers were written, so callers can decide
// how to finish handling an OPTIONS preflight.
func (c *corsAllower) apply(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if !c.allowed(origin) {
		return false
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, Authorization")
	return true
}

// middleware wraps next with CORS header application and handles
// OPTIONS preflight requests itself, with no further dispatch: 204 when
// the origin is allowed, 200 without CORS headers otherwise.
func (c *corsAllower) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		applied := c.apply(w, r)
		if r.Method == http.MethodOptions {
			if applied {
				w.WriteHeader(http.StatusNoContent)
			} else {
				w.WriteHeader(http.StatusOK)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}
