package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig is the cross-origin policy for the GraphQL endpoint.
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]bool
	credentials bool
	methods     string
	headers     string
	expose      string
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:     make(map[string]bool, len(cfg.AllowedOrigins)),
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
	}
	for _, origin := range cfg.AllowedOrigins {
		switch origin = strings.TrimSpace(origin); origin {
		case "":
		case "*":
			p.anyOrigin = true
		default:
			p.origins[origin] = true
		}
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

func (p *corsPolicy) allows(origin string) bool {
	return p.anyOrigin || p.origins[origin]
}

// writeOrigin sets the headers every response to an allowed origin carries.
// Credentials are never advertised alongside a wildcard origin.
func (p *corsPolicy) writeOrigin(h http.Header, origin string) {
	if p.anyOrigin {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		if p.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
	}
	setIfNotEmpty(h, "Access-Control-Expose-Headers", p.expose)
}

func (p *corsPolicy) writePreflight(h http.Header) {
	setIfNotEmpty(h, "Access-Control-Allow-Methods", p.methods)
	setIfNotEmpty(h, "Access-Control-Allow-Headers", p.headers)
	setIfNotEmpty(h, "Access-Control-Max-Age", p.maxAge)
}

func setIfNotEmpty(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// CORSMiddleware applies cfg to cross-origin requests and answers preflights
// with 204. Requests without an Origin header are untouched.
func CORSMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed := policy.allows(origin)
			if allowed {
				policy.writeOrigin(w.Header(), origin)
			}
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if allowed {
				policy.writePreflight(w.Header())
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
