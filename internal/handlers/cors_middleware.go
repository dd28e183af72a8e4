package handlers

import (
	"net/http"
	"strings"

	"livechat-csat-service/internal/config"
)

// originAllowlist is the set of sites permitted to embed the chat
// widget. "*" opens the surface to any origin.
type originAllowlist struct {
	origins   []string
	allowsAll bool
}

func newOriginAllowlist(csv string) originAllowlist {
	var al originAllowlist
	for _, part := range strings.Split(csv, ",") {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}
		if s == "*" {
			al.allowsAll = true
		}
		al.origins = append(al.origins, s)
	}
	return al
}

func (al originAllowlist) allows(origin string) bool {
	if al.allowsAll {
		return true
	}
	for _, o := range al.origins {
		if origin == o {
			return true
		}
	}
	return false
}

// WithCORS answers the preflight requests browsers send before the
// embedded widget may call this service from a customer's site.
func WithCORS(cfg config.Config) func(http.Handler) http.Handler {
	allowlist := newOriginAllowlist(cfg.CORSAllowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" && allowlist.allows(origin) {
				w.Header().Set("Vary", "Origin")
				if allowlist.allowsAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Widget-Key, Accept")
				w.Header().Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
