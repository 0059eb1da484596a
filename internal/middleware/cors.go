package middleware

import "net/http"

// CORS answers preflight requests for the JSON API. An empty allow list
// accepts any origin. Request ids and rate-limit hints are exposed so browser
// clients can read them.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allow := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allow[origin] = struct{}{}
	}

	resolve := func(origin string) (string, bool) {
		if len(allow) == 0 {
			return "*", true
		}
		_, ok := allow[origin]
		return origin, ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				if value, ok := resolve(origin); ok {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", value)
					if value != "*" {
						h.Add("Vary", "Origin")
					}
					h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
					h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
					h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
					h.Set("Access-Control-Max-Age", "600")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
