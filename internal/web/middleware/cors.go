package middleware

import "net/http"

// CORS returns middleware that lets any origin read the viewer's API.
// The viewer is read-only and listens on localhost.
func CORS() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Last-Event-ID")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", "3600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ReadOnly rejects every method except GET, HEAD and OPTIONS.
func ReadOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				w.Header().Set("Allow", "GET, HEAD, OPTIONS")
				http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			}
		})
	}
}
