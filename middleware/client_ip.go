package middleware

import (
	"net"
	"net/http"
	"strings"

	goCred "github.com/MrEthical07/goCred"
)

// ClientIP attaches the caller address to the request context with
// goCred.WithClientIP. When trustProxy is set the first X-Forwarded-For
// entry wins over RemoteAddr.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r.RemoteAddr)
			if trustProxy {
				if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
					first, _, _ := strings.Cut(fwd, ",")
					if first = strings.TrimSpace(first); net.ParseIP(first) != nil {
						ip = first
					}
				}
			}
			if ip != "" {
				r = r.WithContext(goCred.WithClientIP(r.Context(), ip))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
