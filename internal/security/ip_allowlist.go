package security

import (
	"net"
	"net/http"
	"strings"
)

// Allowlist is a set of networks permitted to reach the ledger. An empty
// allowlist admits everyone.
type Allowlist []*net.IPNet

func ParseCIDRAllowlist(cidrs []string) (Allowlist, error) {
	var out Allowlist
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// AllowsAddr reports whether a host:port remote address is admitted.
func (a Allowlist) AllowsAddr(addr string) bool {
	if len(a) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range a {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func IPAllowlist(allow Allowlist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow.AllowsAddr(r.RemoteAddr) {
				WriteJSONError(w, r, http.StatusForbidden, "forbidden", "client address not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
