// Package authenticator provides concrete ratelimit.Authenticator
// implementations: IP-based and bearer-JWT identity extraction.
package authenticator

import (
	"net"
	"net/http"
	"strings"

	"github.com/alfreddev/ratelimit"
)

// IP extracts the caller's address as the rate-limit identity. It
// prefers a global (publicly routable) address reported via
// X-Real-Ip or the first global hop of X-Forwarded-For, falling back to
// r.RemoteAddr. All requests are assigned group "default".
//
// It returns ratelimit.ErrEmptyInformation (wrapped) if no usable
// address can be determined at all — which in practice only happens
// when RemoteAddr has an empty host. A RemoteAddr that is not in
// host:port form is used whole as the identity.
func IP(r *http.Request) (user, group string, err error) {
	if ip := firstGlobal(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip, "default", nil
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for _, part := range strings.Split(fwd, ",") {
			if ip := firstGlobal(strings.TrimSpace(part)); ip != "" {
				return ip, "default", nil
			}
		}
	}

	host, _, splitErr := net.SplitHostPort(r.RemoteAddr)
	if splitErr != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "", "", ratelimit.NewAuthError("authenticator.IP", ratelimit.ErrEmptyInformation)
	}
	return host, "default", nil
}

// firstGlobal returns addr if it parses as a global unicast IP, or ""
// otherwise.
func firstGlobal(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil {
		return ""
	}
	if !ip.IsGlobalUnicast() || ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return ""
	}
	return addr
}
