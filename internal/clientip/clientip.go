// Package clientip works out which address a request originally came from.
package clientip

import (
	"net"
	"net/http"
	"strings"

	"github.com/sakif/company-reviews/internal/model"
)

// ForwardedForHeader lists the proxy chain, original client first.
const ForwardedForHeader = "X-Forwarded-For"

// FromRequest resolves the client address of r. See Resolve.
func FromRequest(r *http.Request) string {
	return Resolve(r.Header, r.RemoteAddr)
}

// Resolve returns the first entry of X-Forwarded-For when the header is
// present, otherwise the host part of remoteAddr. The value is not validated
// as an IP; it is only cut to the length the reviews table can hold.
func Resolve(header http.Header, remoteAddr string) string {
	if forwarded := header.Get(ForwardedForHeader); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return truncate(strings.TrimSpace(first))
	}
	return truncate(hostOnly(remoteAddr))
}

// hostOnly strips the port net/http puts on RemoteAddr ("ip:port" or
// "[ipv6]:port"). Anything that doesn't parse is returned as is.
func hostOnly(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func truncate(s string) string {
	if len(s) > model.MaxIPAddressLength {
		return s[:model.MaxIPAddressLength]
	}
	return s
}
