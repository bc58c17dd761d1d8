// Package httpclient provides the single process-wide HTTP client shared by
// every provider backend: one connection pool, configured connect/request
// timeouts, redirects followed. Backends ask for a client sized for either a
// non-streaming call (bounded total request time) or a stream (a longer
// bound, since the body may legitimately stay open for minutes).
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultNonStreamTimeout bounds a full non-streaming request/response
	// round trip, including connection setup.
	DefaultNonStreamTimeout = 2 * time.Minute

	// DefaultStreamTimeout bounds how long a streaming response body may
	// remain open before the connection is forcibly closed.
	DefaultStreamTimeout = 5 * time.Minute

	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 30 * time.Second
)

var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	TLSHandshakeTimeout:   tlsHandshakeTimeout,
	ResponseHeaderTimeout: responseHeaderTimeout,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
}

// Shared returns the process-wide HTTP client used for non-streaming calls,
// bounded by DefaultNonStreamTimeout. The returned client shares its
// transport (and therefore its connection pool) with every other call to
// Shared and SharedStreaming.
func Shared() *http.Client {
	return &http.Client{Transport: sharedTransport, Timeout: DefaultNonStreamTimeout}
}

// SharedStreaming returns a client suited for streaming responses: the
// overall Timeout is DefaultStreamTimeout, covering the whole streamed body,
// and the underlying transport also enforces dial, TLS, and response-header
// timeouts. Callers may bound a stream more tightly via context.
func SharedStreaming() *http.Client {
	return &http.Client{Transport: sharedTransport, Timeout: DefaultStreamTimeout}
}
