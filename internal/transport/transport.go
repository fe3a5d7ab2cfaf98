// Package transport builds the HTTP transports used for calls to the shop API.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Options selects how upstream connections are made.
type Options struct {
	// DialTimeout bounds TCP connect and TLS handshake.
	DialTimeout time.Duration

	// FingerprintTLS presents a Chrome ClientHello instead of Go's.
	// Some shop CDNs throttle clients by JA3 fingerprint.
	FingerprintTLS bool

	// UserAgent is set on every request that does not carry one.
	UserAgent string
}

// New returns the round tripper described by opts.
func New(opts Options) http.RoundTripper {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}

	var base http.RoundTripper
	if opts.FingerprintTLS {
		base = NewChromeTransport(opts.DialTimeout)
	} else {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DialContext = (&net.Dialer{Timeout: opts.DialTimeout}).DialContext
		t.TLSHandshakeTimeout = opts.DialTimeout
		base = t
	}

	if opts.UserAgent == "" {
		return base
	}
	return &userAgentTransport{next: base, userAgent: opts.UserAgent}
}

// userAgentTransport stamps a default User-Agent.
// Shop WAFs commonly reject requests without one.
type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	// RoundTrippers must not mutate the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(clone)
}

// NewChromeTransport creates an http.RoundTripper that dials TLS with
// Chrome's fingerprint (uTLS HelloChrome_Auto). ALPN decides between
// HTTP/2 framing via x/net/http2 and a plain HTTP/1.1 transport.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	return &chromeTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialChromeTLS(ctx, dialer, network, addr)
			},
		},
		h1: &http.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialChromeTLS(ctx, dialer, network, addr)
			},
			DialContext:       dialer.DialContext,
			ForceAttemptHTTP2: false,
		},
	}
}

type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip sends plain-http requests over HTTP/1.1 directly. HTTPS tries
// HTTP/2 first and falls back to HTTP/1.1 when the server refuses h2.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}
	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		// Body already consumed by the h2 attempt; cannot replay.
		return nil, err
	}
	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return nil, berr
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
