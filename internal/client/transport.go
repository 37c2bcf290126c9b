package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// CreateOptimizedTransport returns a transport with a connection pool sized
// for a handful of upstream hosts.
func CreateOptimizedTransport(insecureSkipVerify bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // opt-in for self-hosted GitHub Enterprise
			MinVersion:         tls.VersionTLS12,
		},
	}
}
