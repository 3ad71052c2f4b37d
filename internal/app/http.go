package app

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient returns a client for the model server and image fetches.
// Model calls on local hardware can be slow, so only the dial and TLS
// phases are tight; timeout bounds the whole exchange.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
