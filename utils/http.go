package utils

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"

	"catbox/internal"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPClientConfig contains configuration for the HTTP client
type HTTPClientConfig struct {
	// Timeout bounds the wait for response headers once the request has been
	// written. Request bodies stream without a deadline; cancel through the context.
	Timeout   time.Duration
	ProxyURL  string
	UserAgent string
	Logger    *internal.SecureLogger
}

// NewHTTPClient creates an HTTP client with a cookie jar and browser-like
// request headers. Proxy and jar failures are ClientConstructionFailed.
func NewHTTPClient(config *HTTPClientConfig) (*http.Client, error) {
	if config == nil {
		config = &HTTPClientConfig{}
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: config.Timeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if config.ProxyURL != "" {
		if err := configureProxy(transport, config.ProxyURL); err != nil {
			return nil, internal.NewCatboxError(internal.ErrClientConstruction, "failed to configure proxy").
				WithCause(err).
				WithContext("proxy", config.ProxyURL)
		}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, internal.NewCatboxError(internal.ErrClientConstruction, "failed to create cookie jar").WithCause(err)
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &http.Client{
		Transport: &browserTransport{
			base:      transport,
			userAgent: userAgent,
			logger:    config.Logger,
		},
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}, nil
}

// configureProxy sets up proxy configuration for the transport
func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsedURL.User != nil {
			password, _ := parsedURL.User.Password()
			auth = &proxy.Auth{User: parsedURL.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("SOCKS5 dialer does not support contexts")
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return contextDialer.DialContext(ctx, network, addr)
		}
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsedURL.Scheme)
	}

	return nil
}

// browserTransport fills in the headers a desktop browser would send
type browserTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *internal.SecureLogger
}

func (t *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	if req.Header.Get("Origin") == "" && req.Method == http.MethodPost {
		req.Header.Set("Origin", req.URL.Scheme+"://"+req.URL.Host)
	}

	if t.logger != nil {
		t.logger.LogHTTPRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if t.logger != nil {
		t.logger.LogHTTPResponse(resp)
	}

	return resp, nil
}
