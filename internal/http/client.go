// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/wneessen/stationgrid/internal/logger"
)

const (
	// DefaultTimeout is the default timeout value for the HTTPClient
	DefaultTimeout = time.Second * 30
)

var (
	// version is the version of the application (will be set at build time)
	version = "dev"
	// UserAgent is the User-Agent that the HTTP client sends with requests
	UserAgent = fmt.Sprintf("Mozilla/5.0 (%s; %s) stationgrid/%s (+https://github.com/wneessen/stationgrid/)",
		runtime.GOOS,
		runtime.GOARCH,
		version,
	)

	// ErrUnexpectedStatus is returned if the server answers with a non-2xx status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNilConsumer is returned if no body consumer was given.
	ErrNilConsumer = errors.New("body consumer must not be nil")
)

// Client is a type wrapper for the Go stdlib http.Client and the Config
type Client struct {
	*http.Client
	logger *logger.Logger
}

// New returns a new HTTP client
func New(logger *logger.Logger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	httpTransport := &http.Transport{TLSClientConfig: tlsConfig}
	httpClient := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: httpTransport,
	}
	return &Client{httpClient, logger}
}

// Get performs a HTTP GET request for the given URL and hands the response body to consume
func (h *Client) Get(ctx context.Context, endpoint string, consume func(io.Reader) error) (int, error) {
	return h.GetWithTimeout(ctx, endpoint, consume, DefaultTimeout)
}

// GetWithTimeout performs a HTTP GET request for the given URL and timeout and hands the
// response body to consume. The body is closed once consume returns.
func (h *Client) GetWithTimeout(ctx context.Context, endpoint string, consume func(io.Reader) error,
	timeout time.Duration,
) (int, error) {
	if consume == nil {
		return 0, ErrNilConsumer
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}

	// Prepare HTTP request
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed create new HTTP request with context: %w", err)
	}
	request.Header.Set("User-Agent", UserAgent)

	// Execute HTTP request
	response, err := h.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if response == nil {
		return 0, errors.New("nil response received")
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			h.logger.Error("failed to close HTTP request body", logger.Err(err))
		}
	}(response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return response.StatusCode, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, reqURL.Redacted(),
			response.StatusCode)
	}
	if err = consume(response.Body); err != nil {
		return response.StatusCode, fmt.Errorf("failed to consume response body: %w", err)
	}

	return response.StatusCode, nil
}
