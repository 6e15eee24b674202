// Package whttp wraps go-retryablehttp with the request/response shapes the
// rest of galshelf uses.
package whttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const UserAgent = "galshelf/1.0 (+https://github.com/sw33tLie/galshelf)"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    []byte
}

type WHTTPRes struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// BodyString returns the response body as text.
func (r *WHTTPRes) BodyString() string { return string(r.Body) }

// ClientOptions configures NewClient.
type ClientOptions struct {
	// Retries is the number of retries after the first attempt. Zero
	// disables retrying.
	Retries int
	Timeout time.Duration
	Proxy   string
	// Logger receives retry diagnostics. Nil silences them.
	Logger retryablehttp.LeveledLogger
}

// NewClient builds a retrying client. Transport errors and 5xx responses are
// retried; once retries are exhausted the last response is handed back
// instead of an error, so callers can read the server's error body.
func NewClient(opts ClientOptions) (*retryablehttp.Client, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Logger != nil {
		client.Logger = opts.Logger
	} else {
		client.Logger = nil
	}
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		client.HTTPClient.Transport = &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client, nil
}

// SendHTTPRequest performs wReq and reads the whole body. Non-2xx statuses
// are not errors here.
func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	var body interface{}
	if wReq.Body != nil {
		body = bytes.NewReader(wReq.Body)
	}
	method := wReq.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", "en")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &WHTTPRes{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        bodyBytes,
	}, nil
}

// FetchBytes GETs rawURL and fails on any non-2xx status.
func FetchBytes(ctx context.Context, client *retryablehttp.Client, rawURL string) ([]byte, error) {
	res, err := SendHTTPRequest(ctx, &WHTTPReq{URL: rawURL, Method: http.MethodGet}, client)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", rawURL, res.StatusCode)
	}
	return res.Body, nil
}
