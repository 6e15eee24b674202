// Package source talks to the catalog service that parses game documents
// into raw records.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/galshelf/pkg/catalog"
	"github.com/sw33tLie/galshelf/pkg/whttp"
	"github.com/tidwall/gjson"
)

// Result is one catalog response.
type Result struct {
	Records  []catalog.RawRecord
	Warnings []string
	Message  string
	// Malformed is set when the payload had no usable games array.
	Malformed bool
}

// CatalogSource produces raw records for a folder.
type CatalogSource interface {
	Name() string
	FetchCatalog(ctx context.Context, folderPath string) (Result, error)
}

// ServerError is a non-2xx answer from the catalog service.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Client is the HTTP CatalogSource.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
}

// NewClient returns a client for the service rooted at endpoint, e.g.
// "http://127.0.0.1:7500".
func NewClient(endpoint string, httpClient *retryablehttp.Client) *Client {
	return &Client{endpoint: strings.TrimRight(endpoint, "/"), http: httpClient}
}

func (c *Client) Name() string { return c.endpoint }

// FetchCatalog posts the folder path and decodes the envelope. Transport
// failures and non-2xx answers are errors; a 2xx answer without a games
// array is a Malformed result, not an error.
func (c *Client) FetchCatalog(ctx context.Context, folderPath string) (Result, error) {
	body, err := json.Marshal(map[string]string{"folder_path": folderPath})
	if err != nil {
		return Result{}, err
	}

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		URL:     c.endpoint + "/api/games_basic",
		Method:  http.MethodPost,
		Body:    body,
		Headers: []whttp.WHTTPHeader{{Name: "Content-Type", Value: "application/json"}},
	}, c.http)
	if err != nil {
		return Result{}, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := fmt.Sprintf("服务器响应错误: %d", res.StatusCode)
		if gjson.ValidBytes(res.Body) {
			if e := gjson.GetBytes(res.Body, "error"); e.Type == gjson.String && e.String() != "" {
				msg = e.String()
			}
		}
		return Result{}, &ServerError{Status: res.StatusCode, Message: msg}
	}

	return ParseEnvelope(res.Body), nil
}

// ParseEnvelope decodes a success payload.
func ParseEnvelope(body []byte) Result {
	if !gjson.ValidBytes(body) {
		return Result{Malformed: true}
	}
	root := gjson.ParseBytes(body)
	games := root.Get("games")
	if !games.IsArray() {
		return Result{Malformed: true, Message: root.Get("message").String()}
	}

	out := Result{
		Records: catalog.RawRecordsFrom(games),
		Message: root.Get("message").String(),
	}
	for _, w := range root.Get("warnings").Array() {
		if s := strings.TrimSpace(w.String()); s != "" {
			out.Warnings = append(out.Warnings, s)
		}
	}
	return out
}
