package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/galshelf/pkg/whttp"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	hc, err := whttp.NewClient(whttp.ClientOptions{})
	require.NoError(t, err)
	return NewClient(srv.URL+"/", hc)
}

func TestFetchCatalogSuccess(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/games_basic", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		gotPath = body["folder_path"]
		io.WriteString(w, `{"games":[{"id":"a"},{"id":"b"}],"warnings":["Duplicate game ID 'a'", ""]}`)
	})

	res, err := c.FetchCatalog(context.Background(), "/srv/games")
	require.NoError(t, err)
	require.Equal(t, "/srv/games", gotPath)
	require.False(t, res.Malformed)
	require.Len(t, res.Records, 2)
	require.Equal(t, "b", res.Records[1].Get("id").String())
	require.Equal(t, []string{"Duplicate game ID 'a'"}, res.Warnings)
}

func TestFetchCatalogServerError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json error body", http.StatusNotFound, `{"error":"Could not access or read directory"}`, "Could not access or read directory"},
		{"plain body", http.StatusBadRequest, `nope`, "服务器响应错误: 400"},
		{"empty error field", http.StatusBadRequest, `{"error":""}`, "服务器响应错误: 400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.FetchCatalog(context.Background(), "/x")
			var se *ServerError
			require.True(t, errors.As(err, &se))
			require.Equal(t, tt.status, se.Status)
			require.Equal(t, tt.message, se.Error())
		})
	}
}

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		malformed bool
		records   int
		message   string
	}{
		{"games array", `{"games":[{}]}`, false, 1, ""},
		{"empty with message", `{"games":[],"message":"No .md files found in the specified directory."}`, false, 0, "No .md files found in the specified directory."},
		{"games not an array", `{"games":{"id":"a"}}`, true, 0, ""},
		{"games missing", `{"message":"hi"}`, true, 0, "hi"},
		{"not json", `<html>`, true, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseEnvelope([]byte(tt.body))
			require.Equal(t, tt.malformed, res.Malformed)
			require.Len(t, res.Records, tt.records)
			require.Equal(t, tt.message, res.Message)
		})
	}
}
