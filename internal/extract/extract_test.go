package extract

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffExtractor_Text(t *testing.T) {
	c, err := SniffExtractor{}.Extract(context.Background(), strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", c.Text)
	assert.True(t, strings.HasPrefix(c.ContentType, "text/plain"))
}

func TestSniffExtractor_Binary(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	c, err := SniffExtractor{}.Extract(context.Background(), strings.NewReader(string(png)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", c.ContentType)
	assert.Empty(t, c.Text)
}

func TestSniffExtractor_Empty(t *testing.T) {
	c, err := SniffExtractor{}.Extract(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", c.ContentType)
	assert.Empty(t, c.Text)
}

func TestTikaClient_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/rmeta/text", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-1.4 data", string(body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"Content-Type": "application/pdf", "X-TIKA:content": "\n extracted text \n"},
		})
	}))
	defer srv.Close()

	c, err := NewTikaClient(srv.URL+"/").Extract(context.Background(), strings.NewReader("%PDF-1.4 data"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", c.ContentType)
	assert.Equal(t, "extracted text", c.Text)
}

func TestTikaClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewTikaClient(srv.URL).Extract(context.Background(), strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestDocumentServerClient_Index(t *testing.T) {
	var got fulltextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fulltext_indexing", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"part_count":1,"status":{"error_code":0,"err_message":""}}`))
	}))
	defer srv.Close()

	err := NewDocumentServerClient(srv.URL).Index(context.Background(), Document{
		FileRef: "ref-1", Tenant: "acme", Text: "hello", Token: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "ref-1", got.FileRef)
	assert.Equal(t, "acme", got.Tenant)
	assert.Equal(t, "hello", got.RawText)
	assert.Equal(t, "no_filename_for_now", got.FileName)
}

func TestDocumentServerClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"part_count":0,"status":{"error_code":3,"err_message":"bad text"}}`))
	}))
	defer srv.Close()

	err := NewDocumentServerClient(srv.URL).Index(context.Background(), Document{FileRef: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad text")
}

func TestNopIndexer(t *testing.T) {
	assert.NoError(t, NopIndexer{}.Index(context.Background(), Document{}))
}
