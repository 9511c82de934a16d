package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StatusError — неуспешный ответ сервера.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server status %d", e.Code)
	}
	return fmt.Sprintf("server status %d: %s", e.Code, e.Body)
}

// Client — HTTP-клиент API DocVault. Token передаётся как Bearer.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New создаёт клиента для baseURL (со схемой).
func New(baseURL, token string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, HTTP: http.DefaultClient}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTP.Do(req)
}

func readStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// UploadReply — ответ сервера на загрузку.
type UploadReply struct {
	FileRef         string `json:"file_ref"`
	Size            int64  `json:"size"`
	BlockCount      int    `json:"block_count"`
	PersistedParts  int    `json:"persisted_parts"`
	MediaType       string `json:"media_type"`
	FulltextIndexed bool   `json:"fulltext_indexed"`
	Status          string `json:"status"`
}

// Upload отправляет содержимое телом запроса. 207 (частично сохранён) возвращается
// вместе с ответом и *StatusError.
func (c *Client) Upload(ctx context.Context, r io.Reader, mediaType string) (*UploadReply, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/files", r, mediaType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return nil, readStatusError(resp)
	}
	var reply UploadReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if resp.StatusCode == http.StatusMultiStatus {
		return &reply, &StatusError{Code: resp.StatusCode, Body: reply.Status}
	}
	return &reply, nil
}

// Download пишет содержимое документа в w и возвращает его тип.
func (c *Client) Download(ctx context.Context, fileRef string, w io.Writer) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/files/"+url.PathEscape(fileRef), nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", readStatusError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", err
	}
	return resp.Header.Get("Content-Type"), nil
}

// GetJSON выполняет GET и декодирует JSON-ответ в out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// PostJSON отправляет payload (nil — пустое тело) и декодирует 2xx-ответ в out.
func (c *Client) PostJSON(ctx context.Context, path string, payload, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}
	resp, err := c.do(ctx, http.MethodPost, path, body, "application/json")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, readStatusError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode: %w", err)
		}
	}
	return resp.StatusCode, nil
}
