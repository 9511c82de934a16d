package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TikaClient вызывает Apache Tika Server (эндпоинт /rmeta/text).
type TikaClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewTikaClient создаёт клиента; baseURL вида http://tika:9998.
func NewTikaClient(baseURL string) *TikaClient {
	return &TikaClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *TikaClient) Extract(ctx context.Context, r io.Reader) (Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+"/rmeta/text", r)
	if err != nil {
		return Content{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Content{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Content{}, fmt.Errorf("tika: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// /rmeta возвращает массив: первый элемент — сам документ, остальные — вложения
	var meta []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return Content{}, fmt.Errorf("tika: decode: %w", err)
	}
	if len(meta) == 0 {
		return Content{}, errors.New("tika: empty metadata")
	}
	var sb strings.Builder
	for _, m := range meta {
		if s, ok := m["X-TIKA:content"].(string); ok {
			sb.WriteString(s)
		}
	}
	ct, _ := meta[0]["Content-Type"].(string)
	return Content{Text: strings.TrimSpace(sb.String()), ContentType: ct}, nil
}
