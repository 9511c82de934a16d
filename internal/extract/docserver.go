package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DocumentServerClient отправляет текст на полнотекстовую индексацию.
type DocumentServerClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewDocumentServerClient создаёт клиента document server.
func NewDocumentServerClient(baseURL string) *DocumentServerClient {
	return &DocumentServerClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 2 * time.Minute},
	}
}

type fulltextRequest struct {
	RawText  string `json:"raw_text"`
	FileName string `json:"file_name"`
	FileRef  string `json:"file_ref"`
	Tenant   string `json:"tenant_code"`
}

type fulltextReply struct {
	PartCount int `json:"part_count"`
	Status    struct {
		ErrorCode  int    `json:"error_code"`
		ErrMessage string `json:"err_message"`
	} `json:"status"`
}

func (c *DocumentServerClient) Index(ctx context.Context, doc Document) error {
	fileName := doc.FileName
	if fileName == "" {
		fileName = "no_filename_for_now"
	}
	b, err := json.Marshal(fulltextRequest{RawText: doc.Text, FileName: fileName, FileRef: doc.FileRef, Tenant: doc.Tenant})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/fulltext_indexing", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if doc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+doc.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("document server: status %d", resp.StatusCode)
	}
	var reply fulltextReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("document server: decode: %w", err)
	}
	if reply.Status.ErrorCode != 0 {
		return fmt.Errorf("document server: error %d: %s", reply.Status.ErrorCode, reply.Status.ErrMessage)
	}
	return nil
}
